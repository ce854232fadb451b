package pubsub

// Pack is a raw message with its partition key.
type Pack struct {
	Key []byte
	Msg []byte
}
