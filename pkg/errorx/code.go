package errorx

type Code int

var Unknown = Error{Code: 100000, Message: "Request failed"}

const (
	// Common codes
	BadRequest       Code = 100001
	BadResponse      Code = 100002
	PermissionDenied Code = 100003
	NotFound         Code = 100004
	Unauthenticated  Code = 100005
	AlreadyExists    Code = 100006
	Internal         Code = 100007
	Unavailable      Code = 100008
	NotImplemented   Code = 100009
	TooManyRequests  Code = 100010

	// Promotion codes
	InsufficientBudget Code = 200001
	CooldownActive     Code = 200002
	CampaignInactive   Code = 200003

	// Round codes
	NoActiveRound     Code = 300001
	RoundAlreadyDrawn Code = 300002
	TicketOutOfRange  Code = 300003

	// Claim codes
	AlreadyClaimed           Code = 400001
	ClaimInFlight            Code = 400002
	SignerMismatch           Code = 400003
	ExternalChainReadFailure Code = 400004
	SettlementConflict       Code = 400005
)
