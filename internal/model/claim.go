package model

type IssueClaimRequest struct {
	ClaimType string `json:"claim_type"`
	ClaimID   string `json:"claim_id"`
	Address   string `json:"address"`
}

type IssueClaimResponse struct {
	ClaimID   string `json:"claim_id"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

type RecordSettlementRequest struct {
	ClaimType       string `json:"claim_type"`
	ClaimID         string `json:"claim_id"`
	TransactionHash string `json:"transaction_hash"`
}

type RecordSettlementResponse struct{}

type ResetClaimRequest struct {
	ClaimType string `json:"claim_type"`
	ClaimID   string `json:"claim_id"`
}

type ResetClaimResponse struct{}

// SettlementEvent is the payload published to the settlement topic after a
// settlement commits.
type SettlementEvent struct {
	ClaimType       string `json:"claim_type"`
	ClaimID         string `json:"claim_id"`
	Recipient       string `json:"recipient"`
	Amount          uint64 `json:"amount"`
	TransactionHash string `json:"transaction_hash"`
}
