package entity

import (
	"database/sql"

	"github.com/chesscast/backend/pkg/enum"
)

type ClaimStatusType string

var (
	ClaimPending  = enum.New(ClaimStatusType("pending"))
	ClaimInFlight = enum.New(ClaimStatusType("in_flight"))
	ClaimClaimed  = enum.New(ClaimStatusType("claimed"))
)

type ClaimType string

var (
	ClaimTypeShare   = enum.New(ClaimType("share"))
	ClaimTypeLottery = enum.New(ClaimType("lottery"))
	ClaimTypeWeather = enum.New(ClaimType("weather"))
)

// ShareClaim aggregates the not-yet-claimed share events of a user into a
// single signable amount, so the user submits one on-chain claim instead of
// one per share.
type ShareClaim struct {
	Base

	UserID  string
	Address string
	Amount  uint64

	Status            ClaimStatusType
	InFlightExpiredAt sql.NullTime
	ClaimedAt         sql.NullTime
	TransactionHash   sql.NullString `gorm:"uniqueIndex"`
}
