package entity

import (
	"database/sql"
	"time"

	"github.com/chesscast/backend/pkg/enum"
)

type RoundStatusType string

var (
	RoundActive    = enum.New(RoundStatusType("active"))
	RoundCompleted = enum.New(RoundStatusType("completed"))
)

// LotteryRound goes from active to completed exactly once. CarryOver
// accumulates ticket revenue and seeds the next round's jackpot.
// TreasuryAmount keeps the split remainders so no unit silently vanishes.
type LotteryRound struct {
	Base

	RoundNumber int64 `gorm:"uniqueIndex"`
	Status      RoundStatusType

	Jackpot        uint64
	CarryOver      uint64
	TreasuryAmount uint64

	WinningNumber sql.NullInt32

	StartTime time.Time
	EndTime   time.Time
}

type LotteryTicket struct {
	SnowFlakeBase

	RoundID string       `gorm:"index"`
	Round   LotteryRound `gorm:"foreignKey:RoundID"`

	PlayerID      string `gorm:"index"`
	Number        int
	PurchasePrice uint64
}

type LotteryWinning struct {
	Base

	RoundID string       `gorm:"index"`
	Round   LotteryRound `gorm:"foreignKey:RoundID"`

	TicketID int64
	PlayerID string `gorm:"index"`

	AmountWon uint64

	Status            ClaimStatusType
	InFlightExpiredAt sql.NullTime
	ClaimedAt         sql.NullTime
	TransactionHash   sql.NullString `gorm:"uniqueIndex"`
}
