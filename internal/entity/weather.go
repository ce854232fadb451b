package entity

import (
	"database/sql"
	"time"

	"github.com/chesscast/backend/pkg/enum"
)

type WeatherSideType string

var (
	WeatherSunny = enum.New(WeatherSideType("sunny"))
	WeatherRainy = enum.New(WeatherSideType("rainy"))
)

// WeatherRound is a two sided pari-mutuel pool. The invariant held by the
// draw is:
//
//	sum(claims) + TreasuryAmount + HouseBase = TotalPool
type WeatherRound struct {
	Base

	RoundNumber int64 `gorm:"uniqueIndex"`
	Status      RoundStatusType

	HouseBase     uint64
	TotalPool     uint64
	SunnyQuantity uint64
	RainyQuantity uint64

	// TreasuryAmount holds the treasury cut plus rounding remainders, and
	// the whole winners pool when the winning side sold no tickets.
	TreasuryAmount uint64

	WinningSide sql.NullString

	StartTime time.Time
	EndTime   time.Time
}

type WeatherTicket struct {
	SnowFlakeBase

	RoundID string       `gorm:"index"`
	Round   WeatherRound `gorm:"foreignKey:RoundID"`

	PlayerID  string `gorm:"index"`
	Side      WeatherSideType
	Quantity  uint64
	TotalCost uint64
}

// WeatherClaim is aggregated per winning player, not per ticket, so a player
// signs a single claim per round.
type WeatherClaim struct {
	Base

	RoundID string       `gorm:"index"`
	Round   WeatherRound `gorm:"foreignKey:RoundID"`

	PlayerID     string `gorm:"index"`
	PayoutAmount uint64

	Status            ClaimStatusType
	InFlightExpiredAt sql.NullTime
	ClaimedAt         sql.NullTime
	TransactionHash   sql.NullString `gorm:"uniqueIndex"`
}
