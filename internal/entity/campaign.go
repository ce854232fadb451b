package entity

import (
	"database/sql"

	"github.com/chesscast/backend/pkg/enum"
)

type CampaignStatusType string

var (
	CampaignActive    = enum.New(CampaignStatusType("active"))
	CampaignPaused    = enum.New(CampaignStatusType("paused"))
	CampaignCompleted = enum.New(CampaignStatusType("completed"))
)

// Campaign is a promotion budget. RemainingBudget is only ever mutated by the
// guarded decrement in CampaignRepository.DecreaseBudget, so it can never go
// below zero.
type Campaign struct {
	Base

	OwnerID string

	RewardPerShare  uint64
	TotalBudget     uint64
	RemainingBudget uint64
	SharesCount     int

	Status CampaignStatusType
}

// ShareEvent is append-only. ShareClaimID is set once the event has been
// aggregated into a signable claim.
type ShareEvent struct {
	Base

	CampaignID string
	Campaign   Campaign `gorm:"foreignKey:CampaignID"`

	UserID       string
	RewardAmount uint64

	ShareClaimID sql.NullString `gorm:"index"`
}
