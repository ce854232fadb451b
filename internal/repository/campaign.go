package repository

import (
	"context"
	"time"

	"github.com/chesscast/backend/internal/entity"
	"github.com/chesscast/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type CampaignRepository interface {
	Create(ctx context.Context, campaign *entity.Campaign) error
	GetByID(ctx context.Context, id string) (*entity.Campaign, error)
	UpdateStatus(ctx context.Context, id string, status entity.CampaignStatusType) error

	// DecreaseBudget atomically spends one reward from the campaign budget.
	// It returns gorm.ErrRecordNotFound if the campaign is not active or the
	// remaining budget is not enough.
	DecreaseBudget(ctx context.Context, id string, amount uint64) error

	CreateShareEvent(ctx context.Context, event *entity.ShareEvent) error
	CountRecentShareEvents(ctx context.Context, campaignID, userID string, since time.Time) (int64, error)
	GetUnclaimedShareEvents(ctx context.Context, userID string) ([]entity.ShareEvent, error)

	// AssignShareEventsToClaim attaches unclaimed events to a share claim.
	// It returns the number of rows it actually assigned, which the caller
	// must compare against the expected count to detect a lost race.
	AssignShareEventsToClaim(ctx context.Context, eventIDs []string, claimID string) (int64, error)
}

type campaignRepository struct{}

func NewCampaignRepository() *campaignRepository {
	return &campaignRepository{}
}

func (r *campaignRepository) Create(ctx context.Context, campaign *entity.Campaign) error {
	return xcontext.DB(ctx).Create(campaign).Error
}

func (r *campaignRepository) GetByID(ctx context.Context, id string) (*entity.Campaign, error) {
	var result entity.Campaign
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *campaignRepository) UpdateStatus(
	ctx context.Context, id string, status entity.CampaignStatusType,
) error {
	tx := xcontext.DB(ctx).Model(&entity.Campaign{}).
		Where("id=?", id).
		Update("status", status)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *campaignRepository) DecreaseBudget(ctx context.Context, id string, amount uint64) error {
	tx := xcontext.DB(ctx).Model(&entity.Campaign{}).
		Where("id=? AND status=? AND remaining_budget >= ?", id, entity.CampaignActive, amount).
		Updates(map[string]any{
			"remaining_budget": gorm.Expr("remaining_budget-?", amount),
			"shares_count":     gorm.Expr("shares_count+?", 1),
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *campaignRepository) CreateShareEvent(ctx context.Context, event *entity.ShareEvent) error {
	return xcontext.DB(ctx).Create(event).Error
}

func (r *campaignRepository) CountRecentShareEvents(
	ctx context.Context, campaignID, userID string, since time.Time,
) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.ShareEvent{}).
		Where("campaign_id=? AND user_id=? AND created_at >= ?", campaignID, userID, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *campaignRepository) GetUnclaimedShareEvents(
	ctx context.Context, userID string,
) ([]entity.ShareEvent, error) {
	var result []entity.ShareEvent
	err := xcontext.DB(ctx).
		Find(&result, "user_id=? AND share_claim_id IS NULL", userID).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *campaignRepository) AssignShareEventsToClaim(
	ctx context.Context, eventIDs []string, claimID string,
) (int64, error) {
	tx := xcontext.DB(ctx).Model(&entity.ShareEvent{}).
		Where("id IN (?) AND share_claim_id IS NULL", eventIDs).
		Update("share_claim_id", claimID)
	if tx.Error != nil {
		return 0, tx.Error
	}

	return tx.RowsAffected, nil
}
