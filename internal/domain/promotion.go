package domain

import (
	"context"
	"errors"
	"time"

	"github.com/chesscast/backend/internal/entity"
	"github.com/chesscast/backend/internal/model"
	"github.com/chesscast/backend/internal/repository"
	"github.com/chesscast/backend/pkg/errorx"
	"github.com/chesscast/backend/pkg/xcontext"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	maxShareRetries   = 3
	shareRetryBackoff = 10 * time.Millisecond
)

type PromotionDomain interface {
	CreateCampaign(context.Context, *model.CreateCampaignRequest) (*model.CreateCampaignResponse, error)
	GetCampaign(context.Context, *model.GetCampaignRequest) (*model.GetCampaignResponse, error)
	RecordShare(context.Context, *model.RecordShareRequest) (*model.RecordShareResponse, error)
	PauseCampaign(context.Context, *model.PauseCampaignRequest) (*model.PauseCampaignResponse, error)
	ResumeCampaign(context.Context, *model.ResumeCampaignRequest) (*model.ResumeCampaignResponse, error)
}

type promotionDomain struct {
	campaignRepo repository.CampaignRepository
}

func NewPromotionDomain(campaignRepo repository.CampaignRepository) *promotionDomain {
	return &promotionDomain{campaignRepo: campaignRepo}
}

func (d *promotionDomain) CreateCampaign(
	ctx context.Context, req *model.CreateCampaignRequest,
) (*model.CreateCampaignResponse, error) {
	if req.RewardPerShare == 0 {
		return nil, errorx.New(errorx.BadRequest, "Reward per share must be a positive amount")
	}

	if req.TotalBudget < req.RewardPerShare {
		return nil, errorx.New(errorx.BadRequest, "Budget must cover at least one share")
	}

	campaign := &entity.Campaign{
		Base:            entity.Base{ID: uuid.NewString()},
		OwnerID:         xcontext.RequestUserID(ctx),
		RewardPerShare:  req.RewardPerShare,
		TotalBudget:     req.TotalBudget,
		RemainingBudget: req.TotalBudget,
		Status:          entity.CampaignActive,
	}

	if err := d.campaignRepo.Create(ctx, campaign); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create campaign: %v", err)
		return nil, errorx.Unknown
	}

	return &model.CreateCampaignResponse{ID: campaign.ID}, nil
}

func (d *promotionDomain) GetCampaign(
	ctx context.Context, req *model.GetCampaignRequest,
) (*model.GetCampaignResponse, error) {
	campaign, err := d.campaignRepo.GetByID(ctx, req.CampaignID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found campaign")
		}

		xcontext.Logger(ctx).Errorf("Cannot get campaign: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetCampaignResponse{Campaign: model.ConvertCampaign(campaign)}, nil
}

// RecordShare rewards a user for sharing at most once per cooldown window,
// bounded by the campaign budget. The budget decrement, the cooldown check,
// and the event insert commit atomically.
func (d *promotionDomain) RecordShare(
	ctx context.Context, req *model.RecordShareRequest,
) (*model.RecordShareResponse, error) {
	userID := xcontext.RequestUserID(ctx)

	campaign, err := d.campaignRepo.GetByID(ctx, req.CampaignID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found campaign")
		}

		xcontext.Logger(ctx).Errorf("Cannot get campaign: %v", err)
		return nil, errorx.Unknown
	}

	var lastErr error
	for attempt := 0; attempt < maxShareRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(shareRetryBackoff << uint(attempt-1))
		}

		event, err := d.recordShareOnce(ctx, campaign, userID)
		if err == nil {
			return &model.RecordShareResponse{ShareEvent: model.ConvertShareEvent(event)}, nil
		}

		var errx errorx.Error
		if errors.As(err, &errx) {
			return nil, err
		}

		lastErr = err
	}

	xcontext.Logger(ctx).Errorf("Cannot record share after retries: %v", lastErr)
	return nil, errorx.Unknown
}

func (d *promotionDomain) recordShareOnce(
	ctx context.Context, campaign *entity.Campaign, userID string,
) (*entity.ShareEvent, error) {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	// The guarded decrement takes the campaign row lock before the cooldown
	// count, so a concurrent share of the same user cannot pass the count on
	// a snapshot taken before the other one committed. A cooldown refusal
	// below rolls the decrement back.
	err := d.campaignRepo.DecreaseBudget(ctx, campaign.ID, campaign.RewardPerShare)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The guarded update refuses for two distinct reasons. Re-read to
			// tell the caller which one it was.
			fresh, ferr := d.campaignRepo.GetByID(ctx, campaign.ID)
			if ferr != nil {
				xcontext.Logger(ctx).Errorf("Cannot re-read campaign: %v", ferr)
				return nil, errorx.Unknown
			}

			if fresh.Status != entity.CampaignActive {
				return nil, errorx.New(errorx.CampaignInactive, "Campaign is not active")
			}

			if fresh.RemainingBudget < campaign.RewardPerShare {
				return nil, errorx.New(errorx.InsufficientBudget, "Campaign budget is exhausted")
			}

			// Neither condition holds anymore, a concurrent writer won the
			// row. Retry.
			return nil, err
		}

		xcontext.Logger(ctx).Errorf("Cannot decrease campaign budget: %v", err)
		return nil, errorx.Unknown
	}

	since := time.Now().Add(-xcontext.Configs(ctx).Promotion.ShareCooldown)
	count, err := d.campaignRepo.CountRecentShareEvents(ctx, campaign.ID, userID, since)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot count recent share events: %v", err)
		return nil, errorx.Unknown
	}

	if count > 0 {
		return nil, errorx.New(errorx.CooldownActive,
			"Already rewarded for sharing this campaign recently")
	}

	event := &entity.ShareEvent{
		Base:         entity.Base{ID: uuid.NewString()},
		CampaignID:   campaign.ID,
		UserID:       userID,
		RewardAmount: campaign.RewardPerShare,
	}

	if err := d.campaignRepo.CreateShareEvent(ctx, event); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create share event: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(ctx)
	return event, nil
}

func (d *promotionDomain) PauseCampaign(
	ctx context.Context, req *model.PauseCampaignRequest,
) (*model.PauseCampaignResponse, error) {
	if err := d.updateCampaignStatus(ctx, req.CampaignID, entity.CampaignPaused); err != nil {
		return nil, err
	}

	return &model.PauseCampaignResponse{}, nil
}

func (d *promotionDomain) ResumeCampaign(
	ctx context.Context, req *model.ResumeCampaignRequest,
) (*model.ResumeCampaignResponse, error) {
	if err := d.updateCampaignStatus(ctx, req.CampaignID, entity.CampaignActive); err != nil {
		return nil, err
	}

	return &model.ResumeCampaignResponse{}, nil
}

func (d *promotionDomain) updateCampaignStatus(
	ctx context.Context, campaignID string, status entity.CampaignStatusType,
) error {
	campaign, err := d.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.NotFound, "Not found campaign")
		}

		xcontext.Logger(ctx).Errorf("Cannot get campaign: %v", err)
		return errorx.Unknown
	}

	if campaign.OwnerID != xcontext.RequestUserID(ctx) {
		return errorx.New(errorx.PermissionDenied, "Permission denied")
	}

	if campaign.Status == entity.CampaignCompleted {
		return errorx.New(errorx.CampaignInactive, "Campaign is already completed")
	}

	if err := d.campaignRepo.UpdateStatus(ctx, campaignID, status); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot update campaign status: %v", err)
		return errorx.Unknown
	}

	return nil
}
