package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/chesscast/backend/internal/entity"
	"github.com/chesscast/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type ShareClaimRepository interface {
	Create(ctx context.Context, claim *entity.ShareClaim) error
	GetByID(ctx context.Context, claimID string) (*entity.ShareClaim, error)

	MarkInFlight(ctx context.Context, claimID string, expiredAt time.Time) error
	Release(ctx context.Context, claimID string) error
	Settle(ctx context.Context, claimID, txHash string) error
	Reset(ctx context.Context, claimID string) error
}

type shareClaimRepository struct{}

func NewShareClaimRepository() *shareClaimRepository {
	return &shareClaimRepository{}
}

func (r *shareClaimRepository) Create(ctx context.Context, claim *entity.ShareClaim) error {
	return xcontext.DB(ctx).Create(claim).Error
}

func (r *shareClaimRepository) GetByID(ctx context.Context, claimID string) (*entity.ShareClaim, error) {
	var result entity.ShareClaim
	if err := xcontext.DB(ctx).Take(&result, "id=?", claimID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *shareClaimRepository) MarkInFlight(
	ctx context.Context, claimID string, expiredAt time.Time,
) error {
	tx := xcontext.DB(ctx).Model(&entity.ShareClaim{}).
		Where("id=? AND (status=? OR (status=? AND in_flight_expired_at <= ?))",
			claimID, entity.ClaimPending, entity.ClaimInFlight, time.Now()).
		Updates(map[string]any{
			"status":               entity.ClaimInFlight,
			"in_flight_expired_at": expiredAt,
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *shareClaimRepository) Release(ctx context.Context, claimID string) error {
	return xcontext.DB(ctx).Model(&entity.ShareClaim{}).
		Where("id=? AND status=?", claimID, entity.ClaimInFlight).
		Updates(map[string]any{
			"status":               entity.ClaimPending,
			"in_flight_expired_at": sql.NullTime{},
		}).Error
}

func (r *shareClaimRepository) Settle(ctx context.Context, claimID, txHash string) error {
	tx := xcontext.DB(ctx).Model(&entity.ShareClaim{}).
		Where("id=? AND claimed_at IS NULL", claimID).
		Updates(map[string]any{
			"status":           entity.ClaimClaimed,
			"claimed_at":       time.Now(),
			"transaction_hash": txHash,
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *shareClaimRepository) Reset(ctx context.Context, claimID string) error {
	tx := xcontext.DB(ctx).Model(&entity.ShareClaim{}).
		Where("id=?", claimID).
		Updates(map[string]any{
			"status":               entity.ClaimPending,
			"in_flight_expired_at": sql.NullTime{},
			"claimed_at":           sql.NullTime{},
			"transaction_hash":     sql.NullString{},
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
