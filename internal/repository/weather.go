package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/chesscast/backend/internal/entity"
	"github.com/chesscast/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type WeatherRepository interface {
	// Round
	CreateRound(ctx context.Context, round *entity.WeatherRound) error
	GetRoundByID(ctx context.Context, roundID string) (*entity.WeatherRound, error)
	GetActiveRound(ctx context.Context) (*entity.WeatherRound, error)
	GetLastRound(ctx context.Context) (*entity.WeatherRound, error)
	AccruePool(ctx context.Context, roundID string, cost uint64, side entity.WeatherSideType, quantity uint64) error
	CompleteRound(ctx context.Context, roundID string, winningSide entity.WeatherSideType, treasuryAmount uint64) error

	// Ticket
	CreateTickets(ctx context.Context, tickets []*entity.WeatherTicket) error
	GetTicketsBySide(ctx context.Context, roundID string, side entity.WeatherSideType) ([]entity.WeatherTicket, error)

	// Claim
	CreateClaim(ctx context.Context, claim *entity.WeatherClaim) error
	GetClaimByID(ctx context.Context, claimID string) (*entity.WeatherClaim, error)
	GetClaimsByRoundID(ctx context.Context, roundID string) ([]entity.WeatherClaim, error)
	GetClaimsByPlayerID(ctx context.Context, playerID string) ([]entity.WeatherClaim, error)

	// Claim state
	MarkClaimInFlight(ctx context.Context, claimID string, expiredAt time.Time) error
	ReleaseClaim(ctx context.Context, claimID string) error
	SettleClaim(ctx context.Context, claimID, txHash string) error
	ResetClaim(ctx context.Context, claimID string) error
}

type weatherRepository struct{}

func NewWeatherRepository() *weatherRepository {
	return &weatherRepository{}
}

func (r *weatherRepository) CreateRound(ctx context.Context, round *entity.WeatherRound) error {
	return xcontext.DB(ctx).Create(round).Error
}

func (r *weatherRepository) GetRoundByID(ctx context.Context, roundID string) (*entity.WeatherRound, error) {
	var result entity.WeatherRound
	if err := xcontext.DB(ctx).Take(&result, "id=?", roundID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *weatherRepository) GetActiveRound(ctx context.Context) (*entity.WeatherRound, error) {
	var result entity.WeatherRound
	if err := xcontext.DB(ctx).Take(&result, "status=?", entity.RoundActive).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *weatherRepository) GetLastRound(ctx context.Context) (*entity.WeatherRound, error) {
	var result entity.WeatherRound
	if err := xcontext.DB(ctx).Order("round_number DESC").Take(&result).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *weatherRepository) AccruePool(
	ctx context.Context, roundID string, cost uint64, side entity.WeatherSideType, quantity uint64,
) error {
	updates := map[string]any{
		"total_pool": gorm.Expr("total_pool+?", cost),
	}
	switch side {
	case entity.WeatherSunny:
		updates["sunny_quantity"] = gorm.Expr("sunny_quantity+?", quantity)
	case entity.WeatherRainy:
		updates["rainy_quantity"] = gorm.Expr("rainy_quantity+?", quantity)
	}

	tx := xcontext.DB(ctx).Model(&entity.WeatherRound{}).
		Where("id=? AND status=?", roundID, entity.RoundActive).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *weatherRepository) CompleteRound(
	ctx context.Context, roundID string, winningSide entity.WeatherSideType, treasuryAmount uint64,
) error {
	tx := xcontext.DB(ctx).Model(&entity.WeatherRound{}).
		Where("id=? AND status=?", roundID, entity.RoundActive).
		Updates(map[string]any{
			"status":          entity.RoundCompleted,
			"winning_side":    string(winningSide),
			"treasury_amount": gorm.Expr("treasury_amount+?", treasuryAmount),
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *weatherRepository) CreateTickets(ctx context.Context, tickets []*entity.WeatherTicket) error {
	return xcontext.DB(ctx).Create(tickets).Error
}

func (r *weatherRepository) GetTicketsBySide(
	ctx context.Context, roundID string, side entity.WeatherSideType,
) ([]entity.WeatherTicket, error) {
	var result []entity.WeatherTicket
	err := xcontext.DB(ctx).Find(&result, "round_id=? AND side=?", roundID, side).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *weatherRepository) CreateClaim(ctx context.Context, claim *entity.WeatherClaim) error {
	return xcontext.DB(ctx).Create(claim).Error
}

func (r *weatherRepository) GetClaimByID(ctx context.Context, claimID string) (*entity.WeatherClaim, error) {
	var result entity.WeatherClaim
	if err := xcontext.DB(ctx).Take(&result, "id=?", claimID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *weatherRepository) GetClaimsByRoundID(
	ctx context.Context, roundID string,
) ([]entity.WeatherClaim, error) {
	var result []entity.WeatherClaim
	if err := xcontext.DB(ctx).Find(&result, "round_id=?", roundID).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *weatherRepository) GetClaimsByPlayerID(
	ctx context.Context, playerID string,
) ([]entity.WeatherClaim, error) {
	var result []entity.WeatherClaim
	if err := xcontext.DB(ctx).Find(&result, "player_id=?", playerID).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *weatherRepository) MarkClaimInFlight(
	ctx context.Context, claimID string, expiredAt time.Time,
) error {
	tx := xcontext.DB(ctx).Model(&entity.WeatherClaim{}).
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

func (r *weatherRepository) ReleaseClaim(ctx context.Context, claimID string) error {
	return xcontext.DB(ctx).Model(&entity.WeatherClaim{}).
		Where("id=? AND status=?", claimID, entity.ClaimInFlight).
		Updates(map[string]any{
			"status":               entity.ClaimPending,
			"in_flight_expired_at": sql.NullTime{},
		}).Error
}

func (r *weatherRepository) SettleClaim(ctx context.Context, claimID, txHash string) error {
	tx := xcontext.DB(ctx).Model(&entity.WeatherClaim{}).
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

func (r *weatherRepository) ResetClaim(ctx context.Context, claimID string) error {
	tx := xcontext.DB(ctx).Model(&entity.WeatherClaim{}).
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
