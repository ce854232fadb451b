package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/chesscast/backend/internal/entity"
	"github.com/chesscast/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type LotteryRepository interface {
	// Round
	CreateRound(ctx context.Context, round *entity.LotteryRound) error
	GetRoundByID(ctx context.Context, roundID string) (*entity.LotteryRound, error)
	GetActiveRound(ctx context.Context) (*entity.LotteryRound, error)
	GetLastRound(ctx context.Context) (*entity.LotteryRound, error)
	AccrueCarryOver(ctx context.Context, roundID string, amount uint64) error
	CompleteRound(ctx context.Context, roundID string, winningNumber int, treasuryAmount uint64) error

	// Ticket
	CreateTickets(ctx context.Context, tickets []*entity.LotteryTicket) error
	GetTicketsByNumber(ctx context.Context, roundID string, number int) ([]entity.LotteryTicket, error)

	// Winning
	CreateWinning(ctx context.Context, winning *entity.LotteryWinning) error
	GetWinningByID(ctx context.Context, winningID string) (*entity.LotteryWinning, error)
	GetWinningsByRoundID(ctx context.Context, roundID string) ([]entity.LotteryWinning, error)
	GetWinningsByPlayerID(ctx context.Context, playerID string) ([]entity.LotteryWinning, error)
	CountWinningsByRoundID(ctx context.Context, roundID string) (int64, error)

	// Claim state
	MarkWinningInFlight(ctx context.Context, winningID string, expiredAt time.Time) error
	ReleaseWinning(ctx context.Context, winningID string) error
	SettleWinning(ctx context.Context, winningID, txHash string) error
	ResetWinningClaim(ctx context.Context, winningID string) error
}

type lotteryRepository struct{}

func NewLotteryRepository() *lotteryRepository {
	return &lotteryRepository{}
}

func (r *lotteryRepository) CreateRound(ctx context.Context, round *entity.LotteryRound) error {
	return xcontext.DB(ctx).Create(round).Error
}

func (r *lotteryRepository) GetRoundByID(ctx context.Context, roundID string) (*entity.LotteryRound, error) {
	var result entity.LotteryRound
	if err := xcontext.DB(ctx).Take(&result, "id=?", roundID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *lotteryRepository) GetActiveRound(ctx context.Context) (*entity.LotteryRound, error) {
	var result entity.LotteryRound
	if err := xcontext.DB(ctx).Take(&result, "status=?", entity.RoundActive).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *lotteryRepository) GetLastRound(ctx context.Context) (*entity.LotteryRound, error) {
	var result entity.LotteryRound
	err := xcontext.DB(ctx).Order("round_number DESC").Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *lotteryRepository) AccrueCarryOver(ctx context.Context, roundID string, amount uint64) error {
	tx := xcontext.DB(ctx).Model(&entity.LotteryRound{}).
		Where("id=? AND status=?", roundID, entity.RoundActive).
		Update("carry_over", gorm.Expr("carry_over+?", amount))
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// CompleteRound is the draw mutex. Only one caller can flip the round from
// active to completed; everyone else gets gorm.ErrRecordNotFound.
func (r *lotteryRepository) CompleteRound(
	ctx context.Context, roundID string, winningNumber int, treasuryAmount uint64,
) error {
	tx := xcontext.DB(ctx).Model(&entity.LotteryRound{}).
		Where("id=? AND status=?", roundID, entity.RoundActive).
		Updates(map[string]any{
			"status":          entity.RoundCompleted,
			"winning_number":  winningNumber,
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

func (r *lotteryRepository) CreateTickets(ctx context.Context, tickets []*entity.LotteryTicket) error {
	return xcontext.DB(ctx).Create(tickets).Error
}

func (r *lotteryRepository) GetTicketsByNumber(
	ctx context.Context, roundID string, number int,
) ([]entity.LotteryTicket, error) {
	var result []entity.LotteryTicket
	err := xcontext.DB(ctx).Find(&result, "round_id=? AND number=?", roundID, number).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *lotteryRepository) CreateWinning(ctx context.Context, winning *entity.LotteryWinning) error {
	return xcontext.DB(ctx).Create(winning).Error
}

func (r *lotteryRepository) GetWinningByID(
	ctx context.Context, winningID string,
) (*entity.LotteryWinning, error) {
	var result entity.LotteryWinning
	if err := xcontext.DB(ctx).Take(&result, "id=?", winningID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *lotteryRepository) GetWinningsByRoundID(
	ctx context.Context, roundID string,
) ([]entity.LotteryWinning, error) {
	var result []entity.LotteryWinning
	if err := xcontext.DB(ctx).Find(&result, "round_id=?", roundID).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *lotteryRepository) GetWinningsByPlayerID(
	ctx context.Context, playerID string,
) ([]entity.LotteryWinning, error) {
	var result []entity.LotteryWinning
	if err := xcontext.DB(ctx).Find(&result, "player_id=?", playerID).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *lotteryRepository) CountWinningsByRoundID(ctx context.Context, roundID string) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.LotteryWinning{}).
		Where("round_id=?", roundID).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// MarkWinningInFlight takes the provisional claim lock. An in-flight claim
// whose timeout lapsed counts as claimable again.
func (r *lotteryRepository) MarkWinningInFlight(
	ctx context.Context, winningID string, expiredAt time.Time,
) error {
	tx := xcontext.DB(ctx).Model(&entity.LotteryWinning{}).
		Where("id=? AND (status=? OR (status=? AND in_flight_expired_at <= ?))",
			winningID, entity.ClaimPending, entity.ClaimInFlight, time.Now()).
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

func (r *lotteryRepository) ReleaseWinning(ctx context.Context, winningID string) error {
	return xcontext.DB(ctx).Model(&entity.LotteryWinning{}).
		Where("id=? AND status=?", winningID, entity.ClaimInFlight).
		Updates(map[string]any{
			"status":               entity.ClaimPending,
			"in_flight_expired_at": sql.NullTime{},
		}).Error
}

func (r *lotteryRepository) SettleWinning(ctx context.Context, winningID, txHash string) error {
	tx := xcontext.DB(ctx).Model(&entity.LotteryWinning{}).
		Where("id=? AND claimed_at IS NULL", winningID).
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

func (r *lotteryRepository) ResetWinningClaim(ctx context.Context, winningID string) error {
	tx := xcontext.DB(ctx).Model(&entity.LotteryWinning{}).
		Where("id=?", winningID).
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
