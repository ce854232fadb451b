package domain

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/chesscast/backend/internal/entity"
	"github.com/chesscast/backend/internal/model"
	"github.com/chesscast/backend/internal/repository"
	"github.com/chesscast/backend/pkg/crypto"
	"github.com/chesscast/backend/pkg/errorx"
	"github.com/chesscast/backend/pkg/xcontext"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LotteryDomain interface {
	CreateRound(context.Context, *model.CreateLotteryRoundRequest) (*model.CreateLotteryRoundResponse, error)
	GetRound(context.Context, *model.GetLotteryRoundRequest) (*model.GetLotteryRoundResponse, error)
	BuyTickets(context.Context, *model.BuyLotteryTicketsRequest) (*model.BuyLotteryTicketsResponse, error)
	Draw(context.Context, *model.DrawLotteryRoundRequest) (*model.DrawLotteryRoundResponse, error)
	GetWinnings(context.Context, *model.GetLotteryWinningsRequest) (*model.GetLotteryWinningsResponse, error)
}

type lotteryDomain struct {
	lotteryRepo repository.LotteryRepository
}

func NewLotteryDomain(lotteryRepo repository.LotteryRepository) *lotteryDomain {
	return &lotteryDomain{lotteryRepo: lotteryRepo}
}

// CreateRound opens a new round. The opening jackpot is the configured base,
// plus the carry-over share of the previous round's ticket revenue, plus the
// whole previous jackpot when nobody won it.
func (d *lotteryDomain) CreateRound(
	ctx context.Context, req *model.CreateLotteryRoundRequest,
) (*model.CreateLotteryRoundResponse, error) {
	if req.StartTime.After(req.EndTime) {
		return nil, errorx.New(errorx.BadRequest, "Invalid round time")
	}

	_, err := d.lotteryRepo.GetActiveRound(ctx)
	if err == nil {
		return nil, errorx.New(errorx.Unavailable, "Still have an active round")
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot check the active round: %v", err)
		return nil, errorx.Unknown
	}

	cfg := xcontext.Configs(ctx).Lottery
	jackpot := cfg.BaseJackpot
	roundNumber := int64(1)

	lastRound, err := d.lotteryRepo.GetLastRound(ctx)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get the last round: %v", err)
		return nil, errorx.Unknown
	}

	if err == nil {
		roundNumber = lastRound.RoundNumber + 1
		jackpot += lastRound.CarryOver * cfg.CarryOverRateBps / 10000

		winners, err := d.lotteryRepo.CountWinningsByRoundID(ctx, lastRound.ID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot count winnings of the last round: %v", err)
			return nil, errorx.Unknown
		}

		if winners == 0 {
			jackpot += lastRound.Jackpot
		}
	}

	round := &entity.LotteryRound{
		Base:        entity.Base{ID: uuid.NewString()},
		RoundNumber: roundNumber,
		Status:      entity.RoundActive,
		Jackpot:     jackpot,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}

	if err := d.lotteryRepo.CreateRound(ctx, round); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create round: %v", err)
		return nil, errorx.Unknown
	}

	return &model.CreateLotteryRoundResponse{Round: model.ConvertLotteryRound(round)}, nil
}

func (d *lotteryDomain) GetRound(
	ctx context.Context, req *model.GetLotteryRoundRequest,
) (*model.GetLotteryRoundResponse, error) {
	round, err := d.getRound(ctx, req.RoundID)
	if err != nil {
		return nil, err
	}

	return &model.GetLotteryRoundResponse{Round: model.ConvertLotteryRound(round)}, nil
}

func (d *lotteryDomain) BuyTickets(
	ctx context.Context, req *model.BuyLotteryTicketsRequest,
) (*model.BuyLotteryTicketsResponse, error) {
	cfg := xcontext.Configs(ctx).Lottery
	if req.Number < 1 || req.Number > cfg.MaxNumber {
		return nil, errorx.New(errorx.TicketOutOfRange,
			"Number must be between 1 and %d", cfg.MaxNumber)
	}

	if req.Quantity < 1 || req.Quantity > cfg.MaxQuantity {
		return nil, errorx.New(errorx.BadRequest,
			"Quantity must be between 1 and %d", cfg.MaxQuantity)
	}

	round, err := d.lotteryRepo.GetActiveRound(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NoActiveRound, "No round is open for ticket sales")
		}

		xcontext.Logger(ctx).Errorf("Cannot get the active round: %v", err)
		return nil, errorx.Unknown
	}

	if time.Now().After(round.EndTime) {
		return nil, errorx.New(errorx.NoActiveRound, "The round is over")
	}

	playerID := xcontext.RequestUserID(ctx)
	tickets := make([]*entity.LotteryTicket, 0, req.Quantity)
	for i := 0; i < req.Quantity; i++ {
		tickets = append(tickets, &entity.LotteryTicket{
			SnowFlakeBase: entity.SnowFlakeBase{ID: xcontext.SnowFlake(ctx).Generate().Int64()},
			RoundID:       round.ID,
			PlayerID:      playerID,
			Number:        req.Number,
			PurchasePrice: cfg.TicketPrice,
		})
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.lotteryRepo.CreateTickets(ctx, tickets); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create tickets: %v", err)
		return nil, errorx.Unknown
	}

	revenue := cfg.TicketPrice * uint64(req.Quantity)
	if err := d.lotteryRepo.AccrueCarryOver(ctx, round.ID, revenue); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NoActiveRound, "The round was just drawn")
		}

		xcontext.Logger(ctx).Errorf("Cannot accrue carry-over: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(ctx)

	resp := &model.BuyLotteryTicketsResponse{}
	for _, t := range tickets {
		resp.Tickets = append(resp.Tickets, model.ConvertLotteryTicket(t))
	}

	return resp, nil
}

// Draw closes the round. The conditional status flip doubles as the draw
// mutex, so two concurrent draws can never both pay out.
func (d *lotteryDomain) Draw(
	ctx context.Context, req *model.DrawLotteryRoundRequest,
) (*model.DrawLotteryRoundResponse, error) {
	round, err := d.getRound(ctx, req.RoundID)
	if err != nil {
		return nil, err
	}

	if round.Status != entity.RoundActive {
		return nil, errorx.New(errorx.RoundAlreadyDrawn, "The round is already drawn")
	}

	if !req.Force && time.Now().Before(round.EndTime) {
		return nil, errorx.New(errorx.Unavailable, "The round is not over yet")
	}

	cfg := xcontext.Configs(ctx).Lottery
	winningNumber := crypto.RandRange(1, cfg.MaxNumber+1)

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	winningTickets, err := d.lotteryRepo.GetTicketsByNumber(ctx, round.ID, winningNumber)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get winning tickets: %v", err)
		return nil, errorx.Unknown
	}

	// Equal split per winning ticket, floored. The integer remainder goes to
	// the treasury so the jackpot is always fully accounted for.
	var amountPerTicket, remainder uint64
	if len(winningTickets) > 0 {
		amountPerTicket = round.Jackpot / uint64(len(winningTickets))
		remainder = round.Jackpot - amountPerTicket*uint64(len(winningTickets))
	}

	err = d.lotteryRepo.CompleteRound(ctx, round.ID, winningNumber, remainder)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.RoundAlreadyDrawn, "The round is already drawn")
		}

		xcontext.Logger(ctx).Errorf("Cannot complete round: %v", err)
		return nil, errorx.Unknown
	}

	var winnings []model.LotteryWinning
	for _, ticket := range winningTickets {
		winning := &entity.LotteryWinning{
			Base:      entity.Base{ID: uuid.NewString()},
			RoundID:   round.ID,
			TicketID:  ticket.ID,
			PlayerID:  ticket.PlayerID,
			AmountWon: amountPerTicket,
			Status:    entity.ClaimPending,
		}

		if err := d.lotteryRepo.CreateWinning(ctx, winning); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot create winning: %v", err)
			return nil, errorx.Unknown
		}

		winnings = append(winnings, model.ConvertLotteryWinning(winning))
	}

	xcontext.WithCommitDBTransaction(ctx)

	round.Status = entity.RoundCompleted
	round.WinningNumber = sql.NullInt32{Int32: int32(winningNumber), Valid: true}
	round.TreasuryAmount += remainder

	return &model.DrawLotteryRoundResponse{
		Round:    model.ConvertLotteryRound(round),
		Winnings: winnings,
	}, nil
}

func (d *lotteryDomain) GetWinnings(
	ctx context.Context, req *model.GetLotteryWinningsRequest,
) (*model.GetLotteryWinningsResponse, error) {
	if req.RoundID == "" && req.PlayerID == "" {
		return nil, errorx.New(errorx.BadRequest, "Require either a round id or a player id")
	}

	var winnings []entity.LotteryWinning
	var err error
	if req.RoundID != "" {
		winnings, err = d.lotteryRepo.GetWinningsByRoundID(ctx, req.RoundID)
	} else {
		winnings, err = d.lotteryRepo.GetWinningsByPlayerID(ctx, req.PlayerID)
	}
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get winnings: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.GetLotteryWinningsResponse{}
	for i := range winnings {
		resp.Winnings = append(resp.Winnings, model.ConvertLotteryWinning(&winnings[i]))
	}

	return resp, nil
}

func (d *lotteryDomain) getRound(ctx context.Context, roundID string) (*entity.LotteryRound, error) {
	round, err := d.lotteryRepo.GetRoundByID(ctx, roundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found round")
		}

		xcontext.Logger(ctx).Errorf("Cannot get round: %v", err)
		return nil, errorx.Unknown
	}

	return round, nil
}
