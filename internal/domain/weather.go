package domain

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/chesscast/backend/internal/entity"
	"github.com/chesscast/backend/internal/model"
	"github.com/chesscast/backend/internal/repository"
	"github.com/chesscast/backend/pkg/enum"
	"github.com/chesscast/backend/pkg/errorx"
	"github.com/chesscast/backend/pkg/xcontext"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WeatherDomain interface {
	CreateRound(context.Context, *model.CreateWeatherRoundRequest) (*model.CreateWeatherRoundResponse, error)
	GetRound(context.Context, *model.GetWeatherRoundRequest) (*model.GetWeatherRoundResponse, error)
	BuyTickets(context.Context, *model.BuyWeatherTicketsRequest) (*model.BuyWeatherTicketsResponse, error)
	Draw(context.Context, *model.DrawWeatherRoundRequest) (*model.DrawWeatherRoundResponse, error)
	GetClaims(context.Context, *model.GetWeatherClaimsRequest) (*model.GetWeatherClaimsResponse, error)
}

type weatherDomain struct {
	weatherRepo repository.WeatherRepository
}

func NewWeatherDomain(weatherRepo repository.WeatherRepository) *weatherDomain {
	return &weatherDomain{weatherRepo: weatherRepo}
}

func (d *weatherDomain) CreateRound(
	ctx context.Context, req *model.CreateWeatherRoundRequest,
) (*model.CreateWeatherRoundResponse, error) {
	if req.StartTime.After(req.EndTime) {
		return nil, errorx.New(errorx.BadRequest, "Invalid round time")
	}

	_, err := d.weatherRepo.GetActiveRound(ctx)
	if err == nil {
		return nil, errorx.New(errorx.Unavailable, "Still have an active round")
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot check the active round: %v", err)
		return nil, errorx.Unknown
	}

	roundNumber := int64(1)
	lastRound, err := d.weatherRepo.GetLastRound(ctx)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get the last round: %v", err)
		return nil, errorx.Unknown
	}

	if err == nil {
		roundNumber = lastRound.RoundNumber + 1
	}

	cfg := xcontext.Configs(ctx).WeatherPool
	round := &entity.WeatherRound{
		Base:        entity.Base{ID: uuid.NewString()},
		RoundNumber: roundNumber,
		Status:      entity.RoundActive,
		HouseBase:   cfg.HouseBase,
		TotalPool:   cfg.HouseBase,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}

	if err := d.weatherRepo.CreateRound(ctx, round); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create round: %v", err)
		return nil, errorx.Unknown
	}

	return &model.CreateWeatherRoundResponse{Round: model.ConvertWeatherRound(round)}, nil
}

func (d *weatherDomain) GetRound(
	ctx context.Context, req *model.GetWeatherRoundRequest,
) (*model.GetWeatherRoundResponse, error) {
	round, err := d.getRound(ctx, req.RoundID)
	if err != nil {
		return nil, err
	}

	return &model.GetWeatherRoundResponse{Round: model.ConvertWeatherRound(round)}, nil
}

func (d *weatherDomain) BuyTickets(
	ctx context.Context, req *model.BuyWeatherTicketsRequest,
) (*model.BuyWeatherTicketsResponse, error) {
	side, err := enum.ToEnum[entity.WeatherSideType](req.Side)
	if err != nil {
		return nil, errorx.New(errorx.BadRequest, "Invalid side %s", req.Side)
	}

	if req.Quantity == 0 {
		return nil, errorx.New(errorx.BadRequest, "Quantity must be a positive number")
	}

	round, err := d.weatherRepo.GetActiveRound(ctx)
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

	cfg := xcontext.Configs(ctx).WeatherPool
	ticket := &entity.WeatherTicket{
		SnowFlakeBase: entity.SnowFlakeBase{ID: xcontext.SnowFlake(ctx).Generate().Int64()},
		RoundID:       round.ID,
		PlayerID:      xcontext.RequestUserID(ctx),
		Side:          side,
		Quantity:      req.Quantity,
		TotalCost:     cfg.UnitPrice * req.Quantity,
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.weatherRepo.CreateTickets(ctx, []*entity.WeatherTicket{ticket}); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create ticket: %v", err)
		return nil, errorx.Unknown
	}

	err = d.weatherRepo.AccruePool(ctx, round.ID, ticket.TotalCost, side, req.Quantity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NoActiveRound, "The round was just drawn")
		}

		xcontext.Logger(ctx).Errorf("Cannot accrue pool: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(ctx)

	return &model.BuyWeatherTicketsResponse{Ticket: model.ConvertWeatherTicket(ticket)}, nil
}

// Draw settles the pari-mutuel pool. Winners split the pool after the
// treasury cut and the house base, proportionally to their ticket quantity,
// floored. Every remainder unit goes to the treasury so that
// payouts + treasury + houseBase = totalPool exactly.
func (d *weatherDomain) Draw(
	ctx context.Context, req *model.DrawWeatherRoundRequest,
) (*model.DrawWeatherRoundResponse, error) {
	winningSide, err := enum.ToEnum[entity.WeatherSideType](req.WinningSide)
	if err != nil {
		return nil, errorx.New(errorx.BadRequest, "Invalid winning side %s", req.WinningSide)
	}

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

	cfg := xcontext.Configs(ctx).WeatherPool

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	winningTickets, err := d.weatherRepo.GetTicketsBySide(ctx, round.ID, winningSide)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get winning tickets: %v", err)
		return nil, errorx.Unknown
	}

	treasuryCut := round.TotalPool * cfg.TreasuryRateBps / 10000
	winnersPool := round.TotalPool - treasuryCut - round.HouseBase

	quantityByPlayer := map[string]uint64{}
	var totalWinningQuantity uint64
	for _, ticket := range winningTickets {
		quantityByPlayer[ticket.PlayerID] += ticket.Quantity
		totalWinningQuantity += ticket.Quantity
	}

	payouts := map[string]uint64{}
	var paidOut uint64
	if totalWinningQuantity > 0 {
		for playerID, quantity := range quantityByPlayer {
			payout := winnersPool * quantity / totalWinningQuantity
			payouts[playerID] = payout
			paidOut += payout
		}
	}

	// Nobody on the winning side means the winners pool is retained, not
	// redistributed to the losing side.
	treasuryAmount := treasuryCut + (winnersPool - paidOut)

	err = d.weatherRepo.CompleteRound(ctx, round.ID, winningSide, treasuryAmount)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.RoundAlreadyDrawn, "The round is already drawn")
		}

		xcontext.Logger(ctx).Errorf("Cannot complete round: %v", err)
		return nil, errorx.Unknown
	}

	playerIDs := make([]string, 0, len(payouts))
	for playerID := range payouts {
		playerIDs = append(playerIDs, playerID)
	}
	sort.Strings(playerIDs)

	var claims []model.WeatherClaim
	for _, playerID := range playerIDs {
		if payouts[playerID] == 0 {
			continue
		}

		claim := &entity.WeatherClaim{
			Base:         entity.Base{ID: uuid.NewString()},
			RoundID:      round.ID,
			PlayerID:     playerID,
			PayoutAmount: payouts[playerID],
			Status:       entity.ClaimPending,
		}

		if err := d.weatherRepo.CreateClaim(ctx, claim); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot create claim: %v", err)
			return nil, errorx.Unknown
		}

		claims = append(claims, model.ConvertWeatherClaim(claim))
	}

	xcontext.WithCommitDBTransaction(ctx)

	round.Status = entity.RoundCompleted
	round.WinningSide = sql.NullString{String: string(winningSide), Valid: true}
	round.TreasuryAmount += treasuryAmount

	return &model.DrawWeatherRoundResponse{
		Round:  model.ConvertWeatherRound(round),
		Claims: claims,
	}, nil
}

func (d *weatherDomain) GetClaims(
	ctx context.Context, req *model.GetWeatherClaimsRequest,
) (*model.GetWeatherClaimsResponse, error) {
	if req.RoundID == "" && req.PlayerID == "" {
		return nil, errorx.New(errorx.BadRequest, "Require either a round id or a player id")
	}

	var claims []entity.WeatherClaim
	var err error
	if req.RoundID != "" {
		claims, err = d.weatherRepo.GetClaimsByRoundID(ctx, req.RoundID)
	} else {
		claims, err = d.weatherRepo.GetClaimsByPlayerID(ctx, req.PlayerID)
	}
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get claims: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.GetWeatherClaimsResponse{}
	for i := range claims {
		resp.Claims = append(resp.Claims, model.ConvertWeatherClaim(&claims[i]))
	}

	return resp, nil
}

func (d *weatherDomain) getRound(ctx context.Context, roundID string) (*entity.WeatherRound, error) {
	round, err := d.weatherRepo.GetRoundByID(ctx, roundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found round")
		}

		xcontext.Logger(ctx).Errorf("Cannot get round: %v", err)
		return nil, errorx.Unknown
	}

	return round, nil
}
