package model

import (
	"time"

	"github.com/chesscast/backend/internal/entity"
)

const DefaultTimeLayout string = time.RFC3339Nano

func ConvertCampaign(campaign *entity.Campaign) Campaign {
	if campaign == nil {
		return Campaign{}
	}

	return Campaign{
		ID:              campaign.ID,
		OwnerID:         campaign.OwnerID,
		RewardPerShare:  campaign.RewardPerShare,
		TotalBudget:     campaign.TotalBudget,
		RemainingBudget: campaign.RemainingBudget,
		SharesCount:     campaign.SharesCount,
		Status:          string(campaign.Status),
		CreatedAt:       campaign.CreatedAt.Format(DefaultTimeLayout),
	}
}

func ConvertShareEvent(event *entity.ShareEvent) ShareEvent {
	if event == nil {
		return ShareEvent{}
	}

	return ShareEvent{
		ID:           event.ID,
		CampaignID:   event.CampaignID,
		UserID:       event.UserID,
		RewardAmount: event.RewardAmount,
		CreatedAt:    event.CreatedAt.Format(DefaultTimeLayout),
	}
}

func ConvertLotteryRound(round *entity.LotteryRound) LotteryRound {
	if round == nil {
		return LotteryRound{}
	}

	return LotteryRound{
		ID:             round.ID,
		RoundNumber:    round.RoundNumber,
		Status:         string(round.Status),
		Jackpot:        round.Jackpot,
		CarryOver:      round.CarryOver,
		TreasuryAmount: round.TreasuryAmount,
		WinningNumber:  int(round.WinningNumber.Int32),
		StartTime:      round.StartTime,
		EndTime:        round.EndTime,
	}
}

func ConvertLotteryTicket(ticket *entity.LotteryTicket) LotteryTicket {
	if ticket == nil {
		return LotteryTicket{}
	}

	return LotteryTicket{
		ID:            ticket.ID,
		RoundID:       ticket.RoundID,
		PlayerID:      ticket.PlayerID,
		Number:        ticket.Number,
		PurchasePrice: ticket.PurchasePrice,
	}
}

func ConvertLotteryWinning(winning *entity.LotteryWinning) LotteryWinning {
	if winning == nil {
		return LotteryWinning{}
	}

	result := LotteryWinning{
		ID:        winning.ID,
		RoundID:   winning.RoundID,
		TicketID:  winning.TicketID,
		PlayerID:  winning.PlayerID,
		AmountWon: winning.AmountWon,
		Status:    string(winning.Status),
	}

	if winning.ClaimedAt.Valid {
		result.ClaimedAt = winning.ClaimedAt.Time.Format(DefaultTimeLayout)
	}

	if winning.TransactionHash.Valid {
		result.TransactionHash = winning.TransactionHash.String
	}

	return result
}

func ConvertWeatherRound(round *entity.WeatherRound) WeatherRound {
	if round == nil {
		return WeatherRound{}
	}

	return WeatherRound{
		ID:             round.ID,
		RoundNumber:    round.RoundNumber,
		Status:         string(round.Status),
		HouseBase:      round.HouseBase,
		TotalPool:      round.TotalPool,
		SunnyQuantity:  round.SunnyQuantity,
		RainyQuantity:  round.RainyQuantity,
		TreasuryAmount: round.TreasuryAmount,
		WinningSide:    round.WinningSide.String,
		StartTime:      round.StartTime,
		EndTime:        round.EndTime,
	}
}

func ConvertWeatherTicket(ticket *entity.WeatherTicket) WeatherTicket {
	if ticket == nil {
		return WeatherTicket{}
	}

	return WeatherTicket{
		ID:        ticket.ID,
		RoundID:   ticket.RoundID,
		PlayerID:  ticket.PlayerID,
		Side:      string(ticket.Side),
		Quantity:  ticket.Quantity,
		TotalCost: ticket.TotalCost,
	}
}

func ConvertWeatherClaim(claim *entity.WeatherClaim) WeatherClaim {
	if claim == nil {
		return WeatherClaim{}
	}

	result := WeatherClaim{
		ID:           claim.ID,
		RoundID:      claim.RoundID,
		PlayerID:     claim.PlayerID,
		PayoutAmount: claim.PayoutAmount,
		Status:       string(claim.Status),
	}

	if claim.ClaimedAt.Valid {
		result.ClaimedAt = claim.ClaimedAt.Time.Format(DefaultTimeLayout)
	}

	if claim.TransactionHash.Valid {
		result.TransactionHash = claim.TransactionHash.String
	}

	return result
}
