package testutil

import (
	"context"
	"time"

	"github.com/chesscast/backend/internal/entity"
	"github.com/chesscast/backend/internal/repository"
	"github.com/chesscast/backend/pkg/xcontext"
)

const (
	User1 = "user1"
	User2 = "user2"
)

var (
	Campaign1 = &entity.Campaign{
		Base:            entity.Base{ID: "campaign1"},
		OwnerID:         User1,
		RewardPerShare:  100,
		TotalBudget:     1000,
		RemainingBudget: 1000,
		Status:          entity.CampaignActive,
	}

	Campaign2 = &entity.Campaign{
		Base:            entity.Base{ID: "campaign2"},
		OwnerID:         User1,
		RewardPerShare:  100,
		TotalBudget:     1000,
		RemainingBudget: 1000,
		Status:          entity.CampaignPaused,
	}

	LotteryRound1 = &entity.LotteryRound{
		Base:        entity.Base{ID: "lottery_round1"},
		RoundNumber: 1,
		Status:      entity.RoundActive,
		Jackpot:     10000,
	}

	WeatherRound1 = &entity.WeatherRound{
		Base:        entity.Base{ID: "weather_round1"},
		RoundNumber: 1,
		Status:      entity.RoundActive,
		HouseBase:   1000,
		TotalPool:   1000,
	}
)

func CreateFixtureDb(ctx context.Context) {
	if err := entity.MigrateTable(xcontext.DB(ctx)); err != nil {
		panic(err)
	}

	insertCampaigns(ctx)
	insertRounds(ctx)
}

func insertCampaigns(ctx context.Context) {
	campaignRepo := repository.NewCampaignRepository()

	for _, campaign := range []entity.Campaign{*Campaign1, *Campaign2} {
		c := campaign
		if err := campaignRepo.Create(ctx, &c); err != nil {
			panic(err)
		}
	}
}

func insertRounds(ctx context.Context) {
	lotteryRepo := repository.NewLotteryRepository()
	weatherRepo := repository.NewWeatherRepository()

	lotteryRound := *LotteryRound1
	lotteryRound.StartTime = time.Now().Add(-time.Hour)
	lotteryRound.EndTime = time.Now().Add(time.Hour)
	if err := lotteryRepo.CreateRound(ctx, &lotteryRound); err != nil {
		panic(err)
	}

	weatherRound := *WeatherRound1
	weatherRound.StartTime = time.Now().Add(-time.Hour)
	weatherRound.EndTime = time.Now().Add(time.Hour)
	if err := weatherRepo.CreateRound(ctx, &weatherRound); err != nil {
		panic(err)
	}
}
