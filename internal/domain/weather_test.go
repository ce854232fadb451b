package domain

import (
	"testing"

	"github.com/chesscast/backend/internal/model"
	"github.com/chesscast/backend/internal/repository"
	"github.com/chesscast/backend/pkg/errorx"
	"github.com/chesscast/backend/pkg/testutil"
	"github.com/chesscast/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func Test_weatherDomain_BuyTickets(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	weatherRepo := repository.NewWeatherRepository()
	weatherDomain := NewWeatherDomain(weatherRepo)

	playerCtx := testutil.NewMockContextWithUserID(ctx, testutil.User1)
	resp, err := weatherDomain.BuyTickets(playerCtx, &model.BuyWeatherTicketsRequest{
		Side:     "sunny",
		Quantity: 5,
	})
	require.NoError(t, err)

	price := xcontext.Configs(ctx).WeatherPool.UnitPrice
	require.Equal(t, price*5, resp.Ticket.TotalCost)

	round, err := weatherRepo.GetRoundByID(ctx, testutil.WeatherRound1.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(5), round.SunnyQuantity)
	require.Equal(t, uint64(0), round.RainyQuantity)
	require.Equal(t, testutil.WeatherRound1.HouseBase+price*5, round.TotalPool)
}

func Test_weatherDomain_BuyTickets_invalidSide(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	weatherDomain := NewWeatherDomain(repository.NewWeatherRepository())
	playerCtx := testutil.NewMockContextWithUserID(ctx, testutil.User1)

	_, err := weatherDomain.BuyTickets(playerCtx, &model.BuyWeatherTicketsRequest{
		Side:     "cloudy",
		Quantity: 1,
	})
	require.Error(t, err)
	require.Equal(t, errorx.BadRequest, err.(errorx.Error).Code)
}

func Test_weatherDomain_Draw_poolIdentity(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	weatherRepo := repository.NewWeatherRepository()
	weatherDomain := NewWeatherDomain(weatherRepo)

	// Odd quantities force a floor remainder in the proportional split.
	buys := []struct {
		player   string
		side     string
		quantity uint64
	}{
		{testutil.User1, "sunny", 3},
		{testutil.User2, "sunny", 7},
		{"user3", "rainy", 11},
	}
	for _, buy := range buys {
		playerCtx := testutil.NewMockContextWithUserID(ctx, buy.player)
		_, err := weatherDomain.BuyTickets(playerCtx, &model.BuyWeatherTicketsRequest{
			Side:     buy.side,
			Quantity: buy.quantity,
		})
		require.NoError(t, err)
	}

	resp, err := weatherDomain.Draw(ctx, &model.DrawWeatherRoundRequest{
		RoundID:     testutil.WeatherRound1.ID,
		WinningSide: "sunny",
		Force:       true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Claims, 2)

	round, err := weatherRepo.GetRoundByID(ctx, testutil.WeatherRound1.ID)
	require.NoError(t, err)

	var payouts uint64
	for _, claim := range resp.Claims {
		payouts += claim.PayoutAmount
	}

	// Every unit of the pool is accounted for.
	require.Equal(t, round.TotalPool, payouts+round.TreasuryAmount+round.HouseBase)

	// Winners are paid proportionally to their quantity, floored.
	cfg := xcontext.Configs(ctx).WeatherPool
	treasuryCut := round.TotalPool * cfg.TreasuryRateBps / 10000
	winnersPool := round.TotalPool - treasuryCut - round.HouseBase
	for _, claim := range resp.Claims {
		switch claim.PlayerID {
		case testutil.User1:
			require.Equal(t, winnersPool*3/10, claim.PayoutAmount)
		case testutil.User2:
			require.Equal(t, winnersPool*7/10, claim.PayoutAmount)
		default:
			t.Fatalf("unexpected claim for player %s", claim.PlayerID)
		}
	}
}

func Test_weatherDomain_GetClaims(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	weatherDomain := NewWeatherDomain(repository.NewWeatherRepository())

	playerCtx := testutil.NewMockContextWithUserID(ctx, testutil.User1)
	_, err := weatherDomain.BuyTickets(playerCtx, &model.BuyWeatherTicketsRequest{
		Side:     "sunny",
		Quantity: 2,
	})
	require.NoError(t, err)

	_, err = weatherDomain.Draw(ctx, &model.DrawWeatherRoundRequest{
		RoundID:     testutil.WeatherRound1.ID,
		WinningSide: "sunny",
		Force:       true,
	})
	require.NoError(t, err)

	byRound, err := weatherDomain.GetClaims(ctx, &model.GetWeatherClaimsRequest{
		RoundID: testutil.WeatherRound1.ID,
	})
	require.NoError(t, err)
	require.Len(t, byRound.Claims, 1)

	byPlayer, err := weatherDomain.GetClaims(ctx, &model.GetWeatherClaimsRequest{
		PlayerID: testutil.User1,
	})
	require.NoError(t, err)
	require.Len(t, byPlayer.Claims, 1)
	require.Equal(t, testutil.User1, byPlayer.Claims[0].PlayerID)

	_, err = weatherDomain.GetClaims(ctx, &model.GetWeatherClaimsRequest{})
	require.Error(t, err)
	require.Equal(t, errorx.BadRequest, err.(errorx.Error).Code)
}

func Test_weatherDomain_Draw_noWinningTickets(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	weatherRepo := repository.NewWeatherRepository()
	weatherDomain := NewWeatherDomain(weatherRepo)

	playerCtx := testutil.NewMockContextWithUserID(ctx, testutil.User1)
	_, err := weatherDomain.BuyTickets(playerCtx, &model.BuyWeatherTicketsRequest{
		Side:     "rainy",
		Quantity: 4,
	})
	require.NoError(t, err)

	resp, err := weatherDomain.Draw(ctx, &model.DrawWeatherRoundRequest{
		RoundID:     testutil.WeatherRound1.ID,
		WinningSide: "sunny",
		Force:       true,
	})
	require.NoError(t, err)
	require.Empty(t, resp.Claims)

	// The whole winners pool is retained by the treasury.
	round, err := weatherRepo.GetRoundByID(ctx, testutil.WeatherRound1.ID)
	require.NoError(t, err)
	require.Equal(t, round.TotalPool, round.TreasuryAmount+round.HouseBase)
}

func Test_weatherDomain_Draw_twiceFails(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	weatherDomain := NewWeatherDomain(repository.NewWeatherRepository())

	_, err := weatherDomain.Draw(ctx, &model.DrawWeatherRoundRequest{
		RoundID:     testutil.WeatherRound1.ID,
		WinningSide: "rainy",
		Force:       true,
	})
	require.NoError(t, err)

	_, err = weatherDomain.Draw(ctx, &model.DrawWeatherRoundRequest{
		RoundID:     testutil.WeatherRound1.ID,
		WinningSide: "sunny",
		Force:       true,
	})
	require.Error(t, err)
	require.Equal(t, errorx.RoundAlreadyDrawn, err.(errorx.Error).Code)
}
