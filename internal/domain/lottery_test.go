package domain

import (
	"testing"
	"time"

	"github.com/chesscast/backend/internal/model"
	"github.com/chesscast/backend/internal/repository"
	"github.com/chesscast/backend/pkg/errorx"
	"github.com/chesscast/backend/pkg/testutil"
	"github.com/chesscast/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func Test_lotteryDomain_BuyTickets(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	lotteryRepo := repository.NewLotteryRepository()
	lotteryDomain := NewLotteryDomain(lotteryRepo)

	playerCtx := testutil.NewMockContextWithUserID(ctx, testutil.User1)
	resp, err := lotteryDomain.BuyTickets(playerCtx, &model.BuyLotteryTicketsRequest{
		Number:   7,
		Quantity: 3,
	})
	require.NoError(t, err)
	require.Len(t, resp.Tickets, 3)

	round, err := lotteryRepo.GetRoundByID(ctx, testutil.LotteryRound1.ID)
	require.NoError(t, err)
	price := xcontext.Configs(ctx).Lottery.TicketPrice
	require.Equal(t, price*3, round.CarryOver)
}

func Test_lotteryDomain_BuyTickets_outOfRange(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	lotteryDomain := NewLotteryDomain(repository.NewLotteryRepository())
	playerCtx := testutil.NewMockContextWithUserID(ctx, testutil.User1)

	_, err := lotteryDomain.BuyTickets(playerCtx, &model.BuyLotteryTicketsRequest{
		Number:   0,
		Quantity: 1,
	})
	require.Error(t, err)
	require.Equal(t, errorx.TicketOutOfRange, err.(errorx.Error).Code)

	_, err = lotteryDomain.BuyTickets(playerCtx, &model.BuyLotteryTicketsRequest{
		Number:   101,
		Quantity: 1,
	})
	require.Error(t, err)
	require.Equal(t, errorx.TicketOutOfRange, err.(errorx.Error).Code)
}

func Test_lotteryDomain_Draw_paysOutTheWholeJackpot(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	lotteryRepo := repository.NewLotteryRepository()
	lotteryDomain := NewLotteryDomain(lotteryRepo)

	// Cover every number so exactly one ticket wins whatever is drawn.
	playerCtx := testutil.NewMockContextWithUserID(ctx, testutil.User1)
	for number := 1; number <= 100; number++ {
		_, err := lotteryDomain.BuyTickets(playerCtx, &model.BuyLotteryTicketsRequest{
			Number:   number,
			Quantity: 1,
		})
		require.NoError(t, err)
	}

	resp, err := lotteryDomain.Draw(playerCtx, &model.DrawLotteryRoundRequest{
		RoundID: testutil.LotteryRound1.ID,
		Force:   true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Winnings, 1)
	require.Equal(t, testutil.LotteryRound1.Jackpot, resp.Winnings[0].AmountWon)
	require.Equal(t, testutil.User1, resp.Winnings[0].PlayerID)

	round, err := lotteryRepo.GetRoundByID(ctx, testutil.LotteryRound1.ID)
	require.NoError(t, err)
	require.True(t, round.WinningNumber.Valid)
	require.GreaterOrEqual(t, round.WinningNumber.Int32, int32(1))
	require.LessOrEqual(t, round.WinningNumber.Int32, int32(100))
	require.Equal(t, uint64(0), round.TreasuryAmount)

	// The winning shows up in both the round and the player listing.
	byRound, err := lotteryDomain.GetWinnings(ctx, &model.GetLotteryWinningsRequest{
		RoundID: testutil.LotteryRound1.ID,
	})
	require.NoError(t, err)
	require.Len(t, byRound.Winnings, 1)

	byPlayer, err := lotteryDomain.GetWinnings(ctx, &model.GetLotteryWinningsRequest{
		PlayerID: testutil.User1,
	})
	require.NoError(t, err)
	require.Len(t, byPlayer.Winnings, 1)

	_, err = lotteryDomain.GetWinnings(ctx, &model.GetLotteryWinningsRequest{})
	require.Error(t, err)
	require.Equal(t, errorx.BadRequest, err.(errorx.Error).Code)
}

func Test_lotteryDomain_Draw_twiceFails(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	lotteryDomain := NewLotteryDomain(repository.NewLotteryRepository())

	_, err := lotteryDomain.Draw(ctx, &model.DrawLotteryRoundRequest{
		RoundID: testutil.LotteryRound1.ID,
		Force:   true,
	})
	require.NoError(t, err)

	_, err = lotteryDomain.Draw(ctx, &model.DrawLotteryRoundRequest{
		RoundID: testutil.LotteryRound1.ID,
		Force:   true,
	})
	require.Error(t, err)
	require.Equal(t, errorx.RoundAlreadyDrawn, err.(errorx.Error).Code)
}

func Test_lotteryDomain_Draw_beforeEndTime(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	lotteryDomain := NewLotteryDomain(repository.NewLotteryRepository())

	_, err := lotteryDomain.Draw(ctx, &model.DrawLotteryRoundRequest{
		RoundID: testutil.LotteryRound1.ID,
	})
	require.Error(t, err)
	require.Equal(t, errorx.Unavailable, err.(errorx.Error).Code)
}

func Test_lotteryDomain_CreateRound_rollsOverUnwonJackpot(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	lotteryDomain := NewLotteryDomain(repository.NewLotteryRepository())

	// Tickets sit on a single number, so the jackpot usually rolls over.
	// The expectation below covers both outcomes of the draw.
	playerCtx := testutil.NewMockContextWithUserID(ctx, testutil.User1)
	_, err := lotteryDomain.BuyTickets(playerCtx, &model.BuyLotteryTicketsRequest{
		Number:   7,
		Quantity: 10,
	})
	require.NoError(t, err)

	cfg := xcontext.Configs(ctx).Lottery
	revenue := cfg.TicketPrice * 10

	drawResp, err := lotteryDomain.Draw(ctx, &model.DrawLotteryRoundRequest{
		RoundID: testutil.LotteryRound1.ID,
		Force:   true,
	})
	require.NoError(t, err)

	createResp, err := lotteryDomain.CreateRound(ctx, &model.CreateLotteryRoundRequest{
		StartTime: time.Now(),
		EndTime:   time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), createResp.Round.RoundNumber)

	expected := cfg.BaseJackpot + revenue*cfg.CarryOverRateBps/10000
	if len(drawResp.Winnings) == 0 {
		expected += testutil.LotteryRound1.Jackpot
	}

	require.Equal(t, expected, createResp.Round.Jackpot)
}

func Test_lotteryDomain_CreateRound_refusesWhileActive(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	lotteryDomain := NewLotteryDomain(repository.NewLotteryRepository())

	_, err := lotteryDomain.CreateRound(ctx, &model.CreateLotteryRoundRequest{
		StartTime: time.Now(),
		EndTime:   time.Now().Add(time.Hour),
	})
	require.Error(t, err)
	require.Equal(t, errorx.Unavailable, err.(errorx.Error).Code)
}
