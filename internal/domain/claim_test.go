package domain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/chesscast/backend/internal/entity"
	"github.com/chesscast/backend/internal/model"
	"github.com/chesscast/backend/internal/repository"
	"github.com/chesscast/backend/pkg/blockchain/eth"
	"github.com/chesscast/backend/pkg/errorx"
	"github.com/chesscast/backend/pkg/testutil"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

const testRecipient = "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"

func newTestClaimDomain(t *testing.T) (*claimDomain, *testutil.MockClaimCaller, *testutil.MockPublisher) {
	signer, err := eth.NewClaimSigner(testutil.SignerPrivateKey)
	require.NoError(t, err)

	caller := &testutil.MockClaimCaller{Wallet: signer.Address()}
	publisher := &testutil.MockPublisher{}

	claimDomain := NewClaimDomain(
		repository.NewCampaignRepository(),
		repository.NewShareClaimRepository(),
		repository.NewLotteryRepository(),
		repository.NewWeatherRepository(),
		caller,
		signer,
		publisher,
		nil,
	)

	return claimDomain, caller, publisher
}

func recordShare(t *testing.T, ctx context.Context, userID string) {
	promotionDomain := NewPromotionDomain(repository.NewCampaignRepository())
	userCtx := testutil.NewMockContextWithUserID(ctx, userID)
	_, err := promotionDomain.RecordShare(userCtx, &model.RecordShareRequest{
		CampaignID: testutil.Campaign1.ID,
	})
	require.NoError(t, err)
}

func Test_claimDomain_IssueClaim_aggregatesShares(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	claimDomain, _, _ := newTestClaimDomain(t)
	recordShare(t, ctx, testutil.User2)

	userCtx := testutil.NewMockContextWithUserID(ctx, testutil.User2)
	resp, err := claimDomain.IssueClaim(userCtx, &model.IssueClaimRequest{
		ClaimType: "share",
		Address:   testRecipient,
	})
	require.NoError(t, err)
	require.Equal(t, testutil.Campaign1.RewardPerShare, resp.Amount)
	require.Equal(t, "0", resp.Nonce)
	require.Len(t, resp.Signature, 2+65*2)

	// Every share event is now bound to the claim, so a second aggregation
	// finds nothing.
	_, err = claimDomain.IssueClaim(userCtx, &model.IssueClaimRequest{
		ClaimType: "share",
		Address:   testRecipient,
	})
	require.Error(t, err)
	require.Equal(t, errorx.NotFound, err.(errorx.Error).Code)
}

func Test_claimDomain_IssueClaim_lotteryInFlight(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	claimDomain, _, _ := newTestClaimDomain(t)

	lotteryRepo := repository.NewLotteryRepository()
	winning := &entity.LotteryWinning{
		Base:      entity.Base{ID: "winning1"},
		RoundID:   testutil.LotteryRound1.ID,
		TicketID:  1,
		PlayerID:  testutil.User1,
		AmountWon: 5000,
		Status:    entity.ClaimPending,
	}
	require.NoError(t, lotteryRepo.CreateWinning(ctx, winning))

	userCtx := testutil.NewMockContextWithUserID(ctx, testutil.User1)
	resp, err := claimDomain.IssueClaim(userCtx, &model.IssueClaimRequest{
		ClaimType: "lottery",
		ClaimID:   winning.ID,
		Address:   testRecipient,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(5000), resp.Amount)

	// The claim stays provisionally locked until it is settled or the lock
	// expires.
	_, err = claimDomain.IssueClaim(userCtx, &model.IssueClaimRequest{
		ClaimType: "lottery",
		ClaimID:   winning.ID,
		Address:   testRecipient,
	})
	require.Error(t, err)
	require.Equal(t, errorx.ClaimInFlight, err.(errorx.Error).Code)
}

func Test_claimDomain_IssueClaim_concurrentSingleWinner(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	claimDomain, _, _ := newTestClaimDomain(t)

	lotteryRepo := repository.NewLotteryRepository()
	winning := &entity.LotteryWinning{
		Base:      entity.Base{ID: "winning1"},
		RoundID:   testutil.LotteryRound1.ID,
		TicketID:  1,
		PlayerID:  testutil.User1,
		AmountWon: 5000,
		Status:    entity.ClaimPending,
	}
	require.NoError(t, lotteryRepo.CreateWinning(ctx, winning))

	// Two simultaneous claims for the same winning, exactly one gets the
	// provisional lock.
	userCtx := testutil.NewMockContextWithUserID(ctx, testutil.User1)
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := claimDomain.IssueClaim(userCtx, &model.IssueClaimRequest{
				ClaimType: "lottery",
				ClaimID:   winning.ID,
				Address:   testRecipient,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded int
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}

		require.Equal(t, errorx.ClaimInFlight, err.(errorx.Error).Code)
	}
	require.Equal(t, 1, succeeded)
}

func Test_claimDomain_IssueClaim_ownership(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	claimDomain, _, _ := newTestClaimDomain(t)

	lotteryRepo := repository.NewLotteryRepository()
	winning := &entity.LotteryWinning{
		Base:      entity.Base{ID: "winning1"},
		RoundID:   testutil.LotteryRound1.ID,
		TicketID:  1,
		PlayerID:  testutil.User1,
		AmountWon: 5000,
		Status:    entity.ClaimPending,
	}
	require.NoError(t, lotteryRepo.CreateWinning(ctx, winning))

	strangerCtx := testutil.NewMockContextWithUserID(ctx, testutil.User2)
	_, err := claimDomain.IssueClaim(strangerCtx, &model.IssueClaimRequest{
		ClaimType: "lottery",
		ClaimID:   winning.ID,
		Address:   testRecipient,
	})
	require.Error(t, err)
	require.Equal(t, errorx.PermissionDenied, err.(errorx.Error).Code)
}

func Test_claimDomain_IssueClaim_releasesOnChainFailure(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	claimDomain, caller, _ := newTestClaimDomain(t)
	caller.NoncesFunc = func(context.Context, common.Address) (*big.Int, error) {
		return nil, errors.New("rpc is down")
	}

	lotteryRepo := repository.NewLotteryRepository()
	winning := &entity.LotteryWinning{
		Base:      entity.Base{ID: "winning1"},
		RoundID:   testutil.LotteryRound1.ID,
		TicketID:  1,
		PlayerID:  testutil.User1,
		AmountWon: 5000,
		Status:    entity.ClaimPending,
	}
	require.NoError(t, lotteryRepo.CreateWinning(ctx, winning))

	userCtx := testutil.NewMockContextWithUserID(ctx, testutil.User1)
	_, err := claimDomain.IssueClaim(userCtx, &model.IssueClaimRequest{
		ClaimType: "lottery",
		ClaimID:   winning.ID,
		Address:   testRecipient,
	})
	require.Error(t, err)
	require.Equal(t, errorx.ExternalChainReadFailure, err.(errorx.Error).Code)

	// The provisional lock was released, so the claim is retryable once the
	// chain recovers.
	caller.NoncesFunc = nil
	_, err = claimDomain.IssueClaim(userCtx, &model.IssueClaimRequest{
		ClaimType: "lottery",
		ClaimID:   winning.ID,
		Address:   testRecipient,
	})
	require.NoError(t, err)
}

func Test_claimDomain_RecordSettlement_idempotent(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	claimDomain, _, publisher := newTestClaimDomain(t)

	lotteryRepo := repository.NewLotteryRepository()
	winning := &entity.LotteryWinning{
		Base:      entity.Base{ID: "winning1"},
		RoundID:   testutil.LotteryRound1.ID,
		TicketID:  1,
		PlayerID:  testutil.User1,
		AmountWon: 5000,
		Status:    entity.ClaimPending,
	}
	require.NoError(t, lotteryRepo.CreateWinning(ctx, winning))

	txHash := "0x112233"
	_, err := claimDomain.RecordSettlement(ctx, &model.RecordSettlementRequest{
		ClaimType:       "lottery",
		ClaimID:         winning.ID,
		TransactionHash: txHash,
	})
	require.NoError(t, err)
	require.Len(t, publisher.Published, 1)

	// Recording the same transaction again is a no-op.
	_, err = claimDomain.RecordSettlement(ctx, &model.RecordSettlementRequest{
		ClaimType:       "lottery",
		ClaimID:         winning.ID,
		TransactionHash: txHash,
	})
	require.NoError(t, err)
	require.Len(t, publisher.Published, 1)

	// A different transaction for the same claim is a conflict.
	_, err = claimDomain.RecordSettlement(ctx, &model.RecordSettlementRequest{
		ClaimType:       "lottery",
		ClaimID:         winning.ID,
		TransactionHash: "0xdeadbeef",
	})
	require.Error(t, err)
	require.Equal(t, errorx.SettlementConflict, err.(errorx.Error).Code)
}

func Test_claimDomain_RecordSettlement_hashCollision(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	claimDomain, _, _ := newTestClaimDomain(t)

	lotteryRepo := repository.NewLotteryRepository()
	for _, id := range []string{"winning1", "winning2"} {
		winning := &entity.LotteryWinning{
			Base:      entity.Base{ID: id},
			RoundID:   testutil.LotteryRound1.ID,
			TicketID:  1,
			PlayerID:  testutil.User1,
			AmountWon: 5000,
			Status:    entity.ClaimPending,
		}
		require.NoError(t, lotteryRepo.CreateWinning(ctx, winning))
	}

	txHash := "0x112233"
	_, err := claimDomain.RecordSettlement(ctx, &model.RecordSettlementRequest{
		ClaimType:       "lottery",
		ClaimID:         "winning1",
		TransactionHash: txHash,
	})
	require.NoError(t, err)

	// The same transaction cannot settle a second claim.
	_, err = claimDomain.RecordSettlement(ctx, &model.RecordSettlementRequest{
		ClaimType:       "lottery",
		ClaimID:         "winning2",
		TransactionHash: txHash,
	})
	require.Error(t, err)
	require.Equal(t, errorx.SettlementConflict, err.(errorx.Error).Code)

	fresh, err := lotteryRepo.GetWinningByID(ctx, "winning2")
	require.NoError(t, err)
	require.Equal(t, entity.ClaimPending, fresh.Status)
	require.False(t, fresh.ClaimedAt.Valid)
}

func Test_claimDomain_ResetClaim(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	claimDomain, caller, _ := newTestClaimDomain(t)

	lotteryRepo := repository.NewLotteryRepository()
	winning := &entity.LotteryWinning{
		Base:      entity.Base{ID: "winning1"},
		RoundID:   testutil.LotteryRound1.ID,
		TicketID:  1,
		PlayerID:  testutil.User1,
		AmountWon: 5000,
		Status:    entity.ClaimPending,
	}
	require.NoError(t, lotteryRepo.CreateWinning(ctx, winning))

	_, err := claimDomain.RecordSettlement(ctx, &model.RecordSettlementRequest{
		ClaimType:       "lottery",
		ClaimID:         winning.ID,
		TransactionHash: "0xabc",
	})
	require.NoError(t, err)

	// The recorded transaction succeeded on-chain, reset must refuse.
	caller.TransactionReceiptFunc = func(context.Context, common.Hash) (*ethtypes.Receipt, error) {
		return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful}, nil
	}
	_, err = claimDomain.ResetClaim(ctx, &model.ResetClaimRequest{
		ClaimType: "lottery",
		ClaimID:   winning.ID,
	})
	require.Error(t, err)
	require.Equal(t, errorx.AlreadyClaimed, err.(errorx.Error).Code)

	// No receipt on-chain, the settlement was recorded by mistake.
	caller.TransactionReceiptFunc = nil
	_, err = claimDomain.ResetClaim(ctx, &model.ResetClaimRequest{
		ClaimType: "lottery",
		ClaimID:   winning.ID,
	})
	require.NoError(t, err)

	fresh, err := lotteryRepo.GetWinningByID(ctx, winning.ID)
	require.NoError(t, err)
	require.Equal(t, entity.ClaimPending, fresh.Status)
	require.False(t, fresh.ClaimedAt.Valid)
	require.False(t, fresh.TransactionHash.Valid)
}

func Test_claimDomain_HealthCheck_haltsOnSignerMismatch(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	claimDomain, caller, _ := newTestClaimDomain(t)
	caller.Wallet = common.HexToAddress("0x00000000000000000000000000000000000000ff")

	err := claimDomain.HealthCheck(ctx)
	require.Error(t, err)

	recordShare(t, ctx, testutil.User2)
	userCtx := testutil.NewMockContextWithUserID(ctx, testutil.User2)
	_, err = claimDomain.IssueClaim(userCtx, &model.IssueClaimRequest{
		ClaimType: "share",
		Address:   testRecipient,
	})
	require.Error(t, err)
	require.Equal(t, errorx.Unavailable, err.(errorx.Error).Code)
}
