package domain

import (
	"fmt"
	"sync"
	"testing"

	"github.com/chesscast/backend/internal/model"
	"github.com/chesscast/backend/internal/repository"
	"github.com/chesscast/backend/pkg/errorx"
	"github.com/chesscast/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func Test_promotionDomain_RecordShare(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	campaignRepo := repository.NewCampaignRepository()
	promotionDomain := NewPromotionDomain(campaignRepo)

	authorizedCtx := testutil.NewMockContextWithUserID(ctx, testutil.User2)
	resp, err := promotionDomain.RecordShare(authorizedCtx, &model.RecordShareRequest{
		CampaignID: testutil.Campaign1.ID,
	})
	require.NoError(t, err)
	require.Equal(t, testutil.Campaign1.RewardPerShare, resp.ShareEvent.RewardAmount)

	campaign, err := campaignRepo.GetByID(ctx, testutil.Campaign1.ID)
	require.NoError(t, err)
	require.Equal(t, testutil.Campaign1.TotalBudget-testutil.Campaign1.RewardPerShare,
		campaign.RemainingBudget)
	require.Equal(t, 1, campaign.SharesCount)
}

func Test_promotionDomain_RecordShare_cooldown(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	promotionDomain := NewPromotionDomain(repository.NewCampaignRepository())

	authorizedCtx := testutil.NewMockContextWithUserID(ctx, testutil.User2)
	_, err := promotionDomain.RecordShare(authorizedCtx, &model.RecordShareRequest{
		CampaignID: testutil.Campaign1.ID,
	})
	require.NoError(t, err)

	_, err = promotionDomain.RecordShare(authorizedCtx, &model.RecordShareRequest{
		CampaignID: testutil.Campaign1.ID,
	})
	require.Error(t, err)
	require.Equal(t, errorx.CooldownActive, err.(errorx.Error).Code)

	// The same user can still be rewarded by another campaign.
	resumeCtx := testutil.NewMockContextWithUserID(ctx, testutil.User1)
	_, err = promotionDomain.ResumeCampaign(resumeCtx, &model.ResumeCampaignRequest{
		CampaignID: testutil.Campaign2.ID,
	})
	require.NoError(t, err)

	_, err = promotionDomain.RecordShare(authorizedCtx, &model.RecordShareRequest{
		CampaignID: testutil.Campaign2.ID,
	})
	require.NoError(t, err)
}

func Test_promotionDomain_RecordShare_budgetExhausted(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	campaignRepo := repository.NewCampaignRepository()
	promotionDomain := NewPromotionDomain(campaignRepo)

	ownerCtx := testutil.NewMockContextWithUserID(ctx, testutil.User1)
	created, err := promotionDomain.CreateCampaign(ownerCtx, &model.CreateCampaignRequest{
		RewardPerShare: 100,
		TotalBudget:    100,
	})
	require.NoError(t, err)

	authorizedCtx := testutil.NewMockContextWithUserID(ctx, testutil.User2)
	_, err = promotionDomain.RecordShare(authorizedCtx, &model.RecordShareRequest{
		CampaignID: created.ID,
	})
	require.NoError(t, err)

	otherCtx := testutil.NewMockContextWithUserID(ctx, "user3")
	_, err = promotionDomain.RecordShare(otherCtx, &model.RecordShareRequest{
		CampaignID: created.ID,
	})
	require.Error(t, err)
	require.Equal(t, errorx.InsufficientBudget, err.(errorx.Error).Code)

	// The failed share never touched the ledger.
	campaign, err := campaignRepo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(0), campaign.RemainingBudget)
	require.Equal(t, 1, campaign.SharesCount)
}

func Test_promotionDomain_RecordShare_concurrentBudgetDrain(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	campaignRepo := repository.NewCampaignRepository()
	promotionDomain := NewPromotionDomain(campaignRepo)

	ownerCtx := testutil.NewMockContextWithUserID(ctx, testutil.User1)
	created, err := promotionDomain.CreateCampaign(ownerCtx, &model.CreateCampaignRequest{
		RewardPerShare: 100,
		TotalBudget:    500,
	})
	require.NoError(t, err)

	// Ten players race for a budget that covers five shares.
	errs := make(chan error, 10)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			playerCtx := testutil.NewMockContextWithUserID(ctx, fmt.Sprintf("player%d", i))
			_, err := promotionDomain.RecordShare(playerCtx, &model.RecordShareRequest{
				CampaignID: created.ID,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var succeeded int
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}

		require.Equal(t, errorx.InsufficientBudget, err.(errorx.Error).Code)
	}
	require.Equal(t, 5, succeeded)

	campaign, err := campaignRepo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(0), campaign.RemainingBudget)
	require.Equal(t, 5, campaign.SharesCount)
}

func Test_promotionDomain_RecordShare_concurrentSameUser(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	campaignRepo := repository.NewCampaignRepository()
	promotionDomain := NewPromotionDomain(campaignRepo)

	// The same user shares twice at once. The budget row lock is taken
	// before the cooldown count, so the loser must see the winner's event.
	authorizedCtx := testutil.NewMockContextWithUserID(ctx, testutil.User2)
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := promotionDomain.RecordShare(authorizedCtx, &model.RecordShareRequest{
				CampaignID: testutil.Campaign1.ID,
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

		require.Equal(t, errorx.CooldownActive, err.(errorx.Error).Code)
	}
	require.Equal(t, 1, succeeded)

	campaign, err := campaignRepo.GetByID(ctx, testutil.Campaign1.ID)
	require.NoError(t, err)
	require.Equal(t, testutil.Campaign1.TotalBudget-testutil.Campaign1.RewardPerShare,
		campaign.RemainingBudget)
	require.Equal(t, 1, campaign.SharesCount)
}

func Test_promotionDomain_RecordShare_pausedCampaign(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	promotionDomain := NewPromotionDomain(repository.NewCampaignRepository())

	authorizedCtx := testutil.NewMockContextWithUserID(ctx, testutil.User2)
	_, err := promotionDomain.RecordShare(authorizedCtx, &model.RecordShareRequest{
		CampaignID: testutil.Campaign2.ID,
	})
	require.Error(t, err)
	require.Equal(t, errorx.CampaignInactive, err.(errorx.Error).Code)
}

func Test_promotionDomain_PauseCampaign_permission(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	promotionDomain := NewPromotionDomain(repository.NewCampaignRepository())

	strangerCtx := testutil.NewMockContextWithUserID(ctx, testutil.User2)
	_, err := promotionDomain.PauseCampaign(strangerCtx, &model.PauseCampaignRequest{
		CampaignID: testutil.Campaign1.ID,
	})
	require.Error(t, err)
	require.Equal(t, errorx.PermissionDenied, err.(errorx.Error).Code)

	ownerCtx := testutil.NewMockContextWithUserID(ctx, testutil.User1)
	_, err = promotionDomain.PauseCampaign(ownerCtx, &model.PauseCampaignRequest{
		CampaignID: testutil.Campaign1.ID,
	})
	require.NoError(t, err)
}
