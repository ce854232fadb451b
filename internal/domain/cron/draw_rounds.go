package cron

import (
	"context"
	"time"

	"github.com/chesscast/backend/internal/domain"
	"github.com/chesscast/backend/internal/model"
	"github.com/chesscast/backend/internal/repository"
	"github.com/chesscast/backend/pkg/xcontext"
)

// DrawLotteryCronJob closes the active lottery round once its end time has
// passed. Rounds stay drawable manually, the job only removes the need for an
// operator to watch the clock.
type DrawLotteryCronJob struct {
	lotteryRepo   repository.LotteryRepository
	lotteryDomain domain.LotteryDomain
}

func NewDrawLotteryCronJob(
	lotteryRepo repository.LotteryRepository,
	lotteryDomain domain.LotteryDomain,
) *DrawLotteryCronJob {
	return &DrawLotteryCronJob{
		lotteryRepo:   lotteryRepo,
		lotteryDomain: lotteryDomain,
	}
}

func (job *DrawLotteryCronJob) Do(ctx context.Context) {
	round, err := job.lotteryRepo.GetActiveRound(ctx)
	if err != nil {
		return
	}

	if time.Now().Before(round.EndTime) {
		return
	}

	_, err = job.lotteryDomain.Draw(ctx, &model.DrawLotteryRoundRequest{RoundID: round.ID})
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot draw the overdue round %s: %v", round.ID, err)
	}
}

func (job *DrawLotteryCronJob) RunNow() bool {
	return true
}

func (job *DrawLotteryCronJob) Next() time.Time {
	return time.Now().Add(time.Minute)
}
