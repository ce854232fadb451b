package main

import (
	"github.com/chesscast/backend/internal/domain/cron"
	"github.com/chesscast/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startCron(*cli.Context) error {
	s.loadConfig()
	s.loadLogger()
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.migrateDB()
	s.loadSnowFlake()
	s.loadRepos()
	s.loadDomains()

	cronJobManager := cron.NewCronJobManager()
	cronJobManager.Register(cron.NewDrawLotteryCronJob(s.lotteryRepo, s.lotteryDomain))
	cronJobManager.Start(s.ctx)

	return nil
}
