package main

import (
	"fmt"
	"net/http"

	"github.com/chesscast/backend/internal/middleware"
	"github.com/chesscast/backend/pkg/router"
	"github.com/chesscast/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(*cli.Context) error {
	s.loadConfig()
	s.loadLogger()
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.migrateDB()
	s.loadSnowFlake()
	s.loadRedisClient()
	s.loadPublisher()
	s.loadBlockchain()
	s.loadRepos()
	s.loadDomains()
	s.loadRouter()

	// Refuse to hand out signatures the contract would reject.
	if err := s.claimDomain.HealthCheck(s.ctx); err != nil {
		xcontext.Logger(s.ctx).Errorf("Start with claim issuance halted: %v", err)
	}

	cfg := xcontext.Configs(s.ctx)
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ApiServer.Port),
		Handler: s.router.Handler(),
	}

	xcontext.Logger(s.ctx).Infof("Starting server on port %s", cfg.ApiServer.Port)
	if err := s.server.ListenAndServe(); err != nil {
		panic(err)
	}

	return nil
}

func (s *srv) loadRouter() {
	s.router = router.New(s.ctx)
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.WithRequestUser())

	router.POST(s.router, "/createCampaign", s.promotionDomain.CreateCampaign)
	router.GET(s.router, "/getCampaign", s.promotionDomain.GetCampaign)
	router.POST(s.router, "/shareCampaign", s.promotionDomain.RecordShare)
	router.POST(s.router, "/pauseCampaign", s.promotionDomain.PauseCampaign)
	router.POST(s.router, "/resumeCampaign", s.promotionDomain.ResumeCampaign)

	router.POST(s.router, "/createLotteryRound", s.lotteryDomain.CreateRound)
	router.GET(s.router, "/getLotteryRound", s.lotteryDomain.GetRound)
	router.POST(s.router, "/buyLotteryTickets", s.lotteryDomain.BuyTickets)
	router.POST(s.router, "/drawLotteryRound", s.lotteryDomain.Draw)
	router.GET(s.router, "/getLotteryWinnings", s.lotteryDomain.GetWinnings)

	router.POST(s.router, "/createWeatherRound", s.weatherDomain.CreateRound)
	router.GET(s.router, "/getWeatherRound", s.weatherDomain.GetRound)
	router.POST(s.router, "/buyWeatherTickets", s.weatherDomain.BuyTickets)
	router.POST(s.router, "/drawWeatherRound", s.weatherDomain.Draw)
	router.GET(s.router, "/getWeatherClaims", s.weatherDomain.GetClaims)

	router.POST(s.router, "/issueClaim", s.claimDomain.IssueClaim)
	router.POST(s.router, "/recordSettlement", s.claimDomain.RecordSettlement)
	router.POST(s.router, "/resetClaim", s.claimDomain.ResetClaim)
}
