package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/chesscast/backend/config"
	"github.com/chesscast/backend/internal/domain"
	"github.com/chesscast/backend/internal/repository"
	"github.com/chesscast/backend/migration"
	"github.com/chesscast/backend/pkg/blockchain/eth"
	"github.com/chesscast/backend/pkg/kafka"
	"github.com/chesscast/backend/pkg/logger"
	"github.com/chesscast/backend/pkg/pubsub"
	"github.com/chesscast/backend/pkg/router"
	"github.com/chesscast/backend/pkg/xcontext"
	"github.com/chesscast/backend/pkg/xredis"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type srv struct {
	app *cli.App
	ctx context.Context

	campaignRepo   repository.CampaignRepository
	shareClaimRepo repository.ShareClaimRepository
	lotteryRepo    repository.LotteryRepository
	weatherRepo    repository.WeatherRepository

	promotionDomain domain.PromotionDomain
	lotteryDomain   domain.LotteryDomain
	weatherDomain   domain.WeatherDomain
	claimDomain     domain.ClaimDomain

	caller      eth.ClaimCaller
	signer      *eth.ClaimSigner
	publisher   pubsub.Publisher
	redisClient xredis.Client

	router *router.Router
	server *http.Server
}

func (s *srv) loadConfig() {
	chainCfg, err := config.LoadChainConfig(getEnv("CHAIN_CONFIG", "./chain.toml"))
	if err != nil {
		panic(err)
	}
	chainCfg.SignerPrivateKey = os.Getenv("SIGNER_PRIVATE_KEY")

	cfg := config.Configs{
		Env: getEnv("ENV", "local"),
		Database: config.DatabaseConfigs{
			Host:     getEnv("MYSQL_HOST", "localhost"),
			Port:     getEnv("MYSQL_PORT", "3306"),
			User:     getEnv("MYSQL_USER", "chesscast"),
			Password: getEnv("MYSQL_PASSWORD", "chesscast"),
			Database: getEnv("MYSQL_DATABASE", "chesscast"),
		},
		ApiServer: config.ServerConfigs{
			Host: getEnv("HOST", "localhost"),
			Port: getEnv("PORT", "8080"),
		},
		Redis: config.RedisConfigs{
			Addr: os.Getenv("REDIS_ADDR"),
		},
		Kafka: config.KafkaConfigs{
			Addr: getEnv("KAFKA_ADDR", "localhost:9092"),
		},
		Blockchain: chainCfg,
		Promotion: config.PromotionConfigs{
			ShareCooldown: getDuration("SHARE_COOLDOWN", 48*time.Hour),
		},
		Lottery: config.LotteryConfigs{
			TicketPrice:      getUint64("LOTTERY_TICKET_PRICE", 100),
			BaseJackpot:      getUint64("LOTTERY_BASE_JACKPOT", 10000),
			CarryOverRateBps: getUint64("LOTTERY_CARRY_OVER_RATE_BPS", 7000),
			MaxNumber:        100,
			MaxQuantity:      100,
		},
		WeatherPool: config.WeatherPoolConfigs{
			UnitPrice:       getUint64("WEATHER_UNIT_PRICE", 100),
			HouseBase:       getUint64("WEATHER_HOUSE_BASE", 10000),
			TreasuryRateBps: getUint64("WEATHER_TREASURY_RATE_BPS", 500),
		},
		Claim: config.ClaimConfigs{
			InFlightTimeout: getDuration("CLAIM_IN_FLIGHT_TIMEOUT", 10*time.Minute),
		},
		SnowFlakeNode: int64(getUint64("SNOWFLAKE_NODE", 0)),
	}

	s.ctx = xcontext.WithConfigs(context.Background(), cfg)
}

func (s *srv) loadLogger() {
	level := logger.INFO
	if xcontext.Configs(s.ctx).Env == "local" {
		level = logger.DEBUG
	}

	s.ctx = xcontext.WithLogger(s.ctx, logger.NewLogger(level))
}

func (s *srv) newDatabase() *gorm.DB {
	db, err := gorm.Open(mysql.Open(xcontext.Configs(s.ctx).Database.ConnectionString()), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	return db
}

func (s *srv) migrateDB() {
	if err := migration.Migrate(s.ctx); err != nil {
		panic(err)
	}
}

func (s *srv) loadSnowFlake() {
	node, err := snowflake.NewNode(xcontext.Configs(s.ctx).SnowFlakeNode)
	if err != nil {
		panic(err)
	}

	s.ctx = xcontext.WithSnowFlake(s.ctx, node)
}

func (s *srv) loadRepos() {
	s.campaignRepo = repository.NewCampaignRepository()
	s.shareClaimRepo = repository.NewShareClaimRepository()
	s.lotteryRepo = repository.NewLotteryRepository()
	s.weatherRepo = repository.NewWeatherRepository()
}

func (s *srv) loadPublisher() {
	cfg := xcontext.Configs(s.ctx)
	s.publisher = kafka.NewPublisher("chesscast-"+cfg.Env, []string{cfg.Kafka.Addr})
}

func (s *srv) loadRedisClient() {
	if xcontext.Configs(s.ctx).Redis.Addr == "" {
		return
	}

	redisClient, err := xredis.NewClient(s.ctx)
	if err != nil {
		panic(err)
	}

	s.redisClient = redisClient
}

func (s *srv) loadBlockchain() {
	cfg := xcontext.Configs(s.ctx).Blockchain

	caller, err := eth.NewClaimCaller(cfg)
	if err != nil {
		panic(err)
	}
	s.caller = caller

	signer, err := eth.NewClaimSigner(cfg.SignerPrivateKey)
	if err != nil {
		panic(err)
	}
	s.signer = signer
}

func (s *srv) loadDomains() {
	s.promotionDomain = domain.NewPromotionDomain(s.campaignRepo)
	s.lotteryDomain = domain.NewLotteryDomain(s.lotteryRepo)
	s.weatherDomain = domain.NewWeatherDomain(s.weatherRepo)
	s.claimDomain = domain.NewClaimDomain(
		s.campaignRepo,
		s.shareClaimRepo,
		s.lotteryRepo,
		s.weatherRepo,
		s.caller,
		s.signer,
		s.publisher,
		s.redisClient,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}

	return value
}

func getUint64(key string, fallback uint64) uint64 {
	value, err := strconv.ParseUint(os.Getenv(key), 10, 64)
	if err != nil {
		return fallback
	}

	return value
}
