package testutil

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/chesscast/backend/config"
	"github.com/chesscast/backend/pkg/logger"
	"github.com/chesscast/backend/pkg/xcontext"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func NewMockContext() context.Context {
	return NewMockContextWithUserID(nil, "")
}

func NewMockContextWithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			panic(err)
		}

		// Every sqlite :memory: connection opens its own database, so the
		// pool must stay on a single one for concurrent tests.
		sqlDB, err := db.DB()
		if err != nil {
			panic(err)
		}
		sqlDB.SetMaxOpenConns(1)

		node, err := snowflake.NewNode(0)
		if err != nil {
			panic(err)
		}

		ctx = context.Background()
		ctx = xcontext.WithConfigs(ctx, MockConfigs())
		ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.SILENCE))
		ctx = xcontext.WithDB(ctx, db)
		ctx = xcontext.WithSnowFlake(ctx, node)
	}

	return xcontext.WithRequestUserID(ctx, userID)
}

func MockConfigs() config.Configs {
	return config.Configs{
		Env: "testing",
		Promotion: config.PromotionConfigs{
			ShareCooldown: 48 * time.Hour,
		},
		Lottery: config.LotteryConfigs{
			TicketPrice:      100,
			BaseJackpot:      10000,
			CarryOverRateBps: 7000,
			MaxNumber:        100,
			MaxQuantity:      100,
		},
		WeatherPool: config.WeatherPoolConfigs{
			UnitPrice:       100,
			HouseBase:       1000,
			TreasuryRateBps: 500,
		},
		Claim: config.ClaimConfigs{
			InFlightTimeout: 10 * time.Minute,
		},
	}
}
