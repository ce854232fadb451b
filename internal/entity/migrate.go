package entity

import "gorm.io/gorm"

func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&Campaign{},
		&ShareEvent{},
		&ShareClaim{},
		&LotteryRound{},
		&LotteryTicket{},
		&LotteryWinning{},
		&WeatherRound{},
		&WeatherTicket{},
		&WeatherClaim{},
		&Migration{},
	)
}
