package migration

import (
	"context"
	"errors"
	"sort"

	"github.com/chesscast/backend/internal/entity"
	"github.com/chesscast/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// Migrators maps a version name to the migrator bringing the schema up to
// that version. The migrate command can run one explicitly; Migrate applies
// every pending one in order.
var Migrators = map[string]func(context.Context) error{
	"0000": migrate0000,
	"0001": migrate0001,
}

var versions = []int{0, 1}

// Migrate brings the database schema to the latest version. A fresh database
// gets the full schema and is recorded at the latest version directly.
func Migrate(ctx context.Context) error {
	db := xcontext.DB(ctx)
	if err := db.AutoMigrate(&entity.Migration{}); err != nil {
		return err
	}

	current := -1
	var last entity.Migration
	err := db.Order("version DESC").Take(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err == nil {
		current = last.Version
	}

	sort.Ints(versions)
	for _, version := range versions {
		if version <= current {
			continue
		}

		name := versionName(version)
		xcontext.Logger(ctx).Infof("Applying migration %s", name)
		if err := Migrators[name](ctx); err != nil {
			return err
		}

		if err := db.Create(&entity.Migration{Version: version}).Error; err != nil {
			return err
		}
	}

	return nil
}

func versionName(version int) string {
	name := []byte{'0', '0', '0', '0'}
	for i := 3; version > 0 && i >= 0; i-- {
		name[i] = byte('0' + version%10)
		version /= 10
	}

	return string(name)
}
