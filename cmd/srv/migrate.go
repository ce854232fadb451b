package main

import (
	"fmt"

	"github.com/chesscast/backend/migration"
	"github.com/chesscast/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startMigrate(cctx *cli.Context) error {
	s.loadConfig()
	s.loadLogger()
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())

	if cctx.Bool("bootstrap") {
		return migration.Bootstrap(s.ctx)
	}

	if version := cctx.String("version"); version != "" {
		migrator, ok := migration.Migrators[version]
		if !ok {
			return fmt.Errorf("not found version %s", version)
		}

		return migrator(s.ctx)
	}

	return migration.Migrate(s.ctx)
}
