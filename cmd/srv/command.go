package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	app := cli.NewApp()
	app.Action = cli.ShowAppHelp
	app.Name = "ChessCast"
	app.Usage = "Reward settlement backend"
	app.Commands = []*cli.Command{
		{
			Action:      server.startApi,
			Name:        "api",
			Usage:       "Start the api service",
			Category:    "Api",
			Description: `Serves the promotion, lottery, weather pool, and claim apis.`,
		},
		{
			Action:      server.startCron,
			Name:        "cron",
			Usage:       "Start the cron service",
			Category:    "Worker",
			Description: `Runs the background jobs, including the overdue round draw.`,
		},
		{
			Action: server.startMigrate,
			Name:   "migrate",
			Usage:  "Migrate the database schema",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "version",
					Usage: "run a single migrator instead of all pending ones",
				},
				&cli.BoolFlag{
					Name:  "bootstrap",
					Usage: "bootstrap the baseline schema from the embedded sql files",
				},
			},
			Category:    "Database",
			Description: `Applies pending schema migrations.`,
		},
	}

	s.app = app
}
