package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/spec-kit/civic-reporter/internal/persistence"
)

func main() {
	app := &cli.App{
		Name:  "civic-reporter",
		Usage: "Civic issue reporting API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "migrations",
				Aliases: []string{"m"},
				Usage:   "Directory holding the user store SQL migrations",
				Value:   persistence.DefaultMigrationsDir,
			},
		},
		Commands: []*cli.Command{
			serveCommand,
			seedCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("application failed: %v", err)
	}
}
