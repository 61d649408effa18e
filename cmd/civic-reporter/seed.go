package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/civic-reporter/internal/config"
	"github.com/spec-kit/civic-reporter/internal/observability"
	"github.com/spec-kit/civic-reporter/internal/persistence"
	"github.com/spec-kit/civic-reporter/internal/repository"
	"github.com/spec-kit/civic-reporter/internal/seed"
	"github.com/spec-kit/civic-reporter/internal/service"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Create the demo citizen and official accounts",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "password",
			Usage: "Password for the demo accounts (defaults to SEED_DEMO_PASSWORD)",
		},
	},
	Action: func(cCtx *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		defer logger.Sync() //nolint:errcheck

		ctx := context.Background()

		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return fmt.Errorf("failed to connect postgres: %w", err)
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cCtx.String("migrations"), logger); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		password := cCtx.String("password")
		if password == "" {
			password = cfg.Seed.DemoPassword
		}

		authService := service.NewAuthService(cfg.Auth, repository.NewUserRepository(pg.PoolHandle()))
		created, err := seed.SeedUsers(ctx, authService, password, logger)
		if err != nil {
			return err
		}

		logger.Info("demo users seeded", zap.Int("created", created))
		return nil
	},
}
