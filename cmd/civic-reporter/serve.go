package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/civic-reporter/internal/api/http"
	"github.com/spec-kit/civic-reporter/internal/api/http/handlers"
	"github.com/spec-kit/civic-reporter/internal/auth"
	"github.com/spec-kit/civic-reporter/internal/config"
	"github.com/spec-kit/civic-reporter/internal/events"
	"github.com/spec-kit/civic-reporter/internal/observability"
	"github.com/spec-kit/civic-reporter/internal/persistence"
	"github.com/spec-kit/civic-reporter/internal/repository"
	"github.com/spec-kit/civic-reporter/internal/seed"
	"github.com/spec-kit/civic-reporter/internal/service"
	"github.com/spec-kit/civic-reporter/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

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

	mongoStore, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
	if err != nil {
		return fmt.Errorf("failed to connect mongodb: %w", err)
	}
	defer mongoStore.Close(context.Background())

	issuesColl := mongoStore.Collection(repository.IssuesCollection)
	if cfg.Mongo.EnsureIndexes {
		indexCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.Timeout())
		err := repository.EnsureIssueIndexes(indexCtx, issuesColl)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to create issue indexes: %w", err)
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	userRepo := repository.NewUserRepository(pg.PoolHandle())
	issueRepo := repository.NewIssueRepository(issuesColl)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(dispatcher, logger, cfg.Notification)

	authService := service.NewAuthService(cfg.Auth, userRepo)
	userService := service.NewUserService(userRepo)
	statsService := service.NewStatsService(issueRepo)
	issueService := service.NewIssueService(service.IssueDependencies{
		IssueRepo:    issueRepo,
		UserRepo:     userRepo,
		Dispatcher:   dispatcher,
		Logger:       logger.Named("issues"),
		MaxListLimit: cfg.App.ListMaxLimit,
	})

	if cfg.Seed.DemoUsers {
		if _, err := seed.SeedUsers(ctx, authService, cfg.Seed.DemoPassword, logger); err != nil {
			return err
		}
	}

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics,
			handlers.Dependency{Name: "postgres", Pinger: pg},
			handlers.Dependency{Name: "mongodb", Pinger: mongoStore},
			handlers.Dependency{Name: "redis", Pinger: redis, Optional: true},
		),
		Users:          handlers.NewUsersHandler(authService, userService),
		Issues:         handlers.NewIssuesHandler(issueService, statsService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userRepo),
		IssueLimiter:   issueLimiter(cfg.RateLimit, redis, logger),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("fiber listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return app.ShutdownWithTimeout(shutdownTimeout)
}

func issueLimiter(cfg config.RateLimitConfig, redis *persistence.Redis, logger *zap.Logger) fiber.Handler {
	if cfg.IssuesPerDay <= 0 {
		logger.Info("issue rate limiting disabled")
		return nil
	}
	if !redis.Available() {
		logger.Warn("issue rate limiting disabled: redis unavailable")
		return nil
	}
	return httptransport.IssueRateLimiter(redis.Client, cfg.KeyPrefix, cfg.IssuesPerDay, logger.Named("ratelimit"))
}
