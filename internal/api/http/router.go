package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-reporter/internal/api/http/handlers"
	"github.com/spec-kit/civic-reporter/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Issues         *handlers.IssuesHandler
	AuthMiddleware *auth.AuthMiddleware
	// IssueLimiter guards issue creation. Nil disables it.
	IssueLimiter fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	health := app.Group("/health")
	health.Get("/live", cfg.Health.Live)
	health.Get("/ready", cfg.Health.Ready)
	health.Get("/metrics", cfg.AuthMiddleware.Handle, auth.RequireAdmin(), cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Users.Me)

	users := app.Group("/users")
	users.Get("/leaderboard", cfg.Users.Leaderboard)
	users.Get("/:id", cfg.Users.Get)

	issues := app.Group("/issues")
	// Static segments are registered before /:id.
	issues.Get("/", cfg.AuthMiddleware.Optional, cfg.Issues.List)
	issues.Get("/stats", cfg.Issues.Stats)
	issues.Get("/nearby", cfg.AuthMiddleware.Optional, cfg.Issues.Nearby)
	issues.Get("/user/:userId", cfg.AuthMiddleware.Optional, cfg.Issues.ListByUser)
	issues.Get("/:id", cfg.AuthMiddleware.Optional, cfg.Issues.Get)

	create := []fiber.Handler{cfg.AuthMiddleware.Handle}
	if cfg.IssueLimiter != nil {
		create = append(create, cfg.IssueLimiter)
	}
	create = append(create, cfg.Issues.Create)
	issues.Post("/", create...)

	issues.Put("/:id", cfg.AuthMiddleware.Handle, cfg.Issues.Update)
	issues.Delete("/:id", cfg.AuthMiddleware.Handle, cfg.Issues.Delete)
	issues.Post("/:id/upvote", cfg.AuthMiddleware.Handle, cfg.Issues.Upvote)
	issues.Post("/:id/comments", cfg.AuthMiddleware.Handle, cfg.Issues.AddComment)

	official := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAdmin()}
	issues.Patch("/:id/status", append(official, cfg.Issues.UpdateStatus)...)
	issues.Patch("/:id/priority", append(official, cfg.Issues.UpdatePriority)...)
	issues.Patch("/:id/assign", append(official, cfg.Issues.Assign)...)
}
