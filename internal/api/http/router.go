package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/backbone-auth/internal/api/http/handlers"
	"github.com/spec-kit/backbone-auth/internal/auth"
	"github.com/spec-kit/backbone-auth/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/direct-login", cfg.Auth.DirectLogin)
	authGroup.Post("/select-role", cfg.Auth.SelectRole)

	// Group-level handlers would also run for the public routes above.
	protected := func(chain ...fiber.Handler) []fiber.Handler {
		return append([]fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireFinalToken()}, chain...)
	}
	authGroup.Get("/me", protected(cfg.Auth.Me)...)
	authGroup.Post("/switch-role", protected(cfg.Auth.SwitchRole)...)
	// the impersonation service owns the permission check and its message
	authGroup.Post("/impersonate", protected(cfg.Auth.Impersonate)...)
}
