package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/agrilink/crm-sync/internal/api/http/handlers"
	"github.com/agrilink/crm-sync/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle)
	admin.Post("/sync/run", cfg.Admin.RunSync)
	admin.Get("/deals", cfg.Admin.ListDeals)
	admin.Delete("/deals/:id", cfg.Admin.DeleteDeal)
	admin.Get("/metrics", cfg.Admin.Metrics)
}
