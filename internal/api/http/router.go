package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/credit-line-service/internal/api/http/handlers"
	"github.com/spec-kit/credit-line-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Applications   *handlers.ApplicationsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. User provisioning, listing and reject
// endpoints sit behind the admin capability gate; borrower-facing operations
// do not carry authentication at this layer.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/admin/token", cfg.Auth.AdminToken)

	admin := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAdmin()}

	users := app.Group("/users")
	users.Post("", append(admin, cfg.Users.Create)...)
	users.Get("", append(admin, cfg.Users.List)...)
	users.Get("/:id", cfg.Users.Get)
	users.Patch("/:id", cfg.Users.Update)
	users.Get("/:id/applications", cfg.Users.ListApplications)

	applications := app.Group("/applications")
	applications.Post("", cfg.Applications.Create)
	applications.Get("", append(admin, cfg.Applications.ListAll)...)
	applications.Get("/:id", cfg.Applications.Get)
	applications.Post("/:id/disburse", cfg.Applications.Disburse)
	applications.Post("/:id/repay", cfg.Applications.Repay)
	applications.Post("/:id/reject", append(admin, cfg.Applications.Reject)...)
	applications.Get("/:id/ledger", cfg.Applications.ListLedger)
}
