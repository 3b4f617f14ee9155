package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/obe-labs/sheetflow/internal/config"
	"github.com/obe-labs/sheetflow/internal/handler"
	"github.com/obe-labs/sheetflow/internal/middleware"
	"github.com/obe-labs/sheetflow/internal/models"
	"github.com/obe-labs/sheetflow/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler   *handler.AuthHandler
	SheetHandler  *handler.SheetHandler
	UserHandler   *handler.UserHandler
	JWTMiddleware fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		deps.AuthHandler.Register(auth)
	}

	if deps.SheetHandler != nil {
		sheets := api.Group("/sheets", jwtMiddleware)
		deps.SheetHandler.Register(sheets)
	}

	if deps.UserHandler != nil {
		users := api.Group("/users", jwtMiddleware, middleware.RequireRole(models.RoleAdmin))
		deps.UserHandler.Register(users)
	}
}
