// Package router wires the API routes and global middlewares.
package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/gridcast/gridcast/internal/config"
	"github.com/gridcast/gridcast/internal/dataset"
	"github.com/gridcast/gridcast/internal/handlers"
	"github.com/gridcast/gridcast/internal/logging"
	"github.com/gridcast/gridcast/internal/middleware"
	"github.com/gridcast/gridcast/internal/registry"
	"github.com/gridcast/gridcast/internal/store"
)

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, s *store.Store, reg *registry.Registry, loader *dataset.Loader, cfg config.Config) *handlers.Handler {
	h := handlers.New(logger, s, reg, loader, cfg)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger))

	// Health check (no auth required)
	app.Get("/health", h.Health)

	// API key authentication middleware
	authMiddleware := middleware.APIKeyAuth(logger, cfg.Auth.APIKeys, cfg.Auth.Enabled)

	// API v1 routes (protected by API key)
	v1 := app.Group("/v1", authMiddleware)

	v1.Get("/forecasts/latest", h.LatestForecast)
	v1.Get("/forecasts", h.ForecastsByDate)
	v1.Get("/models/latest", h.LatestModel)
	v1.Get("/canonical", h.CanonicalByDate)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, s *store.Store, reg *registry.Registry, loader *dataset.Loader, cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Gridcast API",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, s, reg, loader, cfg)

	return app
}
