package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/uimetrics/uima-go-api/internal/config"
	"github.com/uimetrics/uima-go-api/internal/dispatcher"
	"github.com/uimetrics/uima-go-api/internal/handler"
	"github.com/uimetrics/uima-go-api/internal/observability"
	"github.com/uimetrics/uima-go-api/internal/registry"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	Registry          *registry.Registry
	Dispatcher        *dispatcher.Dispatcher
	EvaluationHandler *handler.EvaluationHandler
	CatalogHandler    *handler.CatalogHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Registry, deps.Dispatcher))

	app.Get("/metrics", observability.MetricsHandler())

	if deps.CatalogHandler != nil {
		catalog := api.Group("/metrics")
		deps.CatalogHandler.Register(catalog)
	}

	if deps.EvaluationHandler != nil {
		evaluation := api.Group("/evaluation")
		deps.EvaluationHandler.Register(evaluation)
	}
}
