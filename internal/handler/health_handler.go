package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/uimetrics/uima-go-api/internal/config"
	"github.com/uimetrics/uima-go-api/internal/dispatcher"
	"github.com/uimetrics/uima-go-api/internal/registry"
	"github.com/uimetrics/uima-go-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Metrics     int       `json:"metrics"`
	QueueDepth  int       `json:"queueDepth"`
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config, reg *registry.Registry, disp *dispatcher.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}
		if reg != nil {
			payload.Metrics = reg.Len()
		}
		if disp != nil {
			payload.QueueDepth = disp.QueueLen()
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
