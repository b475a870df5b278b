package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/uimetrics/uima-go-api/internal/service"
	"github.com/uimetrics/uima-go-api/internal/utils"
)

// CatalogHandler serves the metric catalog.
type CatalogHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewCatalogHandler creates a catalog handler instance.
func NewCatalogHandler(service service.EvaluationService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger.With().Str("component", "catalog_handler").Logger(),
	}
}

// Register binds catalog routes under the provided router group.
func (h *CatalogHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
}

func (h *CatalogHandler) list(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "metric catalog", h.service.Catalog())
}
