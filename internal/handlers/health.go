package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gridcast/gridcast/internal/models"
)

// Health reports service liveness. It never touches the store, so the
// probe answers even while the data volume is unavailable.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(models.HealthResponse{
		Status:    "healthy",
		Service:   "gridcast-api",
		Bucket:    h.cfg.Storage.Bucket,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// NotFound handles 404 errors
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_FOUND",
			Message: "Route not found",
			Path:    c.Path(),
		},
	})
}
