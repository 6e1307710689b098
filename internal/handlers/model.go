package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/gridcast/gridcast/internal/models"
	"github.com/gridcast/gridcast/internal/store"
)

// LatestModel returns the metadata, metrics and top feature
// importances of the newest trained model
func (h *Handler) LatestModel(c *fiber.Ctx) error {
	meta, err := h.registry.LoadLatestMetadata(h.cfg.Model.Type)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "NOT_FOUND",
					Message: "No model has been trained yet.",
				},
			})
		}
		h.logger.Error("Failed to load model metadata", "error", err)
		return fiber.ErrInternalServerError
	}

	metrics, err := h.registry.LoadMetrics(h.cfg.Model.Type, "latest")
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.logger.Error("Failed to load model metrics", "error", err)
		return fiber.ErrInternalServerError
	}

	top := meta.FeatureImportance
	if len(top) > topFeatureCount {
		top = top[:topFeatureCount]
	}

	return c.JSON(models.ModelResponse{
		Metadata:    meta,
		Metrics:     metrics,
		TopFeatures: top,
	})
}
