package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gridcast/gridcast/internal/dataset"
	"github.com/gridcast/gridcast/internal/models"
)

// CanonicalByDate returns the canonical hourly rows of one day
func (h *Handler) CanonicalByDate(c *fiber.Ctx) error {
	day, err := parseDateParam(c.Query("date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_DATE",
				Message: "Query parameter 'date' must be formatted YYYY-MM-DD.",
			},
		})
	}

	frame, err := h.loader.LoadRange(day, day.Add(23*time.Hour))
	if err != nil {
		if errors.Is(err, dataset.ErrNoData) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "NOT_FOUND",
					Message: "No canonical data for " + day.Format("2006-01-02") + ".",
				},
			})
		}
		h.logger.Error("Failed to load canonical data", "date", day.Format("2006-01-02"), "error", err)
		return fiber.ErrInternalServerError
	}

	return c.JSON(models.CanonicalResponse{
		Date:  day.Format("2006-01-02"),
		Count: frame.Len(),
		Data:  frame,
	})
}
