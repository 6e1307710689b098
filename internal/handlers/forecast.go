package handlers

import (
	"path"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gridcast/gridcast/internal/models"
	"github.com/gridcast/gridcast/internal/predict"
	"github.com/gridcast/gridcast/internal/store"
)

// LatestForecast returns the most recent prediction record
func (h *Handler) LatestForecast(c *fiber.Ctx) error {
	key, err := h.latestForecastKey()
	if err != nil {
		h.logger.Error("Failed to locate latest forecast", "error", err)
		return fiber.ErrInternalServerError
	}
	if key == "" {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "No forecasts have been generated yet.",
			},
		})
	}

	var record predict.Record
	if err := h.store.ReadJSON(key, &record); err != nil {
		h.logger.Error("Failed to read forecast", "key", key, "error", err)
		return fiber.ErrInternalServerError
	}
	return c.JSON(record)
}

// ForecastsByDate returns every prediction record of one day
func (h *Handler) ForecastsByDate(c *fiber.Ctx) error {
	day, err := parseDateParam(c.Query("date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_DATE",
				Message: "Query parameter 'date' must be formatted YYYY-MM-DD.",
			},
		})
	}

	dir := store.DayDir(predict.LayerPredictions, h.cfg.Model.Type, day)
	keys, err := h.store.ListWithSuffix(dir, store.ExtRaw)
	if err != nil {
		h.logger.Error("Failed to list forecasts", "dir", dir, "error", err)
		return fiber.ErrInternalServerError
	}

	forecasts := make([]predict.Record, 0, len(keys))
	for _, key := range keys {
		var record predict.Record
		if err := h.store.ReadJSON(key, &record); err != nil {
			h.logger.Error("Failed to read forecast", "key", key, "error", err)
			return fiber.ErrInternalServerError
		}
		forecasts = append(forecasts, record)
	}

	return c.JSON(models.ForecastListResponse{
		Date:      day.Format("2006-01-02"),
		Count:     len(forecasts),
		Forecasts: forecasts,
	})
}

// latestForecastKey walks the prediction partitions to the newest
// record. Partition names sort chronologically, so the last entry at
// every level is the newest.
func (h *Handler) latestForecastKey() (string, error) {
	dir := path.Join(predict.LayerPredictions, h.cfg.Model.Type)
	for depth := 0; depth < 3; depth++ {
		subdirs, err := h.store.ListSubdirs(dir)
		if err != nil {
			return "", err
		}
		if len(subdirs) == 0 {
			return "", nil
		}
		dir = path.Join(dir, subdirs[len(subdirs)-1])
	}

	keys, err := h.store.ListWithSuffix(dir, store.ExtRaw)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", nil
	}
	return keys[len(keys)-1], nil
}

func parseDateParam(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", raw)
}
