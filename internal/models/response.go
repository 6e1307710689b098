// Package models holds the HTTP response shapes of the API service.
package models

import (
	"github.com/gridcast/gridcast/internal/evaluation"
	"github.com/gridcast/gridcast/internal/model"
	"github.com/gridcast/gridcast/internal/predict"
	"github.com/gridcast/gridcast/internal/registry"
	"github.com/gridcast/gridcast/internal/timeseries"
)

// HealthResponse represents the liveness probe response
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Bucket    string `json:"bucket"`
	Timestamp string `json:"timestamp"`
}

// ForecastListResponse represents one day of forecast records
type ForecastListResponse struct {
	Date      string           `json:"date"`
	Count     int              `json:"count"`
	Forecasts []predict.Record `json:"forecasts"`
}

// ModelResponse represents the latest trained model with its metrics
type ModelResponse struct {
	Metadata    *registry.Metadata             `json:"metadata"`
	Metrics     map[string]*evaluation.Metrics `json:"metrics,omitempty"`
	TopFeatures []model.Importance             `json:"top_features,omitempty"`
}

// CanonicalResponse represents one day of the canonical table
type CanonicalResponse struct {
	Date  string            `json:"date"`
	Count int               `json:"count"`
	Data  *timeseries.Frame `json:"data"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
