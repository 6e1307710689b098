// Package predict produces the next-hour demand forecast from the
// latest persisted model and the trailing canonical history.
package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gridcast/gridcast/internal/config"
	"github.com/gridcast/gridcast/internal/dataset"
	"github.com/gridcast/gridcast/internal/features"
	"github.com/gridcast/gridcast/internal/logging"
	"github.com/gridcast/gridcast/internal/queue"
	"github.com/gridcast/gridcast/internal/registry"
	"github.com/gridcast/gridcast/internal/store"
	"github.com/gridcast/gridcast/internal/timeseries"
)

// LayerPredictions is the store layer forecast records are written to
const LayerPredictions = "predictions"

// Record is one emitted forecast
type Record struct {
	ID                  string    `json:"id"`
	PredictionFor       string    `json:"prediction_for"`
	PredictedValue      float64   `json:"predicted_value"`
	ConfidenceLower     float64   `json:"confidence_lower"`
	ConfidenceUpper     float64   `json:"confidence_upper"`
	ModelType           string    `json:"model_type"`
	ModelVersion        string    `json:"model_version"`
	GeneratedAt         time.Time `json:"generated_at"`
	BasedOnDataUntil    string    `json:"based_on_data_until"`
	FeatureCount        int       `json:"feature_count"`
	HistoricalHoursUsed int       `json:"historical_hours_used"`
}

// Predictor runs the single linear prediction flow. Every step failure
// aborts the whole prediction; there are no retries at this layer.
type Predictor struct {
	loader    *dataset.Loader
	strategy  features.Strategy
	registry  *registry.Registry
	store     *store.Store
	publisher queue.Publisher
	cfg       config.ModelConfig
	subject   string
	logger    *logging.Logger

	now func() time.Time
}

// New creates a predictor. The publisher may be nil when forecast
// events are not wanted.
func New(
	loader *dataset.Loader,
	strategy features.Strategy,
	reg *registry.Registry,
	s *store.Store,
	publisher queue.Publisher,
	cfg config.ModelConfig,
	subject string,
	logger *logging.Logger,
) *Predictor {
	if logger == nil {
		logger = logging.Global()
	}
	return &Predictor{
		loader:    loader,
		strategy:  strategy,
		registry:  reg,
		store:     s,
		publisher: publisher,
		cfg:       cfg,
		subject:   subject,
		logger:    logger,
		now:       time.Now,
	}
}

// Predict forecasts the hour after asOf. asOf is truncated to the hour;
// an asOf at hour 23 rolls the target over to the next day.
func (p *Predictor) Predict(asOf time.Time) (*Record, error) {
	target := asOf.Truncate(time.Hour).Add(time.Hour)

	m, meta, err := p.registry.LoadLatest(p.cfg.Type, p.cfg)
	if err != nil {
		return nil, fmt.Errorf("no usable model: %w", err)
	}

	// The window is inclusive of the as-of hour so the largest lag is
	// still defined for the final row after the warmup drop
	hours := p.cfg.MinHistoricalHours
	if min := p.strategy.MinHistoryHours(); hours < min {
		hours = min
	}
	history, err := p.loader.LoadRecentHours(asOf, hours+1)
	if err != nil {
		return nil, fmt.Errorf("failed to load prediction history: %w", err)
	}
	latest := history.Time(history.Len() - 1)

	featured, err := p.strategy.CreateFeatures(history)
	if err != nil {
		return nil, fmt.Errorf("feature engineering failed: %w", err)
	}
	if featured.Len() == 0 {
		return nil, fmt.Errorf("no usable rows after feature warmup (loaded %d hours)", history.Len())
	}

	// Only the most recent row is predicted; the earlier rows exist to
	// make its lag and rolling features valid
	last := featured.Tail(1)

	matrix, err := dataset.Prepare(last, p.cfg.TargetColumn, p.cfg.ExcludeFeatures)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare prediction input: %w", err)
	}
	if err := matchFeatures(matrix.FeatureNames, m.FeatureNames); err != nil {
		return nil, err
	}

	point, lower, upper, err := m.PredictWithConfidence(matrix.X)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}

	record := &Record{
		ID:                  uuid.NewString(),
		PredictionFor:       timeseries.FormatTime(target),
		PredictedValue:      point[0],
		ConfidenceLower:     lower[0],
		ConfidenceUpper:     upper[0],
		ModelType:           meta.ModelType,
		ModelVersion:        meta.Version,
		GeneratedAt:         p.now().UTC(),
		BasedOnDataUntil:    timeseries.FormatTime(latest),
		FeatureCount:        len(matrix.FeatureNames),
		HistoricalHoursUsed: history.Len(),
	}

	p.logger.Info("Generated forecast",
		"prediction_for", record.PredictionFor,
		"predicted_value", record.PredictedValue,
		"model_version", record.ModelVersion,
		"historical_hours", record.HistoricalHoursUsed)
	return record, nil
}

// matchFeatures guards against feature configuration drifting between
// training and prediction, which would silently misalign the matrix
func matchFeatures(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("feature mismatch: model expects %d features, input has %d",
			len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("feature mismatch at position %d: model expects %q, input has %q",
				i, want[i], got[i])
		}
	}
	return nil
}

// Emit persists a forecast record and publishes it as a queue event
func (p *Predictor) Emit(ctx context.Context, record *Record) error {
	target, err := timeseries.ParseTime(record.PredictionFor, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid prediction timestamp %q: %w", record.PredictionFor, err)
	}

	key := store.HourlyRawKey(LayerPredictions, record.ModelType, target)
	if err := p.store.WriteJSON(key, record); err != nil {
		return fmt.Errorf("failed to persist forecast: %w", err)
	}

	if p.publisher == nil {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode forecast event: %w", err)
	}
	if err := p.publisher.Publish(ctx, p.subject, payload); err != nil {
		return fmt.Errorf("failed to publish forecast event: %w", err)
	}
	return nil
}

// Run predicts the hour after asOf and emits the record
func (p *Predictor) Run(ctx context.Context, asOf time.Time) (*Record, error) {
	record, err := p.Predict(asOf)
	if err != nil {
		return nil, err
	}
	if err := p.Emit(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}
