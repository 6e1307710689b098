// Package canonical builds the gold-layer business table from cleaned
// weather and electricity frames.
package canonical

import (
	"errors"
	"fmt"
	"math"

	"github.com/gridcast/gridcast/internal/logging"
	"github.com/gridcast/gridcast/internal/timeseries"
)

// Columns is the fixed canonical column set, in output order
var Columns = []string{"electricity_demand", "temperature", "humidity", "wind_speed", "precipitation"}

// CriticalColumns must never carry NaN in a finalized table. Rows that
// still miss one after imputation are dropped.
var CriticalColumns = []string{"electricity_demand", "temperature"}

// Physical plausibility bounds applied before the second imputation
// pass. Demand below zero is a meter error, not negative consumption.
const (
	minTemperature = -10.0
	maxTemperature = 60.0
)

// ErrValidation marks a canonical table that violates its invariants
var ErrValidation = errors.New("canonical table validation failed")

// interpolateLimit caps linear gap filling at three consecutive hours.
// Longer gaps fall through to forward/backward fill, which is less
// accurate but guarantees a complete table.
const interpolateLimit = 3

// Merger joins cleaned source tables into the canonical table
type Merger struct {
	logger *logging.Logger
}

// NewMerger creates a canonical merger
func NewMerger(logger *logging.Logger) *Merger {
	if logger == nil {
		logger = logging.Global()
	}
	return &Merger{logger: logger}
}

// Merge runs the fixed merge pipeline: align, inner join, rename,
// impute, flag physical outliers, finalize. Input frames are not
// modified.
func (m *Merger) Merge(weather, electricity *timeseries.Frame) (*timeseries.Frame, error) {
	w := weather.Copy()
	e := electricity.Copy()
	w.SortByTime()
	e.SortByTime()

	joined, err := e.InnerJoin(w)
	if err != nil {
		return nil, fmt.Errorf("failed to join sources: %w", err)
	}
	if joined.Len() == 0 {
		m.logger.Warn("Canonical join produced no rows",
			"weather_rows", weather.Len(), "electricity_rows", electricity.Len())
	}

	if joined.HasColumn("total_load") {
		if err := joined.Rename("total_load", "electricity_demand"); err != nil {
			return nil, err
		}
	}

	m.impute(joined)

	flagged := m.flagOutliers(joined)
	if flagged > 0 {
		m.logger.Info("Flagged physically impossible values", "count", flagged)
		m.impute(joined)
	}

	final, err := joined.Select(Columns...)
	if err != nil {
		return nil, fmt.Errorf("canonical column missing after merge: %w", err)
	}
	final.SortByTime()

	before := final.Len()
	final.DropRowsMissing(CriticalColumns...)
	if dropped := before - final.Len(); dropped > 0 {
		m.logger.Warn("Dropped rows missing critical columns", "dropped", dropped)
	}

	m.logger.Info("Built canonical table", "rows", final.Len())
	return final, nil
}

// impute applies two-tier gap filling to every canonical column: short
// gaps get linear interpolation, anything left gets forward then
// backward fill
func (m *Merger) impute(frame *timeseries.Frame) {
	for _, name := range Columns {
		if !frame.HasColumn(name) {
			continue
		}
		frame.Interpolate(name, interpolateLimit)
		frame.ForwardFill(name)
		frame.BackwardFill(name)
	}
}

// flagOutliers sets physically impossible values to NaN and returns the
// number flagged
func (m *Merger) flagOutliers(frame *timeseries.Frame) int {
	flagged := 0

	if temps, ok := frame.Column("temperature"); ok {
		for i, v := range temps {
			if math.IsNaN(v) {
				continue
			}
			if v < minTemperature || v > maxTemperature {
				temps[i] = math.NaN()
				flagged++
			}
		}
	}

	if demand, ok := frame.Column("electricity_demand"); ok {
		for i, v := range demand {
			if !math.IsNaN(v) && v < 0 {
				demand[i] = math.NaN()
				flagged++
			}
		}
	}

	return flagged
}

// Validate checks the canonical invariants: non-empty, full column set,
// no NaN in critical columns, strictly ascending timestamps. Violations
// halt the calling pipeline stage.
func (m *Merger) Validate(frame *timeseries.Frame) error {
	if frame.Len() == 0 {
		return fmt.Errorf("%w: table is empty", ErrValidation)
	}

	for _, name := range Columns {
		if !frame.HasColumn(name) {
			return fmt.Errorf("%w: missing column %s", ErrValidation, name)
		}
	}

	for _, name := range CriticalColumns {
		if n := frame.NaNCount(name); n > 0 {
			return fmt.Errorf("%w: %d NaN values in critical column %s", ErrValidation, n, name)
		}
	}

	if !frame.IsStrictlyAscending() {
		return fmt.Errorf("%w: timestamps are not strictly ascending", ErrValidation)
	}

	return nil
}
