package features

import (
	"fmt"
	"math"
	"strings"

	"github.com/gridcast/gridcast/internal/config"
	"github.com/gridcast/gridcast/internal/logging"
	"github.com/gridcast/gridcast/internal/timeseries"
)

// timeFeatureNames lists the datetime-derived columns, always created
// first regardless of configuration
var timeFeatureNames = []string{
	"hour", "day_of_week", "day_of_month", "month", "is_weekend", "hour_sin", "hour_cos",
}

// interactionPairs are the fixed multiplicative interactions, gated by
// configuration
var interactionPairs = [][2]string{
	{"temperature", "hour_sin"},
	{"temperature", "is_weekend"},
	{"humidity", "temperature"},
}

// GBTStrategy creates features for gradient-boosted tree models: time
// features, lagged copies and trailing rolling statistics of every
// numeric base column, plus optional interactions.
type GBTStrategy struct {
	lagPeriods         []int
	rollingWindows     []int
	createInteractions bool
	logger             *logging.Logger

	created []string
}

// NewGBTStrategy creates a strategy from configuration
func NewGBTStrategy(cfg config.FeaturesConfig, logger *logging.Logger) *GBTStrategy {
	if logger == nil {
		logger = logging.Global()
	}
	return &GBTStrategy{
		lagPeriods:         cfg.LagPeriods,
		rollingWindows:     cfg.RollingWindows,
		createInteractions: cfg.CreateInteractions,
		logger:             logger,
	}
}

// CreateFeatures expands the canonical frame. Rows whose lag or rolling
// computation reaches before the start of the data are dropped, so the
// first max(lags, windows) hours of a span never yield usable rows.
func (s *GBTStrategy) CreateFeatures(frame *timeseries.Frame) (*timeseries.Frame, error) {
	if frame.Len() == 0 {
		return nil, fmt.Errorf("cannot create features from an empty frame")
	}

	out := frame.Copy()
	baseCols := out.Columns()
	s.created = s.created[:0]

	s.addTimeFeatures(out)
	if err := s.addLagFeatures(out, baseCols); err != nil {
		return nil, err
	}
	if err := s.addRollingFeatures(out, baseCols); err != nil {
		return nil, err
	}
	if s.createInteractions {
		s.addInteractionFeatures(out)
	}

	before := out.Len()
	out.DropNaNRows()
	if dropped := before - out.Len(); dropped > 0 {
		s.logger.Info("Dropped rows with incomplete feature history", "dropped", dropped)
	}

	s.logger.Info("Created features",
		"new_features", len(s.created), "total_columns", len(out.Columns()), "rows", out.Len())
	return out, nil
}

func (s *GBTStrategy) addTimeFeatures(frame *timeseries.Frame) {
	n := frame.Len()
	hour := make([]float64, n)
	dow := make([]float64, n)
	dom := make([]float64, n)
	month := make([]float64, n)
	weekend := make([]float64, n)
	hourSin := make([]float64, n)
	hourCos := make([]float64, n)

	for i := 0; i < n; i++ {
		ts := frame.Time(i)
		h := float64(ts.Hour())

		// Week runs Monday=0 to Sunday=6, so weekend is {5, 6}
		d := (int(ts.Weekday()) + 6) % 7

		hour[i] = h
		dow[i] = float64(d)
		dom[i] = float64(ts.Day())
		month[i] = float64(int(ts.Month()))
		if d >= 5 {
			weekend[i] = 1
		}
		hourSin[i] = math.Sin(2 * math.Pi * h / 24)
		hourCos[i] = math.Cos(2 * math.Pi * h / 24)
	}

	for _, c := range []struct {
		name string
		vals []float64
	}{
		{"hour", hour},
		{"day_of_week", dow},
		{"day_of_month", dom},
		{"month", month},
		{"is_weekend", weekend},
		{"hour_sin", hourSin},
		{"hour_cos", hourCos},
	} {
		_ = frame.SetColumn(c.name, c.vals)
		s.created = append(s.created, c.name)
	}
}

func (s *GBTStrategy) addLagFeatures(frame *timeseries.Frame, baseCols []string) error {
	for _, col := range baseCols {
		for _, lag := range s.lagPeriods {
			name := fmt.Sprintf("%s_lag_%d", col, lag)
			shifted, ok := frame.Shift(col, lag)
			if !ok {
				return fmt.Errorf("base column %s disappeared during feature creation", col)
			}
			if err := frame.SetColumn(name, shifted); err != nil {
				return err
			}
			s.created = append(s.created, name)
		}
	}
	return nil
}

func (s *GBTStrategy) addRollingFeatures(frame *timeseries.Frame, baseCols []string) error {
	for _, col := range baseCols {
		for _, window := range s.rollingWindows {
			mean, ok := frame.RollingMean(col, window)
			if !ok {
				return fmt.Errorf("base column %s disappeared during feature creation", col)
			}
			std, _ := frame.RollingStd(col, window)

			meanName := fmt.Sprintf("%s_rolling_mean_%d", col, window)
			stdName := fmt.Sprintf("%s_rolling_std_%d", col, window)
			if err := frame.SetColumn(meanName, mean); err != nil {
				return err
			}
			if err := frame.SetColumn(stdName, std); err != nil {
				return err
			}
			s.created = append(s.created, meanName, stdName)
		}
	}
	return nil
}

func (s *GBTStrategy) addInteractionFeatures(frame *timeseries.Frame) {
	for _, pair := range interactionPairs {
		a, okA := frame.Column(pair[0])
		b, okB := frame.Column(pair[1])
		if !okA || !okB {
			continue
		}

		vals := make([]float64, len(a))
		for i := range vals {
			vals[i] = a[i] * b[i]
		}
		name := fmt.Sprintf("%s_x_%s", pair[0], pair[1])
		_ = frame.SetColumn(name, vals)
		s.created = append(s.created, name)
	}
}

// FeatureInfo reports what the last CreateFeatures call produced
func (s *GBTStrategy) FeatureInfo() Info {
	info := Info{
		Strategy:            string(KindGBT),
		TotalFeatures:       len(s.created),
		LagPeriods:          s.lagPeriods,
		RollingWindows:      s.rollingWindows,
		InteractionsEnabled: s.createInteractions,
	}

	timeSet := make(map[string]bool, len(timeFeatureNames))
	for _, name := range timeFeatureNames {
		timeSet[name] = true
	}

	for _, name := range s.created {
		switch {
		case timeSet[name]:
			info.TimeFeatures++
		case strings.Contains(name, "_lag_"):
			info.LagFeatures++
		case strings.Contains(name, "_rolling_"):
			info.RollingFeatures++
		case strings.Contains(name, "_x_"):
			info.InteractionFeatures++
		}
	}
	return info
}

// MinHistoryHours returns the largest lag or rolling window
func (s *GBTStrategy) MinHistoryHours() int {
	max := 0
	for _, lag := range s.lagPeriods {
		if lag > max {
			max = lag
		}
	}
	for _, w := range s.rollingWindows {
		if w > max {
			max = w
		}
	}
	return max
}
