// Package features expands the canonical table with model-family
// specific predictor columns.
package features

import (
	"fmt"

	"github.com/gridcast/gridcast/internal/config"
	"github.com/gridcast/gridcast/internal/logging"
	"github.com/gridcast/gridcast/internal/timeseries"
)

// Kind identifies a feature strategy. The set is closed: configuration
// naming an unknown kind fails fast instead of silently falling back.
type Kind string

// Known strategy kinds
const (
	KindGBT Kind = "gbt"
)

// ParseKind validates a strategy name from configuration
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindGBT:
		return KindGBT, nil
	default:
		return "", fmt.Errorf("unknown feature strategy %q", s)
	}
}

// Info describes what a strategy produced on its last run
type Info struct {
	Strategy            string `json:"strategy"`
	TotalFeatures       int    `json:"total_features"`
	TimeFeatures        int    `json:"time_features"`
	LagFeatures         int    `json:"lag_features"`
	RollingFeatures     int    `json:"rolling_features"`
	InteractionFeatures int    `json:"interaction_features"`

	LagPeriods          []int `json:"lag_periods"`
	RollingWindows      []int `json:"rolling_windows"`
	InteractionsEnabled bool  `json:"interactions_enabled"`
}

// Strategy turns a canonical frame into a feature frame
type Strategy interface {
	CreateFeatures(frame *timeseries.Frame) (*timeseries.Frame, error)
	FeatureInfo() Info

	// MinHistoryHours is the trailing window a single prediction row
	// needs so every lag and rolling feature is defined.
	MinHistoryHours() int
}

// NewStrategy builds the strategy named by configuration
func NewStrategy(kind Kind, cfg config.FeaturesConfig, logger *logging.Logger) (Strategy, error) {
	switch kind {
	case KindGBT:
		return NewGBTStrategy(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown feature strategy %q", kind)
	}
}
