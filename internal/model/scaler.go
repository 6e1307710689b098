package model

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each feature to zero mean and unit variance.
// It is fitted on training data only and applied unchanged to
// validation, test and prediction inputs.
type StandardScaler struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// Fit learns per-feature means and standard deviations
func (s *StandardScaler) Fit(x [][]float64) error {
	if len(x) == 0 {
		return fmt.Errorf("cannot fit scaler on empty data")
	}

	nFeatures := len(x[0])
	s.Means = make([]float64, nFeatures)
	s.Stds = make([]float64, nFeatures)

	col := make([]float64, len(x))
	for j := 0; j < nFeatures; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		s.Means[j] = stat.Mean(col, nil)
		std := stat.PopStdDev(col, nil)
		if std == 0 {
			// Constant feature: leave values at zero after centering
			std = 1
		}
		s.Stds[j] = std
	}
	return nil
}

// Transform returns a scaled copy of x
func (s *StandardScaler) Transform(x [][]float64) ([][]float64, error) {
	if len(s.Means) == 0 {
		return nil, fmt.Errorf("scaler is not fitted")
	}

	out := make([][]float64, len(x))
	for i, row := range x {
		if len(row) != len(s.Means) {
			return nil, fmt.Errorf("row %d has %d features, scaler expects %d", i, len(row), len(s.Means))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Means[j]) / s.Stds[j]
		}
		out[i] = scaled
	}
	return out, nil
}

// FitTransform fits on x and returns the scaled copy
func (s *StandardScaler) FitTransform(x [][]float64) ([][]float64, error) {
	if err := s.Fit(x); err != nil {
		return nil, err
	}
	return s.Transform(x)
}
