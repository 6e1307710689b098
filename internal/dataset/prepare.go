package dataset

import (
	"fmt"
	"time"

	"github.com/gridcast/gridcast/internal/timeseries"
)

// Matrix is a feature matrix with its target vector and row timestamps
type Matrix struct {
	X            [][]float64
	Y            []float64
	FeatureNames []string
	Times        []time.Time
}

// Prepare extracts the target column and the feature matrix from a
// feature frame. The target column must be configured explicitly and
// must exist; a missing target is a hard error, never a silent
// fallback. Excluded columns are dropped from the features.
func Prepare(frame *timeseries.Frame, targetColumn string, exclude []string) (*Matrix, error) {
	if targetColumn == "" {
		return nil, fmt.Errorf("target column must be configured")
	}

	y, ok := frame.Column(targetColumn)
	if !ok {
		return nil, fmt.Errorf("target column %q not found in feature table (columns: %v)",
			targetColumn, frame.Columns())
	}

	skip := map[string]bool{targetColumn: true}
	for _, name := range exclude {
		skip[name] = true
	}

	var featureNames []string
	for _, name := range frame.Columns() {
		if !skip[name] {
			featureNames = append(featureNames, name)
		}
	}
	if len(featureNames) == 0 {
		return nil, fmt.Errorf("no feature columns left after excluding %v", exclude)
	}

	n := frame.Len()
	cols := make([][]float64, len(featureNames))
	for j, name := range featureNames {
		cols[j], _ = frame.Column(name)
	}

	x := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(featureNames))
		for j := range featureNames {
			row[j] = cols[j][i]
		}
		x[i] = row
	}

	yCopy := make([]float64, n)
	copy(yCopy, y)

	times := make([]time.Time, n)
	copy(times, frame.Times())

	return &Matrix{X: x, Y: yCopy, FeatureNames: featureNames, Times: times}, nil
}
