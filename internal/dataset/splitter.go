package dataset

import (
	"fmt"
	"math"
	"time"
)

// ratioTolerance is how far the three split ratios may drift from
// summing to exactly 1.0
const ratioTolerance = 0.01

// Split holds the three chronological segments of a prepared dataset.
// Train strictly precedes validation, which strictly precedes test.
type Split struct {
	XTrain, XVal, XTest [][]float64
	YTrain, YVal, YTest []float64

	TimesTrain, TimesVal, TimesTest []time.Time
}

// TimeSeriesSplit partitions a time-sorted dataset positionally. There
// is no shuffling: lag and rolling features are autocorrelated, so a
// shuffled split would leak future information into training.
func TimeSeriesSplit(m *Matrix, trainRatio, valRatio, testRatio float64) (*Split, error) {
	total := trainRatio + valRatio + testRatio
	if math.Abs(total-1.0) > ratioTolerance {
		return nil, fmt.Errorf("split ratios must sum to 1.0, got %.4f", total)
	}

	n := len(m.X)
	if n == 0 {
		return nil, fmt.Errorf("cannot split an empty dataset")
	}
	if len(m.Y) != n || len(m.Times) != n {
		return nil, fmt.Errorf("inconsistent dataset: %d rows, %d targets, %d timestamps",
			n, len(m.Y), len(m.Times))
	}

	trainSize := int(float64(n) * trainRatio)
	valSize := int(float64(n) * valRatio)

	return &Split{
		XTrain:     m.X[:trainSize],
		XVal:       m.X[trainSize : trainSize+valSize],
		XTest:      m.X[trainSize+valSize:],
		YTrain:     m.Y[:trainSize],
		YVal:       m.Y[trainSize : trainSize+valSize],
		YTest:      m.Y[trainSize+valSize:],
		TimesTrain: m.Times[:trainSize],
		TimesVal:   m.Times[trainSize : trainSize+valSize],
		TimesTest:  m.Times[trainSize+valSize:],
	}, nil
}
