package timeseries

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Shift returns the named column shifted forward by periods rows. The
// first periods entries are NaN. The source column is not modified.
func (f *Frame) Shift(name string, periods int) ([]float64, bool) {
	vals, ok := f.cols[name]
	if !ok {
		return nil, false
	}

	out := make([]float64, len(vals))
	for i := range out {
		if i < periods {
			out[i] = math.NaN()
		} else {
			out[i] = vals[i-periods]
		}
	}
	return out, true
}

// RollingMean returns the trailing mean of the named column over the
// given window. Each output row uses only that row and earlier rows.
// Rows without a full window, or whose window contains a NaN, are NaN.
func (f *Frame) RollingMean(name string, window int) ([]float64, bool) {
	return f.rolling(name, window, func(w []float64) float64 {
		return stat.Mean(w, nil)
	})
}

// RollingStd returns the trailing sample standard deviation of the
// named column over the given window, with the same NaN rules as
// RollingMean.
func (f *Frame) RollingStd(name string, window int) ([]float64, bool) {
	return f.rolling(name, window, func(w []float64) float64 {
		return stat.StdDev(w, nil)
	})
}

func (f *Frame) rolling(name string, window int, agg func([]float64) float64) ([]float64, bool) {
	vals, ok := f.cols[name]
	if !ok {
		return nil, false
	}

	out := make([]float64, len(vals))
	for i := range out {
		if i+1 < window {
			out[i] = math.NaN()
			continue
		}

		w := vals[i+1-window : i+1]
		hasNaN := false
		for _, v := range w {
			if math.IsNaN(v) {
				hasNaN = true
				break
			}
		}
		if hasNaN {
			out[i] = math.NaN()
			continue
		}
		out[i] = agg(w)
	}
	return out, true
}
