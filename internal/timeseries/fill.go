package timeseries

import (
	"math"
	"sort"
)

// Interpolate fills NaN gaps in the named column with linearly
// interpolated values. At most limit consecutive values are filled from
// each end of a gap; longer gaps keep NaN in the middle. Leading and
// trailing gaps, which have only one anchor, are padded with that
// anchor's value subject to the same limit. A limit of 0 or less fills
// whole gaps.
func (f *Frame) Interpolate(name string, limit int) {
	vals, ok := f.cols[name]
	if !ok {
		return
	}

	n := len(vals)
	i := 0
	for i < n {
		if !math.IsNaN(vals[i]) {
			i++
			continue
		}

		// Gap is [start, end)
		start := i
		end := i
		for end < n && math.IsNaN(vals[end]) {
			end++
		}

		left := start - 1 // last valid index before the gap, -1 if none
		right := end      // first valid index after the gap, n if none

		gapLen := end - start
		fillFront := gapLen
		fillBack := gapLen
		if limit > 0 {
			fillFront = limit
			fillBack = limit
		}

		for j := start; j < end; j++ {
			fromFront := j - start
			fromBack := end - 1 - j
			if fromFront >= fillFront && fromBack >= fillBack {
				continue
			}

			switch {
			case left >= 0 && right < n:
				// Linear between the two anchors
				span := float64(right - left)
				frac := float64(j-left) / span
				vals[j] = vals[left] + frac*(vals[right]-vals[left])
			case left >= 0:
				// Trailing gap, pad forward within limit
				if fromFront < fillFront {
					vals[j] = vals[left]
				}
			case right < n:
				// Leading gap, pad backward within limit
				if fromBack < fillBack {
					vals[j] = vals[right]
				}
			}
		}

		i = end
	}
}

// ForwardFill propagates the last valid value forward over NaNs
func (f *Frame) ForwardFill(name string) {
	vals, ok := f.cols[name]
	if !ok {
		return
	}
	last := math.NaN()
	for i, v := range vals {
		if math.IsNaN(v) {
			if !math.IsNaN(last) {
				vals[i] = last
			}
		} else {
			last = v
		}
	}
}

// BackwardFill propagates the next valid value backward over NaNs
func (f *Frame) BackwardFill(name string) {
	vals, ok := f.cols[name]
	if !ok {
		return
	}
	next := math.NaN()
	for i := len(vals) - 1; i >= 0; i-- {
		if math.IsNaN(vals[i]) {
			if !math.IsNaN(next) {
				vals[i] = next
			}
		} else {
			next = vals[i]
		}
	}
}

// FillConst replaces remaining NaNs in the named column with value
func (f *Frame) FillConst(name string, value float64) {
	vals, ok := f.cols[name]
	if !ok {
		return
	}
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = value
		}
	}
}

// Median returns the median of the non-NaN values in the named column.
// Returns NaN when the column is empty or all NaN.
func (f *Frame) Median(name string) float64 {
	vals, ok := f.cols[name]
	if !ok {
		return math.NaN()
	}

	clean := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return math.NaN()
	}

	sort.Float64s(clean)
	mid := len(clean) / 2
	if len(clean)%2 == 1 {
		return clean[mid]
	}
	return (clean[mid-1] + clean[mid]) / 2
}
