package timeseries

import (
	"fmt"
	"time"
)

// Concat appends frames row-wise. All frames must carry the same
// column set; the first frame's column order wins. Empty frames are
// skipped.
func Concat(frames ...*Frame) (*Frame, error) {
	nonEmpty := make([]*Frame, 0, len(frames))
	for _, f := range frames {
		if f != nil && f.Len() > 0 {
			nonEmpty = append(nonEmpty, f)
		}
	}
	if len(nonEmpty) == 0 {
		return New(nil), nil
	}

	first := nonEmpty[0]
	total := 0
	for _, f := range nonEmpty {
		if len(f.order) != len(first.order) {
			return nil, fmt.Errorf("frame has %d columns, expected %d", len(f.order), len(first.order))
		}
		for _, name := range first.order {
			if !f.HasColumn(name) {
				return nil, fmt.Errorf("frame missing column %s", name)
			}
		}
		total += f.Len()
	}

	times := make([]time.Time, 0, total)
	for _, f := range nonEmpty {
		times = append(times, f.times...)
	}

	out := New(times)
	for _, name := range first.order {
		vals := make([]float64, 0, total)
		for _, f := range nonEmpty {
			vals = append(vals, f.cols[name]...)
		}
		out.order = append(out.order, name)
		out.cols[name] = vals
	}
	return out, nil
}
