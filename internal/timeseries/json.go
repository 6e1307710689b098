package timeseries

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// frameJSON is the wire form of a frame. NaN has no JSON encoding, so
// values travel as pointers with null standing in for NaN. Timestamps
// travel as naive local strings.
type frameJSON struct {
	Times   []string              `json:"times"`
	Columns []string              `json:"columns"`
	Data    map[string][]*float64 `json:"data"`
}

// MarshalJSON implements json.Marshaler
func (f *Frame) MarshalJSON() ([]byte, error) {
	wire := frameJSON{
		Times:   make([]string, len(f.times)),
		Columns: f.Columns(),
		Data:    make(map[string][]*float64, len(f.order)),
	}

	for i, t := range f.times {
		wire.Times[i] = t.Format(TimeLayout)
	}

	for _, name := range f.order {
		vals := f.cols[name]
		out := make([]*float64, len(vals))
		for i := range vals {
			if math.IsNaN(vals[i]) {
				continue
			}
			v := vals[i]
			out[i] = &v
		}
		wire.Data[name] = out
	}

	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler. Timestamps are restored as
// naive values; callers that need a specific location rebase them.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var wire frameJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	times := make([]time.Time, len(wire.Times))
	for i, s := range wire.Times {
		t, err := time.Parse(TimeLayout, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		times[i] = t
	}

	f.times = times
	f.order = make([]string, 0, len(wire.Columns))
	f.cols = make(map[string][]float64, len(wire.Columns))

	for _, name := range wire.Columns {
		raw, ok := wire.Data[name]
		if !ok {
			return fmt.Errorf("column %s listed but missing from data", name)
		}
		if len(raw) != len(times) {
			return fmt.Errorf("column %s has %d values for %d rows", name, len(raw), len(times))
		}

		vals := make([]float64, len(raw))
		for i, p := range raw {
			if p == nil {
				vals[i] = math.NaN()
			} else {
				vals[i] = *p
			}
		}
		f.order = append(f.order, name)
		f.cols[name] = vals
	}

	return nil
}
