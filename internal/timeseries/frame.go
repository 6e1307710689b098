package timeseries

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// TimeLayout is the naive local timestamp format used across all layers.
// Timestamps carry no offset once converted into the business timezone.
const TimeLayout = "2006-01-02T15:04:05"

// Frame is an hourly time-indexed table of float64 columns. Missing
// values are represented as NaN. Column order is significant and is
// preserved through joins, selection and serialization.
type Frame struct {
	times []time.Time
	order []string
	cols  map[string][]float64
}

// New creates an empty frame with the given time index.
func New(times []time.Time) *Frame {
	return &Frame{
		times: times,
		order: make([]string, 0, 4),
		cols:  make(map[string][]float64),
	}
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return len(f.times)
}

// Times returns the time index
func (f *Frame) Times() []time.Time {
	return f.times
}

// Time returns the timestamp at row i
func (f *Frame) Time(i int) time.Time {
	return f.times[i]
}

// Columns returns column names in order
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// HasColumn reports whether the named column exists
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Column returns the values of the named column
func (f *Frame) Column(name string) ([]float64, bool) {
	vals, ok := f.cols[name]
	return vals, ok
}

// AddColumn appends a column. The value slice length must match the
// time index length.
func (f *Frame) AddColumn(name string, values []float64) error {
	if len(values) != len(f.times) {
		return fmt.Errorf("column %s has %d values for %d rows", name, len(values), len(f.times))
	}
	if _, exists := f.cols[name]; exists {
		return fmt.Errorf("column %s already exists", name)
	}
	f.order = append(f.order, name)
	f.cols[name] = values
	return nil
}

// SetColumn replaces the values of an existing column, or adds it
func (f *Frame) SetColumn(name string, values []float64) error {
	if len(values) != len(f.times) {
		return fmt.Errorf("column %s has %d values for %d rows", name, len(values), len(f.times))
	}
	if _, exists := f.cols[name]; !exists {
		f.order = append(f.order, name)
	}
	f.cols[name] = values
	return nil
}

// Rename renames a column in place, keeping its position
func (f *Frame) Rename(oldName, newName string) error {
	vals, ok := f.cols[oldName]
	if !ok {
		return fmt.Errorf("column %s not found", oldName)
	}
	if _, exists := f.cols[newName]; exists {
		return fmt.Errorf("column %s already exists", newName)
	}
	delete(f.cols, oldName)
	f.cols[newName] = vals
	for i, name := range f.order {
		if name == oldName {
			f.order[i] = newName
			break
		}
	}
	return nil
}

// Select returns a new frame containing only the named columns, in the
// given order, sharing the time index.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := New(f.times)
	for _, name := range names {
		vals, ok := f.cols[name]
		if !ok {
			return nil, fmt.Errorf("column %s not found", name)
		}
		copied := make([]float64, len(vals))
		copy(copied, vals)
		if err := out.AddColumn(name, copied); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Drop removes the named columns if present
func (f *Frame) Drop(names ...string) {
	for _, name := range names {
		if _, ok := f.cols[name]; !ok {
			continue
		}
		delete(f.cols, name)
		for i, n := range f.order {
			if n == name {
				f.order = append(f.order[:i], f.order[i+1:]...)
				break
			}
		}
	}
}

// Copy returns a deep copy of the frame
func (f *Frame) Copy() *Frame {
	times := make([]time.Time, len(f.times))
	copy(times, f.times)

	out := New(times)
	for _, name := range f.order {
		vals := make([]float64, len(f.cols[name]))
		copy(vals, f.cols[name])
		out.order = append(out.order, name)
		out.cols[name] = vals
	}
	return out
}

// SliceRows returns a copy of rows [start, end)
func (f *Frame) SliceRows(start, end int) *Frame {
	if start < 0 {
		start = 0
	}
	if end > len(f.times) {
		end = len(f.times)
	}
	if start > end {
		start = end
	}

	times := make([]time.Time, end-start)
	copy(times, f.times[start:end])

	out := New(times)
	for _, name := range f.order {
		vals := make([]float64, end-start)
		copy(vals, f.cols[name][start:end])
		out.order = append(out.order, name)
		out.cols[name] = vals
	}
	return out
}

// Between returns a copy of the rows with start <= time <= end.
// Assumes the frame is time sorted.
func (f *Frame) Between(start, end time.Time) *Frame {
	lo := sort.Search(len(f.times), func(i int) bool {
		return !f.times[i].Before(start)
	})
	hi := sort.Search(len(f.times), func(i int) bool {
		return f.times[i].After(end)
	})
	return f.SliceRows(lo, hi)
}

// Tail returns a copy of the last n rows
func (f *Frame) Tail(n int) *Frame {
	if n >= len(f.times) {
		return f.Copy()
	}
	return f.SliceRows(len(f.times)-n, len(f.times))
}

// SortByTime sorts all rows by timestamp ascending. The sort is stable
// so duplicate timestamps keep their original relative order.
func (f *Frame) SortByTime() {
	n := len(f.times)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return f.times[idx[a]].Before(f.times[idx[b]])
	})

	times := make([]time.Time, n)
	for i, j := range idx {
		times[i] = f.times[j]
	}
	f.times = times

	for name, vals := range f.cols {
		sorted := make([]float64, n)
		for i, j := range idx {
			sorted[i] = vals[j]
		}
		f.cols[name] = sorted
	}
}

// DedupKeepFirst removes rows whose timestamp repeats an earlier row,
// keeping the first occurrence. Assumes the frame is time sorted.
func (f *Frame) DedupKeepFirst() {
	keep := make([]int, 0, len(f.times))
	seen := make(map[int64]bool, len(f.times))
	for i, t := range f.times {
		key := t.Unix()
		if seen[key] {
			continue
		}
		seen[key] = true
		keep = append(keep, i)
	}
	f.keepRows(keep)
}

// IsStrictlyAscending reports whether every timestamp is later than the
// previous one.
func (f *Frame) IsStrictlyAscending() bool {
	for i := 1; i < len(f.times); i++ {
		if !f.times[i].After(f.times[i-1]) {
			return false
		}
	}
	return true
}

// InnerJoin joins two frames on exactly equal timestamps. Rows present
// in only one frame are dropped. Column names must not collide.
func (f *Frame) InnerJoin(other *Frame) (*Frame, error) {
	for _, name := range other.order {
		if _, exists := f.cols[name]; exists {
			return nil, fmt.Errorf("column %s present in both frames", name)
		}
	}

	rightIdx := make(map[int64]int, len(other.times))
	for i, t := range other.times {
		if _, dup := rightIdx[t.Unix()]; !dup {
			rightIdx[t.Unix()] = i
		}
	}

	var leftRows, rightRows []int
	for i, t := range f.times {
		if j, ok := rightIdx[t.Unix()]; ok {
			leftRows = append(leftRows, i)
			rightRows = append(rightRows, j)
		}
	}

	times := make([]time.Time, len(leftRows))
	for i, j := range leftRows {
		times[i] = f.times[j]
	}

	out := New(times)
	for _, name := range f.order {
		src := f.cols[name]
		vals := make([]float64, len(leftRows))
		for i, j := range leftRows {
			vals[i] = src[j]
		}
		out.order = append(out.order, name)
		out.cols[name] = vals
	}
	for _, name := range other.order {
		src := other.cols[name]
		vals := make([]float64, len(rightRows))
		for i, j := range rightRows {
			vals[i] = src[j]
		}
		out.order = append(out.order, name)
		out.cols[name] = vals
	}
	return out, nil
}

// DropNaNRows removes every row containing a NaN in any column
func (f *Frame) DropNaNRows() {
	keep := make([]int, 0, len(f.times))
	for i := range f.times {
		hasNaN := false
		for _, name := range f.order {
			if math.IsNaN(f.cols[name][i]) {
				hasNaN = true
				break
			}
		}
		if !hasNaN {
			keep = append(keep, i)
		}
	}
	f.keepRows(keep)
}

// DropRowsMissing removes rows with a NaN in any of the named columns.
// Columns that do not exist are ignored.
func (f *Frame) DropRowsMissing(names ...string) {
	present := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := f.cols[name]; ok {
			present = append(present, name)
		}
	}
	if len(present) == 0 {
		return
	}

	keep := make([]int, 0, len(f.times))
	for i := range f.times {
		hasNaN := false
		for _, name := range present {
			if math.IsNaN(f.cols[name][i]) {
				hasNaN = true
				break
			}
		}
		if !hasNaN {
			keep = append(keep, i)
		}
	}
	f.keepRows(keep)
}

// NaNCount returns the number of NaN values in the named column
func (f *Frame) NaNCount(name string) int {
	count := 0
	for _, v := range f.cols[name] {
		if math.IsNaN(v) {
			count++
		}
	}
	return count
}

func (f *Frame) keepRows(keep []int) {
	times := make([]time.Time, len(keep))
	for i, j := range keep {
		times[i] = f.times[j]
	}
	f.times = times

	for name, vals := range f.cols {
		kept := make([]float64, len(keep))
		for i, j := range keep {
			kept[i] = vals[j]
		}
		f.cols[name] = kept
	}
}

// FormatTime renders a timestamp in the naive local layout
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// ParseTime parses a naive local timestamp in the given location
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, loc)
}
