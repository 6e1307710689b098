package timeseries

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func hours(start time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return out
}

func almostEqual(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return math.Abs(a-b) < 1e-9
}

func TestAddColumnLengthMismatch(t *testing.T) {
	f := New(hours(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 3))

	if err := f.AddColumn("temperature", []float64{1, 2}); err == nil {
		t.Fatal("expected error for mismatched column length")
	}

	if err := f.AddColumn("temperature", []float64{1, 2, 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := f.AddColumn("temperature", []float64{4, 5, 6}); err == nil {
		t.Fatal("expected error for duplicate column")
	}
}

func TestSortByTime(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f := New([]time.Time{
		base.Add(2 * time.Hour),
		base,
		base.Add(1 * time.Hour),
	})
	if err := f.AddColumn("v", []float64{2, 0, 1}); err != nil {
		t.Fatal(err)
	}

	f.SortByTime()

	if !f.IsStrictlyAscending() {
		t.Fatal("expected ascending index after sort")
	}

	vals, _ := f.Column("v")
	for i, want := range []float64{0, 1, 2} {
		if vals[i] != want {
			t.Errorf("row %d: expected %v, got %v", i, want, vals[i])
		}
	}
}

func TestDedupKeepFirst(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f := New([]time.Time{base, base, base.Add(time.Hour)})
	if err := f.AddColumn("v", []float64{10, 99, 20}); err != nil {
		t.Fatal(err)
	}

	f.DedupKeepFirst()

	if f.Len() != 2 {
		t.Fatalf("expected 2 rows after dedup, got %d", f.Len())
	}

	vals, _ := f.Column("v")
	if vals[0] != 10 {
		t.Errorf("expected first occurrence kept, got %v", vals[0])
	}
}

func TestInnerJoin(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	left := New(hours(base, 4))
	if err := left.AddColumn("demand", []float64{100, 101, 102, 103}); err != nil {
		t.Fatal(err)
	}

	// Right is missing hour 1 and has an extra hour 4
	right := New([]time.Time{base, base.Add(2 * time.Hour), base.Add(3 * time.Hour), base.Add(4 * time.Hour)})
	if err := right.AddColumn("temperature", []float64{25, 27, 28, 29}); err != nil {
		t.Fatal(err)
	}

	joined, err := left.InnerJoin(right)
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}

	if joined.Len() != 3 {
		t.Fatalf("expected 3 common rows, got %d", joined.Len())
	}

	cols := joined.Columns()
	if cols[0] != "demand" || cols[1] != "temperature" {
		t.Errorf("unexpected column order: %v", cols)
	}

	demand, _ := joined.Column("demand")
	temp, _ := joined.Column("temperature")
	if demand[1] != 102 || temp[1] != 27 {
		t.Errorf("row 1 mismatched: demand=%v temp=%v", demand[1], temp[1])
	}
}

func TestInnerJoinColumnCollision(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	left := New(hours(base, 2))
	_ = left.AddColumn("v", []float64{1, 2})
	right := New(hours(base, 2))
	_ = right.AddColumn("v", []float64{3, 4})

	if _, err := left.InnerJoin(right); err == nil {
		t.Fatal("expected error for colliding column names")
	}
}

func TestInterpolateShortGap(t *testing.T) {
	nan := math.NaN()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f := New(hours(base, 5))
	_ = f.AddColumn("v", []float64{10, nan, nan, nan, 50})

	f.Interpolate("v", 3)

	vals, _ := f.Column("v")
	want := []float64{10, 20, 30, 40, 50}
	for i := range want {
		if !almostEqual(vals[i], want[i]) {
			t.Errorf("row %d: expected %v, got %v", i, want[i], vals[i])
		}
	}
}

func TestInterpolateLongGapLeavesMiddle(t *testing.T) {
	nan := math.NaN()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// 8-hour gap with limit 3: three filled from each side, two NaN left
	values := []float64{0, nan, nan, nan, nan, nan, nan, nan, nan, 90}
	f := New(hours(base, len(values)))
	_ = f.AddColumn("v", values)

	f.Interpolate("v", 3)

	vals, _ := f.Column("v")
	for _, i := range []int{1, 2, 3, 6, 7, 8} {
		if math.IsNaN(vals[i]) {
			t.Errorf("row %d: expected interpolated value, got NaN", i)
		}
	}
	for _, i := range []int{4, 5} {
		if !math.IsNaN(vals[i]) {
			t.Errorf("row %d: expected NaN in gap middle, got %v", i, vals[i])
		}
	}

	// Filled values lie on the line between the anchors
	if !almostEqual(vals[1], 10) || !almostEqual(vals[8], 80) {
		t.Errorf("interpolated edges wrong: %v, %v", vals[1], vals[8])
	}
}

func TestInterpolateEdges(t *testing.T) {
	nan := math.NaN()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f := New(hours(base, 6))
	_ = f.AddColumn("v", []float64{nan, nan, 5, 6, nan, nan})

	f.Interpolate("v", 3)

	vals, _ := f.Column("v")
	// Leading gap pads backward from the first anchor, trailing forward
	want := []float64{5, 5, 5, 6, 6, 6}
	for i := range want {
		if !almostEqual(vals[i], want[i]) {
			t.Errorf("row %d: expected %v, got %v", i, want[i], vals[i])
		}
	}
}

func TestForwardBackwardFill(t *testing.T) {
	nan := math.NaN()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f := New(hours(base, 5))
	_ = f.AddColumn("v", []float64{nan, 2, nan, nan, 5})

	f.ForwardFill("v")
	vals, _ := f.Column("v")
	if !math.IsNaN(vals[0]) {
		t.Error("forward fill should not touch leading NaN")
	}
	if vals[2] != 2 || vals[3] != 2 {
		t.Errorf("expected forward filled 2s, got %v %v", vals[2], vals[3])
	}

	f.BackwardFill("v")
	vals, _ = f.Column("v")
	if vals[0] != 2 {
		t.Errorf("expected backward filled leading value 2, got %v", vals[0])
	}
}

func TestMedian(t *testing.T) {
	nan := math.NaN()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f := New(hours(base, 5))
	_ = f.AddColumn("v", []float64{3, nan, 1, 2, nan})

	if got := f.Median("v"); got != 2 {
		t.Errorf("expected median 2, got %v", got)
	}

	_ = f.AddColumn("empty", []float64{nan, nan, nan, nan, nan})
	if got := f.Median("empty"); !math.IsNaN(got) {
		t.Errorf("expected NaN median for all-NaN column, got %v", got)
	}
}

func TestShift(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f := New(hours(base, 4))
	_ = f.AddColumn("v", []float64{1, 2, 3, 4})

	shifted, ok := f.Shift("v", 2)
	if !ok {
		t.Fatal("expected column to exist")
	}

	if !math.IsNaN(shifted[0]) || !math.IsNaN(shifted[1]) {
		t.Error("expected NaN padding at the start")
	}
	if shifted[2] != 1 || shifted[3] != 2 {
		t.Errorf("expected shifted values 1,2, got %v,%v", shifted[2], shifted[3])
	}
}

func TestRollingIsTrailing(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f := New(hours(base, 6))
	_ = f.AddColumn("v", []float64{1, 2, 3, 4, 5, 6})

	mean, _ := f.RollingMean("v", 3)

	if !math.IsNaN(mean[0]) || !math.IsNaN(mean[1]) {
		t.Error("expected NaN before a full window")
	}
	if !almostEqual(mean[2], 2) || !almostEqual(mean[5], 5) {
		t.Errorf("unexpected trailing means: %v, %v", mean[2], mean[5])
	}

	// Changing a later value must not change earlier windows
	g := New(hours(base, 6))
	_ = g.AddColumn("v", []float64{1, 2, 3, 4, 5, 1000})
	mean2, _ := g.RollingMean("v", 3)
	for i := 0; i < 5; i++ {
		if !almostEqual(mean[i], mean2[i]) {
			t.Errorf("row %d: rolling mean looked ahead: %v vs %v", i, mean[i], mean2[i])
		}
	}
}

func TestRollingStd(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f := New(hours(base, 4))
	_ = f.AddColumn("v", []float64{2, 4, 4, 4})

	std, _ := f.RollingStd("v", 3)
	// Sample std of [2,4,4] is 2/sqrt(3)
	if !almostEqual(std[2], 2/math.Sqrt(3)) {
		t.Errorf("unexpected std: %v", std[2])
	}
	if !almostEqual(std[3], 0) {
		t.Errorf("expected zero std for constant window, got %v", std[3])
	}
}

func TestDropNaNRows(t *testing.T) {
	nan := math.NaN()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f := New(hours(base, 4))
	_ = f.AddColumn("a", []float64{1, nan, 3, 4})
	_ = f.AddColumn("b", []float64{1, 2, nan, 4})

	f.DropNaNRows()

	if f.Len() != 2 {
		t.Fatalf("expected 2 clean rows, got %d", f.Len())
	}
	a, _ := f.Column("a")
	if a[0] != 1 || a[1] != 4 {
		t.Errorf("unexpected surviving rows: %v", a)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	nan := math.NaN()
	base := time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC)
	f := New(hours(base, 3))
	_ = f.AddColumn("electricity_demand", []float64{100.5, nan, 102})
	_ = f.AddColumn("temperature", []float64{25, 26, nan})

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var restored Frame
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if restored.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", restored.Len())
	}

	cols := restored.Columns()
	if cols[0] != "electricity_demand" || cols[1] != "temperature" {
		t.Errorf("column order not preserved: %v", cols)
	}

	demand, _ := restored.Column("electricity_demand")
	if !almostEqual(demand[0], 100.5) || !math.IsNaN(demand[1]) {
		t.Errorf("values not preserved: %v", demand)
	}

	if !restored.Time(0).Equal(time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp not preserved: %v", restored.Time(0))
	}
}

func TestSliceAndTail(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f := New(hours(base, 10))
	vals := make([]float64, 10)
	for i := range vals {
		vals[i] = float64(i)
	}
	_ = f.AddColumn("v", vals)

	tail := f.Tail(3)
	if tail.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", tail.Len())
	}
	tv, _ := tail.Column("v")
	if tv[0] != 7 {
		t.Errorf("expected tail to start at 7, got %v", tv[0])
	}

	// Mutating the tail must not touch the source
	tv[0] = -1
	orig, _ := f.Column("v")
	if orig[7] != 7 {
		t.Error("slice should be a copy")
	}
}
