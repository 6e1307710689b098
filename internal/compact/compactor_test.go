package compact

import (
	"testing"
	"time"

	"github.com/gridcast/gridcast/internal/store"
	"github.com/gridcast/gridcast/internal/timeseries"
)

func newTestCompactor(t *testing.T) (*Compactor, *store.Store) {
	t.Helper()
	s, err := store.New(t.TempDir(), "vietnam-energy-data")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	c, err := New(s, "Asia/Ho_Chi_Minh", nil)
	if err != nil {
		t.Fatalf("failed to create compactor: %v", err)
	}
	return c, s
}

func hourFrame(t *testing.T, ts time.Time, load float64) *timeseries.Frame {
	t.Helper()
	f := timeseries.New([]time.Time{ts})
	if err := f.AddColumn("total_load", []float64{load}); err != nil {
		t.Fatal(err)
	}
	return f
}

func writeHour(t *testing.T, s *store.Store, layer, source string, ts time.Time, load float64) {
	t.Helper()
	if err := s.WriteFrame(store.HourlyFrameKey(layer, source, ts), hourFrame(t, ts, load)); err != nil {
		t.Fatal(err)
	}
}

func writeDay(t *testing.T, s *store.Store, layer, source string, day time.Time, rows int) {
	t.Helper()
	times := make([]time.Time, rows)
	vals := make([]float64, rows)
	for i := range times {
		times[i] = day.Add(time.Duration(i) * time.Hour)
		vals[i] = 38000 + float64(i)
	}
	f := timeseries.New(times)
	if err := f.AddColumn("total_load", vals); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteFrame(store.DailyFrameKey(layer, source, day), f); err != nil {
		t.Fatal(err)
	}
}

func TestHourlyToDaily(t *testing.T) {
	c, s := newTestCompactor(t)
	day := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)

	// Written out of order to check the merged frame is sorted
	writeHour(t, s, store.LayerSilver, "electricity", day.Add(14*time.Hour), 40000)
	writeHour(t, s, store.LayerSilver, "electricity", day.Add(2*time.Hour), 37000)
	writeHour(t, s, store.LayerSilver, "electricity", day.Add(9*time.Hour), 39000)

	res, err := c.HourlyToDaily(store.LayerSilver, "electricity", day)
	if err != nil {
		t.Fatalf("compaction failed: %v", err)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", res.Status, res.Detail)
	}
	if res.FilesMerged != 3 || res.FilesDeleted != 3 || res.RowsWritten != 3 {
		t.Errorf("unexpected result: %+v", res)
	}

	daily, err := s.ReadFrame(store.DailyFrameKey(store.LayerSilver, "electricity", day))
	if err != nil {
		t.Fatalf("daily partition missing: %v", err)
	}
	if !daily.IsStrictlyAscending() {
		t.Error("expected sorted daily frame")
	}
	load, _ := daily.Column("total_load")
	if load[0] != 37000 {
		t.Errorf("expected earliest hour first, got %v", load[0])
	}

	// Hourly files are gone after the daily write
	for _, h := range []int{2, 9, 14} {
		exists, _ := s.Exists(store.HourlyFrameKey(store.LayerSilver, "electricity", day.Add(time.Duration(h)*time.Hour)))
		if exists {
			t.Errorf("hourly partition for hour %d should be deleted", h)
		}
	}
}

func TestHourlyToDailyIdempotent(t *testing.T) {
	c, s := newTestCompactor(t)
	day := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)

	writeHour(t, s, store.LayerSilver, "electricity", day.Add(1*time.Hour), 38000)

	first, err := c.HourlyToDaily(store.LayerSilver, "electricity", day)
	if err != nil || first.Status != StatusSuccess {
		t.Fatalf("first run failed: %v %+v", err, first)
	}

	second, err := c.HourlyToDaily(store.LayerSilver, "electricity", day)
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if second.Status != StatusAlreadyCompacted {
		t.Errorf("expected already_compacted on rerun, got %s", second.Status)
	}
}

func TestHourlyToDailyNoFiles(t *testing.T) {
	c, _ := newTestCompactor(t)

	res, err := c.HourlyToDaily(store.LayerSilver, "electricity", time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusNoFiles {
		t.Errorf("expected no_files, got %s", res.Status)
	}
}

func TestHourlyToDailyRecompactsLeftovers(t *testing.T) {
	c, s := newTestCompactor(t)
	day := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)

	// A daily covering hours 0-1 plus a later hourly, as when a backfill
	// wrote the day directly and hourly processing added an hour
	writeDay(t, s, store.LayerSilver, "electricity", day, 2)
	writeHour(t, s, store.LayerSilver, "electricity", day.Add(5*time.Hour), 39500)

	res, err := c.HourlyToDaily(store.LayerSilver, "electricity", day)
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("expected leftover hourly files to re-compact, got %s", res.Status)
	}

	daily, err := s.ReadFrame(store.DailyFrameKey(store.LayerSilver, "electricity", day))
	if err != nil {
		t.Fatalf("daily partition missing: %v", err)
	}
	if daily.Len() != 3 {
		t.Fatalf("expected daily rows plus the leftover hour, got %d rows", daily.Len())
	}
	load, _ := daily.Column("total_load")
	if load[0] != 38000 || load[1] != 38001 || load[2] != 39500 {
		t.Errorf("unexpected merged values: %v", load)
	}

	exists, _ := s.Exists(store.HourlyFrameKey(store.LayerSilver, "electricity", day.Add(5*time.Hour)))
	if exists {
		t.Error("leftover hourly file should be deleted after rerun")
	}
}

func TestHourlyToDailyKeepsExistingDailyRows(t *testing.T) {
	c, s := newTestCompactor(t)
	day := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)

	// A crash between the daily write and the delete loop leaves the
	// full daily plus a surviving hourly for an hour the daily already
	// covers. The rerun must not shrink the daily to the survivors.
	writeDay(t, s, store.LayerGold, "canonical", day, 24)
	writeHour(t, s, store.LayerGold, "canonical", day.Add(5*time.Hour), 39500)

	res, err := c.HourlyToDaily(store.LayerGold, "canonical", day)
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", res.Status, res.Detail)
	}

	daily, err := s.ReadFrame(store.DailyFrameKey(store.LayerGold, "canonical", day))
	if err != nil {
		t.Fatalf("daily partition missing: %v", err)
	}
	if daily.Len() != 24 {
		t.Fatalf("daily partition lost rows: have %d, want 24", daily.Len())
	}
	load, _ := daily.Column("total_load")
	if load[5] != 38005 {
		t.Errorf("daily row for hour 5 must win over the leftover hourly, got %v", load[5])
	}

	exists, _ := s.Exists(store.HourlyFrameKey(store.LayerGold, "canonical", day.Add(5*time.Hour)))
	if exists {
		t.Error("surviving hourly file should be deleted after rerun")
	}
}

func TestDailyToMonthlyNotElapsed(t *testing.T) {
	c, _ := newTestCompactor(t)
	c.now = func() time.Time { return time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC) }

	res, err := c.DailyToMonthly(store.LayerGold, "canonical", 2024, time.March)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusMonthNotElapsed {
		t.Errorf("expected month_not_elapsed, got %s", res.Status)
	}
}

func TestDailyToMonthlyIncomplete(t *testing.T) {
	c, s := newTestCompactor(t)
	c.now = func() time.Time { return time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC) }

	// February 2024 has 29 days; only write 3
	for d := 1; d <= 3; d++ {
		writeDay(t, s, store.LayerGold, "canonical", time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC), 24)
	}

	res, err := c.DailyToMonthly(store.LayerGold, "canonical", 2024, time.February)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusIncompleteData {
		t.Fatalf("expected incomplete_data, got %s", res.Status)
	}

	// Nothing deleted, nothing written
	for d := 1; d <= 3; d++ {
		exists, _ := s.Exists(store.DailyFrameKey(store.LayerGold, "canonical", time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC)))
		if !exists {
			t.Errorf("daily partition for day %d must survive incomplete compaction", d)
		}
	}
	monthKey := store.MonthlyFrameKey(store.LayerGold, "canonical", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	if exists, _ := s.Exists(monthKey); exists {
		t.Error("monthly partition must not be written for incomplete month")
	}
}

func TestDailyToMonthlySuccess(t *testing.T) {
	c, s := newTestCompactor(t)
	c.now = func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }

	for d := 1; d <= 29; d++ {
		writeDay(t, s, store.LayerGold, "canonical", time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC), 24)
	}

	res, err := c.DailyToMonthly(store.LayerGold, "canonical", 2024, time.February)
	if err != nil {
		t.Fatalf("compaction failed: %v", err)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", res.Status, res.Detail)
	}
	if res.FilesMerged != 29 || res.RowsWritten != 29*24 {
		t.Errorf("unexpected result: %+v", res)
	}

	monthKey := store.MonthlyFrameKey(store.LayerGold, "canonical", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	monthly, err := s.ReadFrame(monthKey)
	if err != nil {
		t.Fatalf("monthly partition missing: %v", err)
	}
	if !monthly.IsStrictlyAscending() {
		t.Error("expected sorted monthly frame")
	}

	// Daily partitions deleted after the monthly write
	for d := 1; d <= 29; d++ {
		exists, _ := s.Exists(store.DailyFrameKey(store.LayerGold, "canonical", time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC)))
		if exists {
			t.Errorf("daily partition for day %d should be deleted", d)
		}
	}

	// Rerun is a no-op
	again, err := c.DailyToMonthly(store.LayerGold, "canonical", 2024, time.February)
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if again.Status != StatusAlreadyCompacted {
		t.Errorf("expected already_compacted, got %s", again.Status)
	}
}

func TestDailyToMonthlyNoFiles(t *testing.T) {
	c, _ := newTestCompactor(t)
	c.now = func() time.Time { return time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC) }

	res, err := c.DailyToMonthly(store.LayerGold, "canonical", 2024, time.January)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusNoFiles {
		t.Errorf("expected no_files, got %s", res.Status)
	}
}

func TestMonthElapsedBoundary(t *testing.T) {
	c, _ := newTestCompactor(t)

	// Business timezone is UTC+7: 2024-03-31 18:00 UTC is already
	// April 1st in Ho Chi Minh, so March is elapsed.
	c.now = func() time.Time { return time.Date(2024, 3, 31, 18, 0, 0, 0, time.UTC) }
	if !c.monthElapsed(2024, time.March) {
		t.Error("expected March elapsed once local calendar reads April 1st")
	}

	// 2024-03-31 12:00 UTC is still March 31st locally
	c.now = func() time.Time { return time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC) }
	if c.monthElapsed(2024, time.March) {
		t.Error("March must not be elapsed while its last day is still running")
	}
}

func TestCleanupHourly(t *testing.T) {
	c, s := newTestCompactor(t)
	day := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)

	writeHour(t, s, store.LayerGold, "canonical", day.Add(3*time.Hour), 38000)

	// Without a daily partition cleanup must refuse
	res, err := c.CleanupHourly(store.LayerGold, "canonical", day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusDailyNotFound {
		t.Fatalf("expected daily_not_found, got %s", res.Status)
	}
	if exists, _ := s.Exists(store.HourlyFrameKey(store.LayerGold, "canonical", day.Add(3*time.Hour))); !exists {
		t.Fatal("hourly file must survive a refused cleanup")
	}

	writeDay(t, s, store.LayerGold, "canonical", day, 24)

	res, err = c.CleanupHourly(store.LayerGold, "canonical", day)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if res.Status != StatusSuccess || res.FilesDeleted != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	// Second cleanup finds nothing to do
	res, err = c.CleanupHourly(store.LayerGold, "canonical", day)
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if res.Status != StatusAlreadyCompacted {
		t.Errorf("expected already_compacted, got %s", res.Status)
	}
}
