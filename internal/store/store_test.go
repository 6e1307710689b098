package store

import (
	"errors"
	"testing"
	"time"

	"github.com/gridcast/gridcast/internal/timeseries"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), "vietnam-energy-data")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestPathConventions(t *testing.T) {
	ts := time.Date(2024, 3, 7, 9, 30, 0, 0, time.UTC)

	if got := HourlyFrameKey(LayerSilver, "weather", ts); got != "silver/weather/year=2024/month=03/day=07/09_30.json.sz" {
		t.Errorf("unexpected hourly key: %s", got)
	}

	if got := DailyFrameKey(LayerGold, "canonical", ts); got != "gold/canonical/year=2024/month=03/day=07/data.json.sz" {
		t.Errorf("unexpected daily key: %s", got)
	}

	if got := MonthlyFrameKey(LayerGold, "canonical", ts); got != "gold/canonical/year=2024/month=03/data.json.sz" {
		t.Errorf("unexpected monthly key: %s", got)
	}

	if got := HourlyRawKey(LayerBronze, "electricity", ts); got != "bronze/electricity/year=2024/month=03/day=07/09_30.json" {
		t.Errorf("unexpected raw key: %s", got)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	frame := timeseries.New([]time.Time{base, base.Add(time.Hour)})
	if err := frame.AddColumn("total_load", []float64{38000, 39250.5}); err != nil {
		t.Fatal(err)
	}

	key := DailyFrameKey(LayerSilver, "electricity", base)
	if err := s.WriteFrame(key, frame); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	exists, err := s.Exists(key)
	if err != nil || !exists {
		t.Fatalf("expected object to exist: %v", err)
	}

	restored, err := s.ReadFrame(key)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if restored.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", restored.Len())
	}
	vals, _ := restored.Column("total_load")
	if vals[1] != 39250.5 {
		t.Errorf("value not preserved: %v", vals[1])
	}
}

func TestReadMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ReadFrame("gold/canonical/year=2024/month=01/day=01/data.json.sz")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteMissingIsNoError(t *testing.T) {
	s := newTestStore(t)

	if err := s.Delete("silver/weather/year=2024/month=01/day=01/00_30.json.sz"); err != nil {
		t.Fatalf("deleting a missing object should succeed: %v", err)
	}
}

func TestListHourlyFiles(t *testing.T) {
	s := newTestStore(t)

	day := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	frame := timeseries.New([]time.Time{day})
	_ = frame.AddColumn("temp", []float64{25})

	// Write hours out of order to check sorting
	for _, h := range []int{14, 2, 9} {
		ts := day.Add(time.Duration(h) * time.Hour)
		if err := s.WriteFrame(HourlyFrameKey(LayerSilver, "weather", ts), frame); err != nil {
			t.Fatal(err)
		}
	}
	// A daily object in the same partition must not be listed as hourly
	if err := s.WriteFrame(DailyFrameKey(LayerSilver, "weather", day), frame); err != nil {
		t.Fatal(err)
	}

	keys, err := s.List(DayDir(LayerSilver, "weather", day))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(keys) != 4 {
		t.Fatalf("expected 4 objects, got %d", len(keys))
	}

	hourly := make([]string, 0, 3)
	for _, k := range keys {
		if k != DailyFrameKey(LayerSilver, "weather", day) {
			hourly = append(hourly, k)
		}
	}
	want := []string{
		"silver/weather/year=2024/month=03/day=07/02_30.json.sz",
		"silver/weather/year=2024/month=03/day=07/09_30.json.sz",
		"silver/weather/year=2024/month=03/day=07/14_30.json.sz",
	}
	for i := range want {
		if hourly[i] != want[i] {
			t.Errorf("key %d: expected %s, got %s", i, want[i], hourly[i])
		}
	}
}

func TestListMissingDirIsEmpty(t *testing.T) {
	s := newTestStore(t)

	keys, err := s.List("silver/weather/year=2030/month=01/day=01")
	if err != nil {
		t.Fatalf("listing a missing partition should succeed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys, got %v", keys)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	s := newTestStore(t)

	type record struct {
		ModelVersion string  `json:"model_version"`
		Value        float64 `json:"value"`
	}

	key := "gold/predictions/year=2024/month=03/day=07/10_00.json"
	if err := s.WriteJSON(key, record{ModelVersion: "v1.0.1709800000", Value: 41000}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var got record
	if err := s.ReadJSON(key, &got); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.ModelVersion != "v1.0.1709800000" || got.Value != 41000 {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestCopy(t *testing.T) {
	s := newTestStore(t)

	if err := s.WriteRaw("models/gbt/v1/model.json.sz", []byte("payload")); err != nil {
		t.Fatal(err)
	}
	if err := s.Copy("models/gbt/v1/model.json.sz", "models/gbt/latest/model.json.sz"); err != nil {
		t.Fatalf("copy failed: %v", err)
	}

	data, err := s.ReadRaw("models/gbt/latest/model.json.sz")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("unexpected copy contents: %s", data)
	}
}
