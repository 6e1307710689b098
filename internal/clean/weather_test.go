package clean

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func weatherHour(hour int, temp, humidity, precip, wind, cloud interface{}) string {
	return fmt.Sprintf(`{"datetime":"%02d:00:00","temp":%v,"humidity":%v,"precip":%v,"windspeed":%v,"cloudcover":%v}`,
		hour, temp, humidity, precip, wind, cloud)
}

func weatherPayloadFor(date string, hoursJSON ...string) []byte {
	body := ""
	for i, h := range hoursJSON {
		if i > 0 {
			body += ","
		}
		body += h
	}
	return []byte(fmt.Sprintf(`{"days":[{"datetime":"%s","hours":[%s]}]}`, date, body))
}

func newWeatherCleaner(t *testing.T) *WeatherCleaner {
	t.Helper()
	c, err := NewWeatherCleaner("UTC", "Asia/Ho_Chi_Minh", nil)
	if err != nil {
		t.Fatalf("failed to create cleaner: %v", err)
	}
	return c
}

func TestWeatherCleanConvertsTimezone(t *testing.T) {
	c := newWeatherCleaner(t)
	date := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)

	payload := weatherPayloadFor("2024-03-07",
		weatherHour(0, 25.0, 80, 0, 10, 50),
		weatherHour(20, 26.5, 75, 0, 12, 40),
	)

	frame, err := c.Clean(payload, date)
	if err != nil {
		t.Fatalf("clean failed: %v", err)
	}

	if frame.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", frame.Len())
	}

	// 00:00 UTC is 07:00 in Ho Chi Minh; 20:00 UTC rolls to 03:00 next day
	if got := frame.Time(0); got.Hour() != 3 || got.Day() != 8 {
		t.Errorf("expected first row 2024-03-08T03:00 after sort, got %v", got)
	}
	if got := frame.Time(1); got.Hour() != 7 || got.Day() != 7 {
		// SortByTime puts 03:00 on the 8th after 07:00 on the 7th
		t.Errorf("expected 2024-03-07T07:00, got %v", got)
	}
}

func TestWeatherCleanColumnOrder(t *testing.T) {
	c := newWeatherCleaner(t)
	payload := weatherPayloadFor("2024-03-07", weatherHour(1, 25.0, 80, 0, 10, 50))

	frame, err := c.Clean(payload, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("clean failed: %v", err)
	}

	cols := frame.Columns()
	for i, want := range WeatherColumns {
		if cols[i] != want {
			t.Errorf("column %d: expected %s, got %s", i, want, cols[i])
		}
	}
}

func TestWeatherCleanCoercesBadValues(t *testing.T) {
	c := newWeatherCleaner(t)
	payload := weatherPayloadFor("2024-03-07",
		weatherHour(1, 25.0, 80, 0, 10, 50),
		weatherHour(2, `"broken"`, 81, 0, 11, 51),
	)

	frame, err := c.Clean(payload, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unparseable value should not fail the payload: %v", err)
	}

	// The broken temperature gets forward filled from the previous hour
	temps, _ := frame.Column("temperature")
	if temps[1] != 25.0 {
		t.Errorf("expected filled temperature 25.0, got %v", temps[1])
	}
}

func TestWeatherCleanDedupKeepsFirst(t *testing.T) {
	c := newWeatherCleaner(t)
	payload := weatherPayloadFor("2024-03-07",
		weatherHour(1, 25.0, 80, 0, 10, 50),
		weatherHour(1, 30.0, 80, 0, 10, 50),
	)

	frame, err := c.Clean(payload, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	if frame.Len() != 1 {
		t.Fatalf("expected 1 row after dedup, got %d", frame.Len())
	}

	temps, _ := frame.Column("temperature")
	if temps[0] != 25.0 {
		t.Errorf("expected first occurrence kept, got %v", temps[0])
	}
}

func TestWeatherCleanDropsOutOfRangeRows(t *testing.T) {
	c := newWeatherCleaner(t)
	payload := weatherPayloadFor("2024-03-07",
		weatherHour(1, 25.0, 80, 0, 10, 50),
		weatherHour(2, 55.0, 80, 0, 10, 50), // sensor spike outside Vietnam range
		weatherHour(3, 26.0, 80, 0, 120, 50),
	)

	frame, err := c.Clean(payload, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	if frame.Len() != 1 {
		t.Fatalf("expected 1 row after range filter, got %d", frame.Len())
	}

	temps, _ := frame.Column("temperature")
	if temps[0] != 25.0 {
		t.Errorf("unexpected surviving row: %v", temps[0])
	}
}

func TestWeatherCleanBadPayload(t *testing.T) {
	c := newWeatherCleaner(t)
	date := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)

	cases := map[string][]byte{
		"not json":   []byte("<html>"),
		"no days":    []byte(`{"queryCost": 1}`),
		"empty days": []byte(`{"days":[]}`),
		"no hours":   []byte(`{"days":[{"datetime":"2024-03-07"}]}`),
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Clean(payload, date)
			if !errors.Is(err, ErrBadPayload) {
				t.Fatalf("expected ErrBadPayload, got %v", err)
			}
		})
	}
}

func TestWeatherValidate(t *testing.T) {
	c := newWeatherCleaner(t)
	payload := weatherPayloadFor("2024-03-07", weatherHour(1, 25.0, 80, 0, 10, 50))

	frame, err := c.Clean(payload, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(frame); err != nil {
		t.Errorf("expected valid frame: %v", err)
	}

	frame.Drop("humidity")
	if err := c.Validate(frame); err == nil {
		t.Error("expected error for missing column")
	}
}
