package store

import (
	"fmt"
	"path"
	"time"
)

// Data layers
const (
	LayerBronze = "bronze"
	LayerSilver = "silver"
	LayerGold   = "gold"
)

// Object name suffixes. Frames are snappy-compressed JSON; raw provider
// payloads and small metadata documents are plain JSON.
const (
	ExtFrame = ".json.sz"
	ExtRaw   = ".json"
)

// DayDir returns the hive-style partition directory for a calendar day:
// {layer}/{source}/year=YYYY/month=MM/day=DD
func DayDir(layer, source string, day time.Time) string {
	return path.Join(
		layer,
		source,
		fmt.Sprintf("year=%04d", day.Year()),
		fmt.Sprintf("month=%02d", int(day.Month())),
		fmt.Sprintf("day=%02d", day.Day()),
	)
}

// MonthDir returns the partition directory for a calendar month:
// {layer}/{source}/year=YYYY/month=MM
func MonthDir(layer, source string, month time.Time) string {
	return path.Join(
		layer,
		source,
		fmt.Sprintf("year=%04d", month.Year()),
		fmt.Sprintf("month=%02d", int(month.Month())),
	)
}

// HourlyFrameKey returns the object key for one hour of cleaned data.
// The _30 suffix marks files collected at half past the hour.
func HourlyFrameKey(layer, source string, ts time.Time) string {
	return path.Join(DayDir(layer, source, ts), fmt.Sprintf("%02d_30%s", ts.Hour(), ExtFrame))
}

// HourlyRawKey returns the object key for one hour of raw provider data
func HourlyRawKey(layer, source string, ts time.Time) string {
	return path.Join(DayDir(layer, source, ts), fmt.Sprintf("%02d_30%s", ts.Hour(), ExtRaw))
}

// DailyFrameKey returns the object key for a compacted daily frame
func DailyFrameKey(layer, source string, day time.Time) string {
	return path.Join(DayDir(layer, source, day), "data"+ExtFrame)
}

// MonthlyFrameKey returns the object key for a compacted monthly frame
func MonthlyFrameKey(layer, source string, month time.Time) string {
	return path.Join(MonthDir(layer, source, month), "data"+ExtFrame)
}
