// Package compact merges small hourly partitions into daily partitions
// and daily partitions into monthly ones. Superseded files are deleted
// only after the merged file is durably written, so a crash mid-run is
// always re-runnable.
package compact

import (
	"fmt"
	"strings"
	"time"

	"github.com/gridcast/gridcast/internal/logging"
	"github.com/gridcast/gridcast/internal/store"
	"github.com/gridcast/gridcast/internal/timeseries"
)

// Status is the closed set of compaction outcomes
type Status string

const (
	StatusSuccess          Status = "success"
	StatusNoFiles          Status = "no_files"
	StatusAlreadyCompacted Status = "already_compacted"
	StatusIncompleteData   Status = "incomplete_data"
	StatusMonthNotElapsed  Status = "month_not_elapsed"
	StatusDailyNotFound    Status = "daily_not_found"
	StatusError            Status = "error"
)

// Result reports what one compaction invocation did
type Result struct {
	Status       Status `json:"status"`
	FilesMerged  int    `json:"files_merged"`
	RowsWritten  int    `json:"rows_written"`
	FilesDeleted int    `json:"files_deleted"`
	Detail       string `json:"detail,omitempty"`
}

// Compactor performs partition compaction against one store
type Compactor struct {
	store    *store.Store
	targetTZ *time.Location
	logger   *logging.Logger

	// now is injectable so month-elapsed checks are testable
	now func() time.Time
}

// New creates a compactor. Month eligibility is evaluated in targetTZ.
func New(s *store.Store, targetTZ string, logger *logging.Logger) (*Compactor, error) {
	loc, err := time.LoadLocation(targetTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid target timezone %q: %w", targetTZ, err)
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &Compactor{store: s, targetTZ: loc, logger: logger, now: time.Now}, nil
}

// HourlyToDaily merges every hourly partition of one day into a single
// daily partition, then deletes the hourly files. An existing daily
// partition is folded into the merge, so re-running after a crash
// between the daily write and the delete loop keeps every row.
// Re-running after the hourly files are gone reports already_compacted
// (or no_files when nothing was ever written).
func (c *Compactor) HourlyToDaily(layer, source string, day time.Time) (*Result, error) {
	dir := store.DayDir(layer, source, day)
	dailyKey := store.DailyFrameKey(layer, source, day)

	hourlyKeys, err := c.listHourly(dir, dailyKey)
	if err != nil {
		return &Result{Status: StatusError, Detail: err.Error()}, err
	}
	dailyExists, err := c.store.Exists(dailyKey)
	if err != nil {
		return &Result{Status: StatusError, Detail: err.Error()}, err
	}

	if len(hourlyKeys) == 0 {
		if dailyExists {
			return &Result{Status: StatusAlreadyCompacted}, nil
		}
		return &Result{Status: StatusNoFiles}, nil
	}

	frames := make([]*timeseries.Frame, 0, len(hourlyKeys)+1)

	// The existing daily joins the merge first; the sort is stable and
	// dedup keeps the first row, so its rows win duplicate timestamps
	// over leftover hourlies
	if dailyExists {
		daily, err := c.store.ReadFrame(dailyKey)
		if err != nil {
			return &Result{Status: StatusError, Detail: err.Error()},
				fmt.Errorf("failed to read %s: %w", dailyKey, err)
		}
		frames = append(frames, daily)
	}
	for _, key := range hourlyKeys {
		frame, err := c.store.ReadFrame(key)
		if err != nil {
			return &Result{Status: StatusError, Detail: err.Error()},
				fmt.Errorf("failed to read %s: %w", key, err)
		}
		frames = append(frames, frame)
	}

	merged, err := timeseries.Concat(frames...)
	if err != nil {
		return &Result{Status: StatusError, Detail: err.Error()},
			fmt.Errorf("failed to merge hourly frames for %s: %w", dir, err)
	}
	merged.SortByTime()
	merged.DedupKeepFirst()

	if err := c.store.WriteFrame(dailyKey, merged); err != nil {
		return &Result{Status: StatusError, Detail: err.Error()}, err
	}

	deleted := c.deleteAll(hourlyKeys)

	c.logger.Info("Compacted hourly partitions to daily",
		"layer", layer, "source", source, "date", day.Format("2006-01-02"),
		"files", len(hourlyKeys), "rows", merged.Len())

	return &Result{
		Status:       StatusSuccess,
		FilesMerged:  len(hourlyKeys),
		RowsWritten:  merged.Len(),
		FilesDeleted: deleted,
	}, nil
}

// DailyToMonthly merges the daily partitions of one calendar month into
// a single monthly partition. The month must be fully elapsed in the
// business timezone and every calendar day must be present; otherwise
// nothing is written and nothing is deleted.
func (c *Compactor) DailyToMonthly(layer, source string, year int, month time.Month) (*Result, error) {
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	monthlyKey := store.MonthlyFrameKey(layer, source, monthStart)

	if !c.monthElapsed(year, month) {
		return &Result{
			Status: StatusMonthNotElapsed,
			Detail: fmt.Sprintf("%04d-%02d has not fully elapsed", year, month),
		}, nil
	}

	monthlyExists, err := c.store.Exists(monthlyKey)
	if err != nil {
		return &Result{Status: StatusError, Detail: err.Error()}, err
	}
	if monthlyExists {
		return &Result{Status: StatusAlreadyCompacted}, nil
	}

	expected := daysInMonth(year, month)
	var dailyKeys []string
	frames := make([]*timeseries.Frame, 0, expected)
	for d := 1; d <= expected; d++ {
		day := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
		key := store.DailyFrameKey(layer, source, day)
		exists, err := c.store.Exists(key)
		if err != nil {
			return &Result{Status: StatusError, Detail: err.Error()}, err
		}
		if !exists {
			continue
		}
		frame, err := c.store.ReadFrame(key)
		if err != nil {
			return &Result{Status: StatusError, Detail: err.Error()},
				fmt.Errorf("failed to read %s: %w", key, err)
		}
		dailyKeys = append(dailyKeys, key)
		frames = append(frames, frame)
	}

	if len(dailyKeys) == 0 {
		return &Result{Status: StatusNoFiles}, nil
	}
	if len(dailyKeys) < expected {
		c.logger.Warn("Month has missing daily partitions, keeping daily files",
			"layer", layer, "source", source,
			"year", year, "month", int(month),
			"found", len(dailyKeys), "expected", expected)
		return &Result{
			Status:      StatusIncompleteData,
			FilesMerged: len(dailyKeys),
			Detail:      fmt.Sprintf("found %d of %d daily partitions", len(dailyKeys), expected),
		}, nil
	}

	merged, err := timeseries.Concat(frames...)
	if err != nil {
		return &Result{Status: StatusError, Detail: err.Error()},
			fmt.Errorf("failed to merge daily frames for %04d-%02d: %w", year, month, err)
	}
	merged.SortByTime()
	merged.DedupKeepFirst()

	if err := c.store.WriteFrame(monthlyKey, merged); err != nil {
		return &Result{Status: StatusError, Detail: err.Error()}, err
	}

	deleted := c.deleteAll(dailyKeys)

	c.logger.Info("Compacted daily partitions to monthly",
		"layer", layer, "source", source,
		"year", year, "month", int(month),
		"files", len(dailyKeys), "rows", merged.Len())

	return &Result{
		Status:       StatusSuccess,
		FilesMerged:  len(dailyKeys),
		RowsWritten:  merged.Len(),
		FilesDeleted: deleted,
	}, nil
}

// CleanupHourly removes leftover hourly partitions for a day whose
// daily partition already exists. Without the daily file it refuses and
// reports daily_not_found, since deleting would lose data.
func (c *Compactor) CleanupHourly(layer, source string, day time.Time) (*Result, error) {
	dir := store.DayDir(layer, source, day)
	dailyKey := store.DailyFrameKey(layer, source, day)

	dailyExists, err := c.store.Exists(dailyKey)
	if err != nil {
		return &Result{Status: StatusError, Detail: err.Error()}, err
	}
	if !dailyExists {
		return &Result{Status: StatusDailyNotFound}, nil
	}

	hourlyKeys, err := c.listHourly(dir, dailyKey)
	if err != nil {
		return &Result{Status: StatusError, Detail: err.Error()}, err
	}
	if len(hourlyKeys) == 0 {
		return &Result{Status: StatusAlreadyCompacted}, nil
	}

	deleted := c.deleteAll(hourlyKeys)

	c.logger.Info("Removed leftover hourly partitions",
		"layer", layer, "source", source,
		"date", day.Format("2006-01-02"), "deleted", deleted)

	return &Result{Status: StatusSuccess, FilesDeleted: deleted}, nil
}

// listHourly lists frame objects in a day partition, excluding the
// daily object itself
func (c *Compactor) listHourly(dir, dailyKey string) ([]string, error) {
	keys, err := c.store.ListWithSuffix(dir, store.ExtFrame)
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, k := range keys {
		if k == dailyKey || strings.HasSuffix(k, "/data"+store.ExtFrame) {
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

// deleteAll deletes keys, logging failures instead of aborting. The
// merged file is already written, so a stray survivor only costs space
// and is removed by the next cleanup run.
func (c *Compactor) deleteAll(keys []string) int {
	deleted := 0
	for _, key := range keys {
		if err := c.store.Delete(key); err != nil {
			c.logger.Warn("Failed to delete superseded partition", "key", key, "error", err)
			continue
		}
		deleted++
	}
	return deleted
}

// monthElapsed reports whether the month's last calendar day is
// strictly in the past in the business timezone
func (c *Compactor) monthElapsed(year int, month time.Month) bool {
	now := c.now().In(c.targetTZ)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.targetTZ)
	lastDay := time.Date(year, month, daysInMonth(year, month), 0, 0, 0, 0, c.targetTZ)
	return lastDay.Before(today)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
