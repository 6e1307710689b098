// Package pipeline orchestrates the batch ETL modes: backfill, hourly
// processing, and daily/monthly compaction. Batch modes collect per-day
// results and never halt the loop; single-target modes fail fast.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gridcast/gridcast/internal/canonical"
	"github.com/gridcast/gridcast/internal/clean"
	"github.com/gridcast/gridcast/internal/compact"
	"github.com/gridcast/gridcast/internal/config"
	"github.com/gridcast/gridcast/internal/logging"
	"github.com/gridcast/gridcast/internal/store"
	"github.com/gridcast/gridcast/internal/timeseries"
)

// SourceCanonical is the gold-layer source name of the canonical table
const SourceCanonical = "canonical"

// Pipeline stages reported in results
const (
	StageSilver     = "silver"
	StageCanonical  = "canonical"
	StageCompaction = "compaction"
)

// ErrMissingSource is returned when an expected bronze partition is
// absent. Batch modes skip the day; single-target modes abort.
var ErrMissingSource = errors.New("source partition missing")

// DayResult is the outcome of one unit of batch work
type DayResult struct {
	Date   time.Time `json:"date"`
	Stage  string    `json:"stage"`
	Status string    `json:"status"`
	Err    string    `json:"error,omitempty"`
}

// Report aggregates a whole pipeline run
type Report struct {
	RunID      string      `json:"run_id"`
	Mode       string      `json:"mode"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Succeeded  int         `json:"succeeded"`
	Failed     int         `json:"failed"`
	Results    []DayResult `json:"results"`
}

func (r *Report) add(date time.Time, stage, status string, err error) {
	result := DayResult{Date: date, Stage: stage, Status: status}
	if err != nil {
		result.Err = err.Error()
		r.Failed++
	} else {
		r.Succeeded++
	}
	r.Results = append(r.Results, result)
}

// HasFailures reports whether any unit of work failed. Batch runs exit
// non-zero on failures without having halted the loop.
func (r *Report) HasFailures() bool {
	return r.Failed > 0
}

// Pipeline wires the cleaners, merger and compactor against one store
type Pipeline struct {
	store       *store.Store
	weather     *clean.WeatherCleaner
	electricity *clean.ElectricityCleaner
	merger      *canonical.Merger
	compactor   *compact.Compactor
	cfg         config.Config
	targetTZ    *time.Location
	logger      *logging.Logger

	now func() time.Time
}

// New creates a pipeline from configuration
func New(cfg config.Config, s *store.Store, logger *logging.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = logging.Global()
	}

	weather, err := clean.NewWeatherCleaner(cfg.Storage.SourceTimezone, cfg.Storage.TargetTimezone, logger)
	if err != nil {
		return nil, err
	}
	electricity, err := clean.NewElectricityCleaner(cfg.Storage.TargetTimezone, logger)
	if err != nil {
		return nil, err
	}
	compactor, err := compact.New(s, cfg.Storage.TargetTimezone, logger)
	if err != nil {
		return nil, err
	}
	targetTZ, err := time.LoadLocation(cfg.Storage.TargetTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid target timezone %q: %w", cfg.Storage.TargetTimezone, err)
	}

	return &Pipeline{
		store:       s,
		weather:     weather,
		electricity: electricity,
		merger:      canonical.NewMerger(logger),
		compactor:   compactor,
		cfg:         cfg,
		targetTZ:    targetTZ,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// Run executes the configured ETL mode. Training and prediction modes
// belong to the models service and are rejected here.
func (p *Pipeline) Run() (*Report, error) {
	switch p.cfg.Pipeline.Mode {
	case config.ModeBackfill:
		start, err := time.Parse("2006-01-02", p.cfg.Pipeline.BackfillStart)
		if err != nil {
			return nil, fmt.Errorf("invalid backfill_start: %w", err)
		}
		return p.RunBackfill(start, p.yesterday())

	case config.ModeHourly:
		return p.RunHourly(p.localNow().Truncate(time.Hour))

	case config.ModeCompactionDaily:
		return p.RunCompactionDaily(p.yesterday(), p.yesterday())

	case config.ModeCompactionMonthly:
		prev := p.localNow().AddDate(0, -1, 0)
		return p.RunCompactionMonthly(prev.Year(), prev.Month())

	default:
		return nil, fmt.Errorf("mode %s is not an ETL mode", p.cfg.Pipeline.Mode)
	}
}

func (p *Pipeline) localNow() time.Time {
	ts := p.now().In(p.targetTZ)
	return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), 0, 0, 0, time.UTC)
}

func (p *Pipeline) yesterday() time.Time {
	return p.localNow().Truncate(24 * time.Hour).AddDate(0, 0, -1)
}

func (p *Pipeline) newReport(mode string) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Mode:      mode,
		StartedAt: p.now().UTC(),
	}
}

// RunBackfill processes every day in [start, end] in chunks. A failed
// day is recorded and skipped; the loop never halts.
func (p *Pipeline) RunBackfill(start, end time.Time) (*Report, error) {
	report := p.newReport(config.ModeBackfill)
	if end.Before(start) {
		return nil, fmt.Errorf("invalid backfill range: %s after %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	chunkDays := p.cfg.Pipeline.ChunkDays
	if chunkDays < 1 {
		chunkDays = 1
	}

	for chunk := start; !chunk.After(end); chunk = chunk.AddDate(0, 0, chunkDays) {
		chunkEnd := chunk.AddDate(0, 0, chunkDays-1)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		p.logger.Info("Processing backfill chunk",
			"from", chunk.Format("2006-01-02"), "to", chunkEnd.Format("2006-01-02"))

		for day := chunk; !day.After(chunkEnd); day = day.AddDate(0, 0, 1) {
			if err := p.buildSilverDay(day); err != nil {
				p.logger.Error("Silver build failed", "date", day.Format("2006-01-02"), "error", err)
				report.add(day, StageSilver, "failed", err)
				continue
			}
			report.add(day, StageSilver, "ok", nil)

			if err := p.buildCanonicalDay(day); err != nil {
				p.logger.Error("Canonical build failed", "date", day.Format("2006-01-02"), "error", err)
				report.add(day, StageCanonical, "failed", err)
				continue
			}
			report.add(day, StageCanonical, "ok", nil)
		}
	}

	report.FinishedAt = p.now().UTC()
	p.logger.Info("Backfill finished",
		"run_id", report.RunID, "succeeded", report.Succeeded, "failed", report.Failed)
	return report, nil
}

// RunHourly processes one hour end to end and fails fast on the first
// error: there is no later day to fall back to.
func (p *Pipeline) RunHourly(hour time.Time) (*Report, error) {
	report := p.newReport(config.ModeHourly)

	weatherFrame, err := p.cleanWeatherHour(hour)
	if err != nil {
		return nil, err
	}
	electricityFrame, err := p.cleanElectricityHour(hour)
	if err != nil {
		return nil, err
	}

	merged, err := p.merger.Merge(weatherFrame, electricityFrame)
	if err != nil {
		return nil, fmt.Errorf("canonical merge failed for %s: %w",
			hour.Format("2006-01-02 15:00"), err)
	}
	if err := p.merger.Validate(merged); err != nil {
		return nil, err
	}

	goldKey := store.HourlyFrameKey(store.LayerGold, SourceCanonical, merged.Time(0))
	if err := p.store.WriteFrame(goldKey, merged); err != nil {
		return nil, err
	}

	report.add(hour, StageCanonical, "ok", nil)
	report.FinishedAt = p.now().UTC()
	p.logger.Info("Hourly processing finished",
		"run_id", report.RunID, "hour", hour.Format("2006-01-02 15:00"))
	return report, nil
}

// RunCompactionDaily compacts hourly partitions into daily partitions
// for every day in [start, end] across all three sources
func (p *Pipeline) RunCompactionDaily(start, end time.Time) (*Report, error) {
	report := p.newReport(config.ModeCompactionDaily)

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		for _, target := range p.compactionTargets() {
			result, err := p.compactor.HourlyToDaily(target.layer, target.source, day)
			if err != nil {
				report.add(day, StageCompaction, string(compact.StatusError), err)
				continue
			}
			report.add(day, StageCompaction, string(result.Status), nil)

			// Gold hourlies can be left behind when the daily file was
			// written directly by a backfill
			if target.layer == store.LayerGold && result.Status == compact.StatusAlreadyCompacted {
				if _, err := p.compactor.CleanupHourly(target.layer, target.source, day); err != nil {
					report.add(day, StageCompaction, string(compact.StatusError), err)
				}
			}
		}
	}

	report.FinishedAt = p.now().UTC()
	return report, nil
}

// RunCompactionMonthly compacts daily partitions into one monthly
// partition per source. Ineligible months are reported as no-ops.
func (p *Pipeline) RunCompactionMonthly(year int, month time.Month) (*Report, error) {
	report := p.newReport(config.ModeCompactionMonthly)
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)

	for _, target := range p.compactionTargets() {
		result, err := p.compactor.DailyToMonthly(target.layer, target.source, year, month)
		if err != nil {
			report.add(monthStart, StageCompaction, string(compact.StatusError), err)
			continue
		}
		report.add(monthStart, StageCompaction, string(result.Status), nil)
	}

	report.FinishedAt = p.now().UTC()
	return report, nil
}

type compactionTarget struct {
	layer  string
	source string
}

func (p *Pipeline) compactionTargets() []compactionTarget {
	return []compactionTarget{
		{store.LayerSilver, p.cfg.Pipeline.WeatherSource},
		{store.LayerSilver, p.cfg.Pipeline.ElectricitySource},
		{store.LayerGold, SourceCanonical},
	}
}

// buildSilverDay cleans every bronze hourly payload of one day for both
// sources and writes the silver hourly frames
func (p *Pipeline) buildSilverDay(day time.Time) error {
	weatherKeys, err := p.store.ListWithSuffix(
		store.DayDir(store.LayerBronze, p.cfg.Pipeline.WeatherSource, day), store.ExtRaw)
	if err != nil {
		return err
	}
	electricityKeys, err := p.store.ListWithSuffix(
		store.DayDir(store.LayerBronze, p.cfg.Pipeline.ElectricitySource, day), store.ExtRaw)
	if err != nil {
		return err
	}
	if len(weatherKeys) == 0 && len(electricityKeys) == 0 {
		return fmt.Errorf("%w: no bronze data for %s", ErrMissingSource, day.Format("2006-01-02"))
	}

	for _, key := range weatherKeys {
		payload, err := p.store.ReadRaw(key)
		if err != nil {
			return err
		}
		frame, err := p.weather.Clean(payload, day)
		if err != nil {
			return fmt.Errorf("weather cleaning failed for %s: %w", key, err)
		}
		if err := p.writeSilver(p.cfg.Pipeline.WeatherSource, frame); err != nil {
			return err
		}
	}

	for _, key := range electricityKeys {
		payload, err := p.store.ReadRaw(key)
		if err != nil {
			return err
		}
		for _, signal := range p.signals() {
			frame, err := p.electricity.Clean(payload, signal, day)
			if err != nil {
				return fmt.Errorf("electricity cleaning failed for %s: %w", key, err)
			}
			if err := p.writeSilver(p.cfg.Pipeline.ElectricitySource, frame); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) signals() []string {
	if len(p.cfg.Pipeline.Signals) == 0 {
		return []string{clean.SignalTotalLoad}
	}
	return p.cfg.Pipeline.Signals
}

// writeSilver writes one cleaned hourly frame, keyed by its first
// timestamp so timezone conversion across midnight lands in the right
// partition. Empty frames are skipped.
func (p *Pipeline) writeSilver(source string, frame *timeseries.Frame) error {
	if frame.Len() == 0 {
		return nil
	}
	key := store.HourlyFrameKey(store.LayerSilver, source, frame.Time(0))
	return p.store.WriteFrame(key, frame)
}

// buildCanonicalDay merges one day of silver data into the gold daily
// canonical partition
func (p *Pipeline) buildCanonicalDay(day time.Time) error {
	weatherFrame, err := p.loadSilverDay(p.cfg.Pipeline.WeatherSource, day)
	if err != nil {
		return err
	}
	electricityFrame, err := p.loadSilverDay(p.cfg.Pipeline.ElectricitySource, day)
	if err != nil {
		return err
	}

	merged, err := p.merger.Merge(weatherFrame, electricityFrame)
	if err != nil {
		return err
	}
	if err := p.merger.Validate(merged); err != nil {
		return err
	}
	return p.store.WriteFrame(store.DailyFrameKey(store.LayerGold, SourceCanonical, day), merged)
}

// loadSilverDay reads a day of silver data, preferring the compacted
// daily partition over individual hourly frames
func (p *Pipeline) loadSilverDay(source string, day time.Time) (*timeseries.Frame, error) {
	dailyKey := store.DailyFrameKey(store.LayerSilver, source, day)
	exists, err := p.store.Exists(dailyKey)
	if err != nil {
		return nil, err
	}
	if exists {
		return p.store.ReadFrame(dailyKey)
	}

	keys, err := p.store.ListWithSuffix(store.DayDir(store.LayerSilver, source, day), store.ExtFrame)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no silver data for %s on %s",
			ErrMissingSource, source, day.Format("2006-01-02"))
	}

	frames := make([]*timeseries.Frame, 0, len(keys))
	for _, key := range keys {
		frame, err := p.store.ReadFrame(key)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	merged, err := timeseries.Concat(frames...)
	if err != nil {
		return nil, err
	}
	merged.SortByTime()
	merged.DedupKeepFirst()
	return merged, nil
}

// cleanWeatherHour cleans the bronze weather payload of one hour and
// writes the silver frame
func (p *Pipeline) cleanWeatherHour(hour time.Time) (*timeseries.Frame, error) {
	key := store.HourlyRawKey(store.LayerBronze, p.cfg.Pipeline.WeatherSource, hour)
	payload, err := p.store.ReadRaw(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingSource, key)
	}
	frame, err := p.weather.Clean(payload, hour)
	if err != nil {
		return nil, err
	}
	if frame.Len() == 0 {
		return nil, fmt.Errorf("%w: weather payload for %s cleaned to nothing",
			ErrMissingSource, hour.Format("2006-01-02 15:00"))
	}
	if err := p.writeSilver(p.cfg.Pipeline.WeatherSource, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// cleanElectricityHour cleans the bronze electricity payload of one
// hour and writes the silver frame
func (p *Pipeline) cleanElectricityHour(hour time.Time) (*timeseries.Frame, error) {
	key := store.HourlyRawKey(store.LayerBronze, p.cfg.Pipeline.ElectricitySource, hour)
	payload, err := p.store.ReadRaw(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingSource, key)
	}
	frame, err := p.electricity.Clean(payload, clean.SignalTotalLoad, hour)
	if err != nil {
		return nil, err
	}
	if frame.Len() == 0 {
		return nil, fmt.Errorf("%w: electricity payload for %s cleaned to nothing",
			ErrMissingSource, hour.Format("2006-01-02 15:00"))
	}
	if err := p.writeSilver(p.cfg.Pipeline.ElectricitySource, frame); err != nil {
		return nil, err
	}
	return frame, nil
}
