package clean

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/gridcast/gridcast/internal/logging"
	"github.com/gridcast/gridcast/internal/timeseries"
)

// WeatherColumns is the fixed silver-layer column set for weather data
var WeatherColumns = []string{"temperature", "humidity", "precipitation", "wind_speed", "cloud_cover"}

// weatherRanges are plausible bounds for Vietnam. Rows with a value
// outside its bound are dropped entirely.
var weatherRanges = map[string][2]float64{
	"temperature":   {15, 40},
	"humidity":      {30, 100},
	"wind_speed":    {0, 50},
	"cloud_cover":   {0, 100},
	"precipitation": {0, 100},
}

// weatherPayload mirrors the provider JSON: one day object carrying an
// array of hourly observations.
type weatherPayload struct {
	Days []struct {
		Datetime string                   `json:"datetime"`
		Hours    []map[string]interface{} `json:"hours"`
	} `json:"days"`
}

// WeatherCleaner turns one raw weather payload into a cleaned hourly
// frame for the silver layer.
type WeatherCleaner struct {
	sourceTZ *time.Location
	targetTZ *time.Location
	logger   *logging.Logger
}

// NewWeatherCleaner creates a weather cleaner for the given timezones
func NewWeatherCleaner(sourceTZ, targetTZ string, logger *logging.Logger) (*WeatherCleaner, error) {
	src, err := time.LoadLocation(sourceTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid source timezone %q: %w", sourceTZ, err)
	}
	dst, err := time.LoadLocation(targetTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid target timezone %q: %w", targetTZ, err)
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &WeatherCleaner{sourceTZ: src, targetTZ: dst, logger: logger}, nil
}

// Clean parses, normalizes and filters one day of raw weather data.
// The returned frame has naive business-timezone timestamps, unique and
// ascending, with the fixed weather column set.
func (c *WeatherCleaner) Clean(payload []byte, queryDate time.Time) (*timeseries.Frame, error) {
	var raw weatherPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if len(raw.Days) == 0 {
		return nil, fmt.Errorf("%w: no days field", ErrBadPayload)
	}

	// One file holds one day; additional day objects are ignored
	hours := raw.Days[0].Hours
	if len(hours) == 0 {
		return nil, fmt.Errorf("%w: no hours field", ErrBadPayload)
	}

	times := make([]time.Time, 0, len(hours))
	cols := map[string][]float64{
		"temperature":   make([]float64, 0, len(hours)),
		"humidity":      make([]float64, 0, len(hours)),
		"precipitation": make([]float64, 0, len(hours)),
		"wind_speed":    make([]float64, 0, len(hours)),
		"cloud_cover":   make([]float64, 0, len(hours)),
	}

	for _, h := range hours {
		hourStr, _ := h["datetime"].(string)
		clock, err := time.Parse("15:04:05", hourStr)
		if err != nil {
			c.logger.Warn("Skipping hour with unparseable time",
				"value", hourStr, "date", queryDate.Format("2006-01-02"))
			continue
		}

		local := time.Date(
			queryDate.Year(), queryDate.Month(), queryDate.Day(),
			clock.Hour(), clock.Minute(), clock.Second(), 0, c.sourceTZ,
		)
		times = append(times, stripZone(local.In(c.targetTZ)))

		cols["temperature"] = append(cols["temperature"], toFloat(h["temp"]))
		cols["humidity"] = append(cols["humidity"], toFloat(h["humidity"]))
		cols["precipitation"] = append(cols["precipitation"], toFloat(h["precip"]))
		cols["wind_speed"] = append(cols["wind_speed"], toFloat(h["windspeed"]))
		cols["cloud_cover"] = append(cols["cloud_cover"], toFloat(h["cloudcover"]))
	}

	if len(times) == 0 {
		return nil, fmt.Errorf("%w: no parseable hourly records", ErrBadPayload)
	}

	frame := timeseries.New(times)
	for _, name := range WeatherColumns {
		if err := frame.AddColumn(name, cols[name]); err != nil {
			return nil, err
		}
	}

	frame.SortByTime()
	before := frame.Len()
	frame.DedupKeepFirst()
	if removed := before - frame.Len(); removed > 0 {
		c.logger.Warn("Removed duplicate weather timestamps",
			"removed", removed, "date", queryDate.Format("2006-01-02"))
	}

	c.fillMissing(frame)
	c.dropOutOfRange(frame)

	c.logger.Info("Cleaned weather data",
		"date", queryDate.Format("2006-01-02"), "rows", frame.Len())
	return frame, nil
}

// fillMissing applies forward fill, then backward fill, then the column
// median for anything still missing
func (c *WeatherCleaner) fillMissing(frame *timeseries.Frame) {
	for _, name := range WeatherColumns {
		missing := frame.NaNCount(name)
		if missing == 0 {
			continue
		}
		c.logger.Warn("Weather column has missing values", "column", name, "missing", missing)

		frame.ForwardFill(name)
		frame.BackwardFill(name)

		if frame.NaNCount(name) > 0 {
			median := frame.Median(name)
			frame.FillConst(name, median)
			c.logger.Warn("Filled remaining gaps with median", "column", name, "median", median)
		}
	}
}

// dropOutOfRange removes rows with any value outside its plausible
// physical range
func (c *WeatherCleaner) dropOutOfRange(frame *timeseries.Frame) {
	before := frame.Len()

	bad := make(map[int]bool)
	for name, bounds := range weatherRanges {
		vals, ok := frame.Column(name)
		if !ok {
			continue
		}
		count := 0
		for i, v := range vals {
			if math.IsNaN(v) {
				continue
			}
			if v < bounds[0] || v > bounds[1] {
				bad[i] = true
				count++
			}
		}
		if count > 0 {
			c.logger.Warn("Removing out-of-range weather rows", "column", name, "count", count)
		}
	}

	if len(bad) == 0 {
		return
	}

	keep := make([]float64, frame.Len())
	for i := range keep {
		if bad[i] {
			keep[i] = math.NaN()
		}
	}
	// Marker column drives row removal, then is discarded
	_ = frame.SetColumn("_keep", keep)
	frame.DropRowsMissing("_keep")
	frame.Drop("_keep")

	c.logger.Info("Removed outlier records", "removed", before-frame.Len())
}

// Validate checks the cleaned frame has the full weather column set
func (c *WeatherCleaner) Validate(frame *timeseries.Frame) error {
	for _, name := range WeatherColumns {
		if !frame.HasColumn(name) {
			return fmt.Errorf("missing required column %s", name)
		}
		if n := frame.NaNCount(name); n > 0 {
			c.logger.Warn("Cleaned weather frame still has nulls", "column", name, "count", n)
		}
	}
	return nil
}
