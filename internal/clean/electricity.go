package clean

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gridcast/gridcast/internal/logging"
	"github.com/gridcast/gridcast/internal/timeseries"
)

// SignalTotalLoad is the only electricity signal that feeds the
// canonical table. Other signals clean to an empty frame.
const SignalTotalLoad = "total_load"

// ElectricityCleaner turns one raw grid-data payload into a cleaned
// hourly frame for the silver layer.
type ElectricityCleaner struct {
	targetTZ *time.Location
	logger   *logging.Logger
}

// NewElectricityCleaner creates an electricity cleaner. Provider
// timestamps carry an explicit UTC offset, so only the target timezone
// is needed.
func NewElectricityCleaner(targetTZ string, logger *logging.Logger) (*ElectricityCleaner, error) {
	dst, err := time.LoadLocation(targetTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid target timezone %q: %w", targetTZ, err)
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &ElectricityCleaner{targetTZ: dst, logger: logger}, nil
}

// Clean parses and normalizes one day of raw electricity data for one
// signal. Signals other than total_load return an empty frame since
// they never reach the canonical table.
func (c *ElectricityCleaner) Clean(payload []byte, signal string, queryDate time.Time) (*timeseries.Frame, error) {
	if signal != SignalTotalLoad {
		c.logger.Debug("Skipping signal not used by canonical table", "signal", signal)
		return timeseries.New(nil), nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	// Most signals carry records under "history", a few under "data"
	recordsRaw, ok := raw["history"]
	if !ok {
		recordsRaw, ok = raw["data"]
	}
	if !ok {
		return nil, fmt.Errorf("%w: no history or data field for %s", ErrBadPayload, signal)
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(recordsRaw, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if len(records) == 0 {
		c.logger.Warn("Empty record list", "signal", signal, "date", queryDate.Format("2006-01-02"))
		return timeseries.New(nil), nil
	}

	times := make([]time.Time, 0, len(records))
	values := make([]float64, 0, len(records))
	for _, rec := range records {
		dtStr, _ := rec["datetime"].(string)
		ts, err := time.Parse(time.RFC3339, dtStr)
		if err != nil {
			c.logger.Warn("Skipping record with unparseable datetime",
				"value", dtStr, "signal", signal)
			continue
		}
		times = append(times, stripZone(ts.In(c.targetTZ)))

		v, present := rec[SignalTotalLoad]
		if !present {
			v = rec["value"]
		}
		values = append(values, toFloat(v))
	}

	if len(times) == 0 {
		return nil, fmt.Errorf("%w: no parseable records for %s", ErrBadPayload, signal)
	}

	frame := timeseries.New(times)
	if err := frame.AddColumn(SignalTotalLoad, values); err != nil {
		return nil, err
	}

	frame.SortByTime()
	before := frame.Len()
	frame.DedupKeepFirst()
	if removed := before - frame.Len(); removed > 0 {
		c.logger.Warn("Removed duplicate electricity timestamps",
			"removed", removed, "date", queryDate.Format("2006-01-02"))
	}

	if missing := frame.NaNCount(SignalTotalLoad); missing > 0 {
		c.logger.Warn("Electricity column has missing values", "missing", missing)
		frame.ForwardFill(SignalTotalLoad)
		frame.BackwardFill(SignalTotalLoad)
		if frame.NaNCount(SignalTotalLoad) > 0 {
			frame.FillConst(SignalTotalLoad, frame.Median(SignalTotalLoad))
		}
	}

	c.logger.Info("Cleaned electricity data",
		"signal", signal, "date", queryDate.Format("2006-01-02"), "rows", frame.Len())
	return frame, nil
}

// Validate checks the cleaned frame carries the demand column. Empty
// frames from skipped signals are valid.
func (c *ElectricityCleaner) Validate(frame *timeseries.Frame) error {
	if frame.Len() == 0 {
		return nil
	}
	if !frame.HasColumn(SignalTotalLoad) {
		return fmt.Errorf("missing required column %s", SignalTotalLoad)
	}
	return nil
}
