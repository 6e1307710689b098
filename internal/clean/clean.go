// Package clean transforms raw provider payloads into typed hourly
// tables for the silver layer. Timestamps are interpreted in the
// provider timezone, converted to the business timezone and stored
// naive.
package clean

import (
	"errors"
	"math"
	"strconv"
	"time"
)

// ErrBadPayload is returned when a raw payload is missing the expected
// top-level structure. Callers decide whether to skip the time unit or
// abort the run.
var ErrBadPayload = errors.New("malformed payload")

// toFloat coerces a decoded JSON value to float64. Anything that does
// not parse becomes NaN instead of failing the whole payload.
func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// stripZone rebases a zoned timestamp to a naive value carrying the
// same wall-clock reading
func stripZone(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
