package readings

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/relvacode/iso8601"
	"github.com/tidwall/gjson"
)

const (
	dateOnlyLayout = "2006-01-02"
	// epoch values above this are milliseconds (year 33658 in seconds)
	millisecondsThreshold = 1e12
)

var errEmptyTimestamp = errors.New("empty timestamp")

// ParseTimestamp decodes a document timestamp and converts it into loc. Naive timestamps are UTC.
func ParseTimestamp(value gjson.Result, loc *time.Location) (time.Time, error) {
	var ts time.Time
	var err error

	switch value.Type {
	case gjson.String:
		ts, err = parseTimestampString(value.Str, time.UTC)
	case gjson.Number:
		ts, err = parseEpoch(value.Num)
	case gjson.JSON:
		ts, err = parseSecondsObject(value)
	case gjson.Null:
		err = errEmptyTimestamp
	default:
		err = fmt.Errorf("unsupported timestamp type %s: %s", value.Type, value.Raw)
	}
	if err != nil {
		return time.Time{}, err
	}

	return ts.In(loc), nil
}

// ParseBound converts a caller supplied range bound into loc. Naive input is read in loc. A date-only
// upper bound covers the whole day when inclusiveDateEnd is set, otherwise it stops at midnight.
func ParseBound(raw string, upper bool, inclusiveDateEnd bool, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 0 {
		return time.Time{}, nil
	}

	if isDateOnly(raw) {
		day, err := time.ParseInLocation(dateOnlyLayout, raw, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
		}
		if upper && inclusiveDateEnd {
			return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}

		return day, nil
	}

	ts, err := parseTimestampString(raw, loc)
	if err != nil {
		return time.Time{}, err
	}

	return ts.In(loc), nil
}

func parseTimestampString(raw string, defaultLoc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 0 {
		return time.Time{}, errEmptyTimestamp
	}
	if isDateOnly(raw) {
		raw += "T00:00:00"
	}
	if len(raw) > len(dateOnlyLayout) && raw[len(dateOnlyLayout)] == ' ' {
		raw = raw[:len(dateOnlyLayout)] + "T" + raw[len(dateOnlyLayout)+1:]
	}

	ts, err := iso8601.ParseInLocation([]byte(raw), defaultLoc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}

	return ts, nil
}

func parseEpoch(v float64) (time.Time, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return time.Time{}, fmt.Errorf("invalid epoch timestamp %v", v)
	}
	if v > millisecondsThreshold {
		return time.UnixMilli(int64(v)).UTC(), nil
	}

	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), nil
}

// parseSecondsObject handles Firestore/protobuf style {"_seconds": s, "_nanoseconds": n} values
func parseSecondsObject(value gjson.Result) (time.Time, error) {
	seconds := value.Get("_seconds")
	if !seconds.Exists() {
		seconds = value.Get("seconds")
	}
	if seconds.Type != gjson.Number {
		return time.Time{}, fmt.Errorf("invalid timestamp object %s", value.Raw)
	}

	nanos := value.Get("_nanoseconds")
	if !nanos.Exists() {
		nanos = value.Get("nanos")
	}

	return time.Unix(seconds.Int(), nanos.Int()).UTC(), nil
}

func isDateOnly(raw string) bool {
	if len(raw) != len(dateOnlyLayout) {
		return false
	}

	return raw[4] == '-' && raw[7] == '-'
}
