// Package timespec resolves the time fragments a user can supply (clock
// time, optional date, absolute timestamp or "now") into one absolute
// deadline in local time.
package timespec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrConflictingTimeInputs    = errors.New("conflicting time inputs")
	ErrMissingTimeSpecification = errors.New("missing time specification")
	ErrTimestampInPast          = errors.New("timestamp in the past")
	ErrDateInPast               = errors.New("date in the past")
	ErrInvalidTimestamp         = errors.New("invalid timestamp")
	ErrInvalidClock             = errors.New("invalid clock time")
	ErrInvalidDate              = errors.New("invalid date")
)

const DateLayout = "2006-01-02"

// timestampLayouts are tried in order for --at values without an offset.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Input holds the raw time fragments. Empty strings mean "not supplied".
type Input struct {
	Clock string
	Date  string
	At    string
	Now   bool
}

// Resolve returns the deadline described by in, validated against now.
// The returned time is in now's location.
func Resolve(now time.Time, in Input) (time.Time, error) {
	if in.Now {
		return now, nil
	}
	loc := now.Location()

	if in.At != "" {
		if in.Clock != "" || in.Date != "" {
			return time.Time{}, fmt.Errorf("%w: --at cannot be combined with --time or --date", ErrConflictingTimeInputs)
		}
		target, err := ParseTimestamp(in.At, loc)
		if err != nil {
			return time.Time{}, err
		}
		if !target.After(now) {
			return time.Time{}, fmt.Errorf("%w: %s is not after %s", ErrTimestampInPast, format(target), format(now))
		}
		return target, nil
	}

	if in.Clock == "" {
		return time.Time{}, fmt.Errorf("%w: provide --now, --at or --time", ErrMissingTimeSpecification)
	}
	h, m, s, err := ParseClock(in.Clock)
	if err != nil {
		return time.Time{}, err
	}

	if in.Date != "" {
		day, err := time.ParseInLocation(DateLayout, in.Date, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q, expected YYYY-MM-DD", ErrInvalidDate, in.Date)
		}
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		if day.Before(today) {
			return time.Time{}, fmt.Errorf("%w: %s is before today", ErrDateInPast, in.Date)
		}
		target := time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, loc)
		if !target.After(now) {
			return time.Time{}, fmt.Errorf("%w: %s is not after %s", ErrTimestampInPast, format(target), format(now))
		}
		return target, nil
	}

	target := time.Date(now.Year(), now.Month(), now.Day(), h, m, s, 0, loc)
	if !target.After(now) {
		// next occurrence of that clock time
		next := now.AddDate(0, 0, 1)
		target = time.Date(next.Year(), next.Month(), next.Day(), h, m, s, 0, loc)
	}
	return target, nil
}

// ParseClock parses HH:MM or HH:MM:SS. Missing seconds default to zero.
func ParseClock(value string) (hour, min, sec int, err error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: %q, use HH:MM or HH:MM:SS", ErrInvalidClock, value)
	}
	vals := [3]int{}
	for i, p := range parts {
		n, convErr := strconv.Atoi(p)
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("%w: %q, clock values must be integers", ErrInvalidClock, value)
		}
		vals[i] = n
	}
	hour, min, sec = vals[0], vals[1], vals[2]
	if hour < 0 || hour > 23 || min < 0 || min > 59 || sec < 0 || sec > 59 {
		return 0, 0, 0, fmt.Errorf("%w: %q, clock values are out of range", ErrInvalidClock, value)
	}
	return hour, min, sec, nil
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without an offset are
// interpreted in loc; values with one are converted to loc.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	v := strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q, use ISO format, e.g. 2025-10-03T08:30 or 2025-10-03 08:30", ErrInvalidTimestamp, value)
}

func format(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
