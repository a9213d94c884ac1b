package aggregation

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInput marks every error caused by caller input rather than storage.
// Test with errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// DateLayout is the wire format of custom range dates and daily bucket keys
const DateLayout = "2006-01-02"

// WindowKind selects a window relative to a reference instant
type WindowKind string

const (
	WindowToday     WindowKind = "today"
	WindowYesterday WindowKind = "yesterday"
	WindowThisWeek  WindowKind = "this_week"
	WindowLastWeek  WindowKind = "last_week"
	WindowCustom    WindowKind = "custom"
)

// Window is a closed interval [Start, End] of local time. End is the last
// second of its day (23:59:59) so storage can filter with BETWEEN.
type Window struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days the window touches
func (w Window) Days() int {
	return daysBetween(w.Start, w.End) + 1
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// Shift moves both ends by the given number of calendar days
func (w Window) Shift(days int) Window {
	return Window{Start: w.Start.AddDate(0, 0, days), End: w.End.AddDate(0, 0, days)}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ComputeWindow returns the window of the given kind. reference is converted
// to loc before the calendar day is taken; customStart and customEnd are only
// read for WindowCustom and must be YYYY-MM-DD.
func ComputeWindow(kind WindowKind, reference time.Time, loc *time.Location, customStart, customEnd string) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	ref := reference.In(loc)

	switch kind {
	case WindowToday:
		return dayWindow(ref, ref), nil
	case WindowYesterday:
		return dayWindow(ref, ref).Shift(-1), nil
	case WindowThisWeek:
		return weekWindow(ref), nil
	case WindowLastWeek:
		return weekWindow(ref).Shift(-7), nil
	case WindowCustom:
		return customWindow(loc, customStart, customEnd)
	default:
		return Window{}, invalid("unknown window %q", kind)
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

func dayWindow(first, last time.Time) Window {
	return Window{Start: startOfDay(first), End: endOfDay(last)}
}

// weekWindow is the Sunday..Saturday week containing t
func weekWindow(t time.Time) Window {
	sunday := startOfDay(t).AddDate(0, 0, -int(t.Weekday()))
	return dayWindow(sunday, sunday.AddDate(0, 0, 6))
}

func customWindow(loc *time.Location, start, end string) (Window, error) {
	if start == "" || end == "" {
		return Window{}, invalid("start and end dates are required for a custom range")
	}

	s, err := ParseDate(start, loc)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseDate(end, loc)
	if err != nil {
		return Window{}, err
	}

	if e.Before(s) {
		return Window{}, invalid("end date %s is before start date %s", end, start)
	}

	return dayWindow(s, e), nil
}

// ParseDate parses a YYYY-MM-DD date as local midnight in loc
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, invalid("malformed date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

// daysBetween counts calendar days from a to b in a's location
func daysBetween(a, b time.Time) int {
	b = b.In(a.Location())
	da := time.Date(a.Year(), a.Month(), a.Day(), 12, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 12, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
