package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/sensorhub/sensorhub/internal/aggregation"
)

// Layouts accepted for client timestamps. Layouts without an offset are read
// in the service's local timezone.
var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// ParseTimestamp parses an RFC3339 timestamp or a local wall-clock time in loc
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}

	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid timestamp %q, expected RFC3339 or YYYY-MM-DD HH:MM:SS", value)
}

// parseBound parses a range bound. A bare date is widened to the start or
// the end of that local day.
func parseBound(value string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if d, err := aggregation.ParseDate(value, loc); err == nil {
		if endOfDay {
			return d.AddDate(0, 0, 1).Add(-time.Second), nil
		}
		return d, nil
	}
	return ParseTimestamp(value, loc)
}
