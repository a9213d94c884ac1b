package aggregation

import (
	"fmt"
	"strconv"
	"time"
)

// Granularity is the bucketing of a series
type Granularity string

const (
	Hourly Granularity = "hourly"
	Weekly Granularity = "weekly"
	Daily  Granularity = "daily"
)

// BucketKey is the grouping column a Fetcher aggregates by
type BucketKey string

const (
	KeyHourOfDay    BucketKey = "hour_of_day"
	KeyDayOfWeek    BucketKey = "day_of_week"
	KeyCalendarDate BucketKey = "calendar_date"
)

// Key returns the bucket key storage groups by for this granularity
func (g Granularity) Key() BucketKey {
	switch g {
	case Hourly:
		return KeyHourOfDay
	case Weekly:
		return KeyDayOfWeek
	default:
		return KeyCalendarDate
	}
}

// weekdayLabels follows time.Weekday order, Sunday first
var weekdayLabels = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// Slot is one position on an axis. Key is what storage returns for the bucket,
// Label is what clients display.
type Slot struct {
	Key   string
	Label string
}

// Axis is the ordered, complete set of slots a series is filled against
type Axis struct {
	Granularity Granularity
	Slots       []Slot
	index       map[string]int
}

// Len returns the number of slots
func (a Axis) Len() int {
	return len(a.Slots)
}

// IndexOf returns the slot position for a storage key. Keys that are not on
// the axis are rejected, so a bad key never lands in a neighbouring slot.
func (a Axis) IndexOf(key string) (int, error) {
	i, ok := a.index[key]
	if !ok {
		return -1, invalid("bucket key %q is outside the %s axis", key, a.Granularity)
	}
	return i, nil
}

func newAxis(g Granularity, slots []Slot) Axis {
	idx := make(map[string]int, len(slots))
	for i, s := range slots {
		idx[s.Key] = i
	}
	return Axis{Granularity: g, Slots: slots, index: idx}
}

// BuildAxis returns the axis for a granularity. start and end are only used by
// Daily, which yields one slot per calendar date from start to end inclusive.
func BuildAxis(g Granularity, start, end time.Time) (Axis, error) {
	switch g {
	case Hourly:
		slots := make([]Slot, 24)
		for h := range slots {
			slots[h] = Slot{Key: strconv.Itoa(h), Label: fmt.Sprintf("%02dh", h)}
		}
		return newAxis(g, slots), nil

	case Weekly:
		slots := make([]Slot, 7)
		for i := range slots {
			// day-of-week keys are 1 = Sunday .. 7 = Saturday
			slots[i] = Slot{Key: strconv.Itoa(i + 1), Label: weekdayLabels[i]}
		}
		return newAxis(g, slots), nil

	case Daily:
		first := startOfDay(start)
		last := startOfDay(end.In(start.Location()))
		if last.Before(first) {
			return Axis{}, invalid("end date %s is before start date %s", last.Format(DateLayout), first.Format(DateLayout))
		}

		n := daysBetween(first, last) + 1
		slots := make([]Slot, 0, n)
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			key := d.Format(DateLayout)
			slots = append(slots, Slot{Key: key, Label: key})
		}
		return newAxis(g, slots), nil

	default:
		return Axis{}, invalid("unknown granularity %q", g)
	}
}

// WeekdayKey is the stored day-of-week of d, 1 = Sunday .. 7 = Saturday
func WeekdayKey(d time.Weekday) int {
	return int(d) + 1
}
