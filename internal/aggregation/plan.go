package aggregation

import (
	"time"
)

// Period is the comparison period a client asks for
type Period string

const (
	PeriodToday  Period = "today"
	PeriodWeek   Period = "week"
	PeriodCustom Period = "custom"
)

// Plan is the resolved shape of a comparison: which windows to read and the
// axis to fill them against. Prior is nil when the period has no comparison
// window.
type Plan struct {
	Period  Period
	Current Window
	Prior   *Window
	Axis    Axis
}

// PlanFor resolves a period at reference time:
//
//	today  -> today vs yesterday, hourly axis
//	week   -> this week vs last week, weekly axis
//	custom -> start..end, daily axis, no prior window
func PlanFor(period Period, reference time.Time, loc *time.Location, customStart, customEnd string) (Plan, error) {
	var (
		currentKind, priorKind WindowKind
		granularity            Granularity
	)

	switch period {
	case PeriodToday:
		currentKind, priorKind, granularity = WindowToday, WindowYesterday, Hourly
	case PeriodWeek:
		currentKind, priorKind, granularity = WindowThisWeek, WindowLastWeek, Weekly
	case PeriodCustom:
		currentKind, granularity = WindowCustom, Daily
	default:
		return Plan{}, invalid("period must be one of: today, week, custom")
	}

	current, err := ComputeWindow(currentKind, reference, loc, customStart, customEnd)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{Period: period, Current: current}

	if priorKind != "" {
		prior, err := ComputeWindow(priorKind, reference, loc, "", "")
		if err != nil {
			return Plan{}, err
		}
		plan.Prior = &prior
	}

	plan.Axis, err = BuildAxis(granularity, current.Start, current.End)
	if err != nil {
		return Plan{}, err
	}

	return plan, nil
}
