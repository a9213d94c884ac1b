package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sensorhub/sensorhub/internal/aggregation"
	"github.com/sensorhub/sensorhub/internal/domain"
	"github.com/sensorhub/sensorhub/internal/logging"
)

// SeriesRequest asks for comparative series of one or more sensors
type SeriesRequest struct {
	Domain   string
	Sensors  []string
	Period   string
	Start    string // YYYY-MM-DD, custom only
	End      string // YYYY-MM-DD, custom only
	SourceID string // empty aggregates across every source
}

// SensorSeries is the comparative view of a single sensor
type SensorSeries struct {
	Sensor            string             `json:"sensor"`
	SourceID          string             `json:"source_id,omitempty"`
	Period            string             `json:"period"`
	CurrentSeries     aggregation.Series `json:"current_series"`
	PriorSeries       aggregation.Series `json:"prior_series,omitempty"`
	OverallMeanSeries aggregation.Series `json:"overall_mean_series"`
}

// Comparison maps each sensor to its current series and mean_<sensor> to
// that sensor's flat overall mean.
type Comparison map[string]aggregation.Series

// MeanKey is the comparison key holding a sensor's overall mean series
func MeanKey(sensor string) string {
	return "mean_" + sensor
}

// SeriesService assembles time-bucketed series for any domain
type SeriesService struct {
	logger       *logging.Logger
	fetcher      aggregation.Fetcher
	registry     *domain.Registry
	loc          *time.Location
	maxRangeDays int
	now          func() time.Time
}

// NewSeriesService creates a new SeriesService. maxRangeDays <= 0 leaves
// custom ranges unbounded.
func NewSeriesService(
	logger *logging.Logger,
	fetcher aggregation.Fetcher,
	registry *domain.Registry,
	loc *time.Location,
	maxRangeDays int,
) *SeriesService {
	if loc == nil {
		loc = time.UTC
	}
	return &SeriesService{
		logger:       logger,
		fetcher:      fetcher,
		registry:     registry,
		loc:          loc,
		maxRangeDays: maxRangeDays,
		now:          time.Now,
	}
}

// WithClock replaces the reference clock
func (s *SeriesService) WithClock(now func() time.Time) *SeriesService {
	s.now = now
	return s
}

// target is one validated sensor of a request
type target struct {
	sensor string
	column string
}

// resolved is a request that passed validation
type resolved struct {
	domain  domain.Domain
	targets []target
	plan    aggregation.Plan
}

// resolve validates everything a request carries. Nothing touches storage
// until it succeeds.
func (s *SeriesService) resolve(req SeriesRequest) (*resolved, error) {
	dom, err := s.registry.Get(req.Domain)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("%s, valid domains: %v", err.Error(), s.registry.Names()))
	}

	if len(req.Sensors) == 0 {
		return nil, NewValidationError("at least one sensor is required")
	}

	seen := make(map[string]bool, len(req.Sensors))
	targets := make([]target, 0, len(req.Sensors))
	for _, sensor := range req.Sensors {
		sensor = strings.TrimSpace(sensor)
		if seen[sensor] {
			continue
		}
		col, err := dom.Column(sensor)
		if err != nil {
			return nil, NewValidationError(err.Error())
		}
		seen[sensor] = true
		targets = append(targets, target{sensor: sensor, column: col})
	}

	if req.SourceID != "" && !dom.HasSources() {
		return nil, NewValidationError(fmt.Sprintf("domain %s has a single source, source_id is not supported", dom.Name))
	}

	period := aggregation.Period(req.Period)
	if period == "" {
		period = aggregation.PeriodToday
	}

	plan, err := aggregation.PlanFor(period, s.now(), s.loc, req.Start, req.End)
	if err != nil {
		return nil, validationFrom(err)
	}

	if s.maxRangeDays > 0 && plan.Current.Days() > s.maxRangeDays {
		return nil, NewValidationError(fmt.Sprintf("custom range spans %d days, at most %d allowed", plan.Current.Days(), s.maxRangeDays))
	}

	return &resolved{domain: dom, targets: targets, plan: plan}, nil
}

// Build returns the comparative series of a single sensor
func (s *SeriesService) Build(ctx context.Context, req SeriesRequest) (*SensorSeries, error) {
	if len(req.Sensors) != 1 {
		return nil, NewValidationError("exactly one sensor is required")
	}

	r, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	t := r.targets[0]
	current, prior, mean, err := s.series(ctx, r, t, req.SourceID, true)
	if err != nil {
		return nil, err
	}

	return &SensorSeries{
		Sensor:            t.sensor,
		SourceID:          req.SourceID,
		Period:            string(r.plan.Period),
		CurrentSeries:     current,
		PriorSeries:       prior,
		OverallMeanSeries: mean,
	}, nil
}

// Compare returns the current series of several sensors side by side. An
// empty sensor list falls back to the domain's comparison set.
func (s *SeriesService) Compare(ctx context.Context, req SeriesRequest) (Comparison, error) {
	if len(req.Sensors) == 0 {
		if dom, err := s.registry.Get(req.Domain); err == nil {
			req.Sensors = dom.ComparisonSensors
		}
	}

	r, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	out := make(Comparison, 2*len(r.targets))
	for _, t := range r.targets {
		current, _, mean, err := s.series(ctx, r, t, req.SourceID, false)
		if err != nil {
			return nil, err
		}
		out[t.sensor] = current
		out[MeanKey(t.sensor)] = mean
	}

	return out, nil
}

// series fetches and fills the current window, the prior window when asked
// for and the plan has one, and the flat mean of the current window.
func (s *SeriesService) series(ctx context.Context, r *resolved, t target, sourceID string, withPrior bool) (current, prior, mean aggregation.Series, err error) {
	rows, err := s.fetch(ctx, r, t, sourceID, r.plan.Current)
	if err != nil {
		return nil, nil, nil, err
	}
	if current, err = aggregation.Fill(r.plan.Axis, rows); err != nil {
		return nil, nil, nil, s.fillError(r, t, err)
	}
	mean = aggregation.Flat(r.plan.Axis, aggregation.Mean(rows))

	if withPrior && r.plan.Prior != nil {
		priorRows, err := s.fetch(ctx, r, t, sourceID, *r.plan.Prior)
		if err != nil {
			return nil, nil, nil, err
		}
		if prior, err = aggregation.Fill(r.plan.Axis, priorRows); err != nil {
			return nil, nil, nil, s.fillError(r, t, err)
		}
	}

	return current, prior, mean, nil
}

func (s *SeriesService) fetch(ctx context.Context, r *resolved, t target, sourceID string, w aggregation.Window) ([]aggregation.BucketRow, error) {
	start := time.Now()
	rows, err := s.fetcher.AverageByBucket(ctx, aggregation.BucketQuery{
		Table:        r.domain.Table,
		Column:       t.column,
		SourceColumn: r.domain.SourceColumn,
		SourceID:     sourceID,
		Window:       w,
		Key:          r.plan.Axis.Granularity.Key(),
	})
	if err != nil {
		s.logger.Error("Bucket query failed",
			"domain", r.domain.Name,
			"sensor", t.sensor,
			"window", w.String(),
			"error", err)
		return nil, NewStorageError(err)
	}

	s.logger.Debug("Bucket query",
		"domain", r.domain.Name,
		"sensor", t.sensor,
		"window", w.String(),
		"buckets", len(rows),
		"latency", time.Since(start))
	return rows, nil
}

// fillError reports a bucket row the axis has no slot for, such as a weekly
// day-of-week of 0 or 8. Such a key fails validation as a 400 instead of
// shifting into a neighbouring slot; the log line keeps the store-side cause.
func (s *SeriesService) fillError(r *resolved, t target, err error) error {
	s.logger.Error("Bucket key outside axis",
		"domain", r.domain.Name,
		"sensor", t.sensor,
		"error", err)
	return validationFrom(err)
}

// validationFrom turns an aggregation input error into a ValidationError
func validationFrom(err error) error {
	if !errors.Is(err, aggregation.ErrInvalidInput) {
		return NewValidationError(err.Error())
	}
	msg := strings.TrimPrefix(err.Error(), aggregation.ErrInvalidInput.Error()+": ")
	return &ServiceError{Code: CodeValidation, Message: msg, cause: err}
}
