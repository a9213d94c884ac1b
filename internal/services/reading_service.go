package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sensorhub/sensorhub/internal/aggregation"
	"github.com/sensorhub/sensorhub/internal/domain"
	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/sensorhub/sensorhub/internal/models"
	"github.com/sensorhub/sensorhub/internal/storage"
	"github.com/sensorhub/sensorhub/internal/utils"
)

// AirOverview summarizes the latest reading of every box
type AirOverview struct {
	TotalBoxes     int                  `json:"total_boxes"`
	TemperatureAvg float64              `json:"temperature_avg"`
	HumidityAvg    float64              `json:"humidity_avg"`
	ToxicGasAvg    float64              `json:"toxic_gas_avg"`
	Readings       []storage.AirReading `json:"readings"`
}

// ReadingService serves raw reading listings and latest-value cards
type ReadingService struct {
	logger *logging.Logger
	store  *storage.Store
}

// NewReadingService creates a new ReadingService
func NewReadingService(logger *logging.Logger, store *storage.Store) *ReadingService {
	return &ReadingService{
		logger: logger,
		store:  store,
	}
}

// Sources returns the distinct box ids, ascending
func (s *ReadingService) Sources(ctx context.Context) ([]string, error) {
	sources, err := s.store.ListSources(ctx)
	if err != nil {
		s.logger.Error("Failed to list sources", "error", err)
		return nil, NewStorageError(err)
	}
	if sources == nil {
		sources = []string{}
	}
	return sources, nil
}

// ListAirReadings returns readings newest first. With q.Sensor set each row is
// projected to the box id, the timestamp and that sensor.
func (s *ReadingService) ListAirReadings(ctx context.Context, q models.ReadingQuery) (interface{}, error) {
	filter, err := s.filter(q)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter, q.Sensor)
}

// PageAirReadings is ListAirReadings with page/limit pagination
func (s *ReadingService) PageAirReadings(ctx context.Context, q models.ReadingQuery) (*models.ReadingPageResponse, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = utils.DefaultPageSize
	}
	if q.Page < 1 {
		return nil, NewValidationError("page must be at least 1")
	}
	if q.Limit < 1 || q.Limit > utils.MaxPageSize {
		return nil, NewValidationError(fmt.Sprintf("limit must be between 1 and %d", utils.MaxPageSize))
	}

	filter, err := s.filter(q)
	if err != nil {
		return nil, err
	}
	filter.Limit = q.Limit
	filter.Offset = (q.Page - 1) * q.Limit

	results, err := s.list(ctx, filter, q.Sensor)
	if err != nil {
		return nil, err
	}

	return &models.ReadingPageResponse{
		Page:    q.Page,
		Limit:   q.Limit,
		Results: results,
	}, nil
}

func (s *ReadingService) filter(q models.ReadingQuery) (storage.ReadingFilter, error) {
	if q.Sensor != "" {
		if _, err := domain.Air.Column(q.Sensor); err != nil {
			return storage.ReadingFilter{}, NewValidationError(err.Error())
		}
	}

	loc := s.store.Location()
	start, err := parseBound(q.Start, loc, false)
	if err != nil {
		return storage.ReadingFilter{}, NewValidationError("start: " + err.Error())
	}
	end, err := parseBound(q.End, loc, true)
	if err != nil {
		return storage.ReadingFilter{}, NewValidationError("end: " + err.Error())
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return storage.ReadingFilter{}, NewValidationError("end is before start")
	}

	return storage.ReadingFilter{BoxID: q.BoxID, Start: start, End: end}, nil
}

func (s *ReadingService) list(ctx context.Context, filter storage.ReadingFilter, sensor string) (interface{}, error) {
	readings, err := s.store.ListAirReadings(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list air readings", "box_id", filter.BoxID, "error", err)
		return nil, NewStorageError(err)
	}

	if sensor == "" {
		if readings == nil {
			readings = []storage.AirReading{}
		}
		return readings, nil
	}
	return project(readings, sensor), nil
}

// project keeps one sensor of each reading
func project(readings []storage.AirReading, sensor string) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(readings))
	for i := range readings {
		r := &readings[i]
		out = append(out, map[string]interface{}{
			"box_id":      r.BoxID,
			"recorded_at": r.RecordedAt.Format(time.RFC3339),
			sensor:        r.Values()[domain.Air.Sensors[sensor]],
		})
	}
	return out
}

// LatestAirReading returns the newest reading of one box
func (s *ReadingService) LatestAirReading(ctx context.Context, boxID string) (*storage.AirReading, error) {
	r, err := s.store.LatestAirReading(ctx, boxID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, NewNotFoundError(fmt.Sprintf("no readings recorded for box %s", boxID))
	}
	if err != nil {
		s.logger.Error("Failed to load latest air reading", "box_id", boxID, "error", err)
		return nil, NewStorageError(err)
	}
	return r, nil
}

// Overview averages the latest reading of every box. Missing sensor values
// count as zero and every average divides by the number of boxes.
func (s *ReadingService) Overview(ctx context.Context) (*AirOverview, error) {
	readings, err := s.store.LatestAirReadingPerBox(ctx)
	if err != nil {
		s.logger.Error("Failed to load latest readings per box", "error", err)
		return nil, NewStorageError(err)
	}

	overview := &AirOverview{TotalBoxes: len(readings), Readings: readings}
	if len(readings) == 0 {
		overview.Readings = []storage.AirReading{}
		return overview, nil
	}

	var temp, hum, toxic decimal.Decimal
	gasCount := decimal.NewFromInt(int64(len(domain.ToxicGases)))
	for i := range readings {
		values := readings[i].Values()
		temp = temp.Add(orZero(values[domain.Temperature]))
		hum = hum.Add(orZero(values[domain.Humidity]))

		var gases decimal.Decimal
		for _, gas := range domain.ToxicGases {
			gases = gases.Add(orZero(values[gas]))
		}
		toxic = toxic.Add(gases.Div(gasCount))
	}

	n := decimal.NewFromInt(int64(len(readings)))
	overview.TemperatureAvg = aggregation.Round2(temp.Div(n).InexactFloat64())
	overview.HumidityAvg = aggregation.Round2(hum.Div(n).InexactFloat64())
	overview.ToxicGasAvg = aggregation.Round2(toxic.Div(n).InexactFloat64())

	return overview, nil
}

func orZero(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}

// LatestGardenReading returns the newest garden reading
func (s *ReadingService) LatestGardenReading(ctx context.Context) (*storage.GardenReading, error) {
	r, err := s.store.LatestGardenReading(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, NewNotFoundError("no garden readings recorded yet")
	}
	if err != nil {
		s.logger.Error("Failed to load latest garden reading", "error", err)
		return nil, NewStorageError(err)
	}
	return r, nil
}
