package services

import (
	"context"
	"time"

	"github.com/sensorhub/sensorhub/internal/envelope"
	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/sensorhub/sensorhub/internal/models"
	"github.com/sensorhub/sensorhub/internal/storage"
	"github.com/sensorhub/sensorhub/internal/utils"
)

// Publisher is the slice of a queue publisher the alert fan-out needs
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// IngestService validates and stores incoming readings, pump events and
// alerts. HTTP handlers and the queue consumer share it.
type IngestService struct {
	logger *logging.Logger
	store  *storage.Store
	now    func() time.Time

	publisher    Publisher
	codec        *envelope.Codec
	alertSubject string
}

// NewIngestService creates a new IngestService
func NewIngestService(logger *logging.Logger, store *storage.Store) *IngestService {
	return &IngestService{
		logger: logger,
		store:  store,
		now:    time.Now,
	}
}

// WithAlertPublisher publishes every stored alert on subject
func (s *IngestService) WithAlertPublisher(pub Publisher, codec *envelope.Codec, subject string) *IngestService {
	s.publisher = pub
	s.codec = codec
	s.alertSubject = subject
	return s
}

// WithClock replaces the clock used for server-assigned timestamps
func (s *IngestService) WithClock(now func() time.Time) *IngestService {
	s.now = now
	return s
}

// NewAirReading validates req and converts it into a storage row
func (s *IngestService) NewAirReading(req *models.AirReadingRequest) (*storage.AirReading, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError(err.Error())
	}
	recordedAt, err := ParseTimestamp(req.RecordedAt, s.store.Location())
	if err != nil {
		return nil, NewValidationError("recorded_at: " + err.Error())
	}

	return &storage.AirReading{
		BoxID:        req.BoxID,
		RecordedAt:   recordedAt,
		Temperature:  req.Temperature,
		Humidity:     req.Humidity,
		Fire:         req.Fire,
		MQ135Ammonia: req.MQ135Ammonia,
		MQ135Benzene: req.MQ135Benzene,
		MQ135Smoke:   req.MQ135Smoke,
		MQ2LPG:       req.MQ2LPG,
		MQ2H2:        req.MQ2H2,
		MQ2CO2:       req.MQ2CO2,
		MQ2Alcohol:   req.MQ2Alcohol,
		MQ2Propane:   req.MQ2Propane,
		MQ9CO:        req.MQ9CO,
		MQ9Methane:   req.MQ9Methane,
	}, nil
}

// RecordAirReading stores one air quality reading
func (s *IngestService) RecordAirReading(ctx context.Context, req *models.AirReadingRequest) (*storage.AirReading, error) {
	r, err := s.NewAirReading(req)
	if err != nil {
		return nil, err
	}

	if err := s.store.InsertAirReading(ctx, r); err != nil {
		s.logger.Error("Failed to store air reading", "box_id", req.BoxID, "error", err)
		return nil, NewStorageError(err)
	}

	s.logger.Debug("Air reading stored", "id", r.ID, "box_id", r.BoxID)
	return r, nil
}

// RecordAirReadings stores readings built by NewAirReading in batches
func (s *IngestService) RecordAirReadings(ctx context.Context, readings []storage.AirReading) error {
	if err := s.store.InsertAirReadings(ctx, readings); err != nil {
		s.logger.Error("Failed to store air reading batch", "count", len(readings), "error", err)
		return NewStorageError(err)
	}
	return nil
}

// RecordGardenReading stores one garden reading
func (s *IngestService) RecordGardenReading(ctx context.Context, req *models.GardenReadingRequest) (*storage.GardenReading, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError(err.Error())
	}
	recordedAt, err := ParseTimestamp(req.RecordedAt, s.store.Location())
	if err != nil {
		return nil, NewValidationError("recorded_at: " + err.Error())
	}

	r := &storage.GardenReading{
		RecordedAt:  recordedAt,
		SoilWet:     req.SoilWet,
		SoilDry:     req.SoilDry,
		Temperature: req.Temperature,
		AirHumidity: req.AirHumidity,
	}
	if err := s.store.InsertGardenReading(ctx, r); err != nil {
		s.logger.Error("Failed to store garden reading", "error", err)
		return nil, NewStorageError(err)
	}

	return r, nil
}

// RecordPumpEvent stores a pump state change
func (s *IngestService) RecordPumpEvent(ctx context.Context, req *models.PumpEventRequest) (*storage.PumpEvent, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError(err.Error())
	}
	eventTime, err := ParseTimestamp(req.EventTime, s.store.Location())
	if err != nil {
		return nil, NewValidationError("event_time: " + err.Error())
	}

	e := &storage.PumpEvent{
		EventTime: eventTime,
		Status:    req.Status,
		Origin:    req.Origin,
	}
	if err := s.store.InsertPumpEvent(ctx, e); err != nil {
		s.logger.Error("Failed to store pump event", "status", req.Status, "error", err)
		return nil, NewStorageError(err)
	}

	s.logger.Info("Pump event stored", "status", e.Status, "origin", e.Origin)
	return e, nil
}

// RaiseAlert stores an alert stamped with the server clock and, when a
// publisher is configured, fans it out on the alerts subject. A failed
// publish is logged and does not fail the call.
func (s *IngestService) RaiseAlert(ctx context.Context, req *models.AlertRequest) (*storage.Alert, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError(err.Error())
	}

	a := &storage.Alert{
		SourceID:  req.SourceID,
		Sensor:    req.Sensor,
		Value:     *req.Value,
		Level:     req.Level,
		Message:   req.Message,
		Timestamp: s.now(),
	}
	if err := s.store.InsertAlert(ctx, a); err != nil {
		s.logger.Error("Failed to store alert", "sensor", req.Sensor, "error", err)
		return nil, NewStorageError(err)
	}

	s.logger.Warn("Alert raised",
		"source_id", a.SourceID,
		"sensor", a.Sensor,
		"value", a.Value,
		"level", a.Level)

	s.publishAlert(ctx, a)
	return a, nil
}

func (s *IngestService) publishAlert(ctx context.Context, a *storage.Alert) {
	if s.publisher == nil || s.codec == nil || s.alertSubject == "" {
		return
	}

	data, err := s.codec.Encode(envelope.KindAlert, a)
	if err != nil {
		s.logger.Error("Failed to encode alert", "id", a.ID, "error", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, utils.PublishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, s.alertSubject, data); err != nil {
		s.logger.Warn("Failed to publish alert",
			"id", a.ID,
			"subject", s.alertSubject,
			"error", err)
	}
}
