package services

import (
	"context"
	"errors"
	"time"

	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/sensorhub/sensorhub/internal/models"
	"github.com/sensorhub/sensorhub/internal/storage"
)

// EventService serves pump events and alerts
type EventService struct {
	logger *logging.Logger
	store  *storage.Store
}

// NewEventService creates a new EventService
func NewEventService(logger *logging.Logger, store *storage.Store) *EventService {
	return &EventService{
		logger: logger,
		store:  store,
	}
}

// PumpEvents lists pump events newest first, optionally for one status
func (s *EventService) PumpEvents(ctx context.Context, status string) ([]storage.PumpEvent, error) {
	events, err := s.store.ListPumpEvents(ctx, status)
	if err != nil {
		s.logger.Error("Failed to list pump events", "status", status, "error", err)
		return nil, NewStorageError(err)
	}
	if events == nil {
		events = []storage.PumpEvent{}
	}
	return events, nil
}

// LatestPumpEvent returns the newest pump event
func (s *EventService) LatestPumpEvent(ctx context.Context) (*storage.PumpEvent, error) {
	e, err := s.store.LatestPumpEvent(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, NewNotFoundError("no pump events recorded yet")
	}
	if err != nil {
		s.logger.Error("Failed to load latest pump event", "error", err)
		return nil, NewStorageError(err)
	}
	return e, nil
}

// PumpStatus reports the pump state given by the newest event
func (s *EventService) PumpStatus(ctx context.Context) (*models.PumpStatusResponse, error) {
	e, err := s.LatestPumpEvent(ctx)
	if err != nil {
		return nil, err
	}
	return &models.PumpStatusResponse{
		Status:    e.Status,
		EventTime: e.EventTime.UTC().Format(time.RFC3339),
		Origin:    e.Origin,
	}, nil
}

// Alerts lists alerts newest first
func (s *EventService) Alerts(ctx context.Context, filter storage.AlertFilter) ([]storage.Alert, error) {
	alerts, err := s.store.ListAlerts(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list alerts",
			"source_id", filter.SourceID,
			"sensor", filter.Sensor,
			"error", err)
		return nil, NewStorageError(err)
	}
	if alerts == nil {
		alerts = []storage.Alert{}
	}
	return alerts, nil
}
