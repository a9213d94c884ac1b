package storage

import (
	"context"
	"fmt"
	"time"
)

// InsertPumpEvent stores a pump state change
func (s *Store) InsertPumpEvent(ctx context.Context, e *PumpEvent) error {
	e.EventTime = e.EventTime.Truncate(time.Second).UTC()
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("insert pump event: %w", err)
	}
	return nil
}

// ListPumpEvents returns pump events newest first, optionally only those with status
func (s *Store) ListPumpEvents(ctx context.Context, status string) ([]PumpEvent, error) {
	tx := s.db.WithContext(ctx).Model(&PumpEvent{})
	if status != "" {
		tx = tx.Where("status = ?", status)
	}

	var events []PumpEvent
	if err := tx.Order("event_time DESC, id DESC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list pump events: %w", err)
	}
	return events, nil
}

// LatestPumpEvent returns the newest pump event
func (s *Store) LatestPumpEvent(ctx context.Context) (*PumpEvent, error) {
	var e PumpEvent
	if err := s.db.WithContext(ctx).Order("event_time DESC, id DESC").First(&e).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// AlertFilter narrows alert listings. Empty fields are ignored.
type AlertFilter struct {
	SourceID string
	Sensor   string
}

// InsertAlert stores an alert
func (s *Store) InsertAlert(ctx context.Context, a *Alert) error {
	a.Timestamp = a.Timestamp.Truncate(time.Second).UTC()
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// ListAlerts returns alerts newest first
func (s *Store) ListAlerts(ctx context.Context, f AlertFilter) ([]Alert, error) {
	tx := s.db.WithContext(ctx).Model(&Alert{})
	if f.SourceID != "" {
		tx = tx.Where("source_id = ?", f.SourceID)
	}
	if f.Sensor != "" {
		tx = tx.Where("sensor = ?", f.Sensor)
	}

	var alerts []Alert
	if err := tx.Order("raised_at DESC, id DESC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}
