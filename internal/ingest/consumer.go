// Package ingest feeds readings consumed from the message queue into the
// same IngestService the HTTP API uses.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sensorhub/sensorhub/internal/config"
	"github.com/sensorhub/sensorhub/internal/envelope"
	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/sensorhub/sensorhub/internal/models"
	"github.com/sensorhub/sensorhub/internal/services"
	"github.com/sensorhub/sensorhub/internal/subscriber"
	"github.com/sensorhub/sensorhub/internal/utils"
)

// Stats counts consumed messages by outcome
type Stats struct {
	Stored  uint64 // written to storage
	Dropped uint64 // malformed or invalid; acknowledged and discarded
	Failed  uint64 // storage errors; left for redelivery
}

// Consumer subscribes to the reading subjects and stores every message
type Consumer struct {
	logger   *logging.Logger
	sub      subscriber.Subscriber
	svc      *services.IngestService
	codec    *envelope.Codec
	subjects []string

	stored  atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64

	mu     sync.Mutex
	active []string
}

// NewConsumer creates a consumer for the air, garden and pump subjects.
// Empty subjects are skipped.
func NewConsumer(logger *logging.Logger, sub subscriber.Subscriber, svc *services.IngestService, codec *envelope.Codec, subjects config.SubjectsConfig) *Consumer {
	var list []string
	for _, s := range []string{subjects.AirReadings, subjects.GardenReadings, subjects.PumpEvents} {
		if s != "" {
			list = append(list, s)
		}
	}

	return &Consumer{
		logger:   logger.With("component", "ingest"),
		sub:      sub,
		svc:      svc,
		codec:    codec,
		subjects: list,
	}
}

// Start subscribes to every subject. On failure the subjects already
// subscribed are released.
func (c *Consumer) Start(ctx context.Context) error {
	if len(c.subjects) == 0 {
		return fmt.Errorf("no ingest subjects configured")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, subject := range c.subjects {
		if err := c.sub.Subscribe(ctx, subject, c.Handle); err != nil {
			for _, s := range c.active {
				_ = c.sub.Unsubscribe(s)
			}
			c.active = nil
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		c.active = append(c.active, subject)
	}

	c.logger.Info("Ingest consumer started", "subjects", c.subjects)
	return nil
}

// Stop unsubscribes from every subject
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.active {
		if err := c.sub.Unsubscribe(s); err != nil {
			c.logger.Warn("Failed to unsubscribe", "subject", s, "error", err)
		}
	}
	c.active = nil

	st := c.Stats()
	c.logger.Info("Ingest consumer stopped",
		"stored", st.Stored,
		"dropped", st.Dropped,
		"failed", st.Failed)
}

// Stats returns the message counters
func (c *Consumer) Stats() Stats {
	return Stats{
		Stored:  c.stored.Load(),
		Dropped: c.dropped.Load(),
		Failed:  c.failed.Load(),
	}
}

// Handle stores one framed envelope. Undecodable or invalid messages are
// dropped; storage failures are returned so the broker redelivers.
func (c *Consumer) Handle(ctx context.Context, subject string, data []byte) error {
	env, err := c.codec.Decode(data)
	if err != nil {
		c.dropped.Add(1)
		return subscriber.Drop(err)
	}

	ctx, cancel := context.WithTimeout(ctx, utils.IngestTimeout)
	defer cancel()

	if err := c.dispatch(ctx, env); err != nil {
		if services.IsCode(err, services.CodeStorage) {
			c.failed.Add(1)
			return err
		}
		c.dropped.Add(1)
		return subscriber.Drop(fmt.Errorf("%s on %s: %w", env.Kind, subject, err))
	}

	c.stored.Add(1)
	return nil
}

func (c *Consumer) dispatch(ctx context.Context, env *envelope.Envelope) error {
	switch env.Kind {
	case envelope.KindAirReading:
		var req models.AirReadingRequest
		if err := env.Into(&req); err != nil {
			return err
		}
		_, err := c.svc.RecordAirReading(ctx, &req)
		return err

	case envelope.KindGardenReading:
		var req models.GardenReadingRequest
		if err := env.Into(&req); err != nil {
			return err
		}
		_, err := c.svc.RecordGardenReading(ctx, &req)
		return err

	case envelope.KindPumpEvent:
		var req models.PumpEventRequest
		if err := env.Into(&req); err != nil {
			return err
		}
		_, err := c.svc.RecordPumpEvent(ctx, &req)
		return err

	case envelope.KindAlert:
		var req models.AlertRequest
		if err := env.Into(&req); err != nil {
			return err
		}
		_, err := c.svc.RaiseAlert(ctx, &req)
		return err

	default:
		return fmt.Errorf("unsupported envelope kind %q", env.Kind)
	}
}
