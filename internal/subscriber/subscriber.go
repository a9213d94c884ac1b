// Package subscriber consumes SensorHub messages from a broker.
package subscriber

import (
	"context"
	"errors"

	"github.com/sensorhub/sensorhub/internal/logging"
)

// MessageHandler processes one message. A nil return acknowledges it; any
// other error leaves it for redelivery unless wrapped with Drop.
type MessageHandler func(ctx context.Context, subject string, data []byte) error

// Subscriber defines the interface for message subscription
type Subscriber interface {
	// Subscribe subscribes to a subject/topic with the given handler
	Subscribe(ctx context.Context, subject string, handler MessageHandler) error

	// Unsubscribe unsubscribes from a subject/topic
	Unsubscribe(subject string) error

	// Close closes the subscriber and releases resources
	Close() error
}

// Config holds common subscriber configuration
type Config struct {
	// NodeID is the unique identifier for this subscriber node
	NodeID string

	// ConsumerGroup is the consumer group name for group-based consumption
	ConsumerGroup string

	// MaxRetries is the maximum number of deliveries for a failing message
	MaxRetries int

	// BatchSize is the number of messages to fetch in a batch (where applicable)
	BatchSize int

	// Logger receives subscriber logs; logging.Global() when nil
	Logger *logging.Logger
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		NodeID:        "ingestor-1",
		ConsumerGroup: "sensorhub",
		MaxRetries:    3,
		BatchSize:     100,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.NodeID == "" {
		c.NodeID = d.NodeID
	}
	if c.ConsumerGroup == "" {
		c.ConsumerGroup = d.ConsumerGroup
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.Logger == nil {
		c.Logger = logging.Global()
	}
	return c
}

type dropError struct{ err error }

func (e *dropError) Error() string { return e.err.Error() }
func (e *dropError) Unwrap() error { return e.err }

// Drop marks a handler error as permanent. The message is acknowledged and
// discarded instead of being redelivered.
func Drop(err error) error {
	if err == nil {
		return nil
	}
	return &dropError{err: err}
}

// IsDrop reports whether err was marked with Drop
func IsDrop(err error) bool {
	var d *dropError
	return errors.As(err, &d)
}

// settle logs a handler result and reports whether the message should be
// acknowledged
func settle(log *logging.Logger, subject string, data []byte, err error) bool {
	if err == nil {
		return true
	}
	if IsDrop(err) {
		log.Warn("Dropping message",
			"subject", subject,
			"error", err,
			"data_preview", string(data[:min(100, len(data))]))
		return true
	}
	log.Error("Failed to handle message", "subject", subject, "error", err)
	return false
}
