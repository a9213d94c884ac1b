package subscriber

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sensorhub/sensorhub/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, zerolog.Disabled)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.MaxRetries)
	}
	if cfg.BatchSize != 100 {
		t.Errorf("expected BatchSize=100, got %d", cfg.BatchSize)
	}
	if cfg.ConsumerGroup != "sensorhub" {
		t.Errorf("expected ConsumerGroup=sensorhub, got %s", cfg.ConsumerGroup)
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{NodeID: "node-7", MaxRetries: 5}.withDefaults()

	if cfg.NodeID != "node-7" {
		t.Errorf("NodeID overwritten: %s", cfg.NodeID)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries overwritten: %d", cfg.MaxRetries)
	}
	if cfg.ConsumerGroup != "sensorhub" {
		t.Errorf("expected default group, got %s", cfg.ConsumerGroup)
	}
	if cfg.BatchSize != 100 {
		t.Errorf("expected default batch size, got %d", cfg.BatchSize)
	}
	if cfg.Logger == nil {
		t.Error("expected a default logger")
	}
}

func TestDrop(t *testing.T) {
	base := errors.New("malformed payload")

	if Drop(nil) != nil {
		t.Error("Drop(nil) should be nil")
	}

	dropped := Drop(base)
	if !IsDrop(dropped) {
		t.Error("expected IsDrop on dropped error")
	}
	if !errors.Is(dropped, base) {
		t.Error("Drop must keep the cause in the chain")
	}
	if dropped.Error() != base.Error() {
		t.Errorf("message changed: %s", dropped.Error())
	}

	wrapped := fmt.Errorf("ingest: %w", dropped)
	if !IsDrop(wrapped) {
		t.Error("IsDrop should see through wrapping")
	}
	if IsDrop(base) {
		t.Error("plain error is not a drop")
	}
}

func TestSettle(t *testing.T) {
	log := testLogger()

	if !settle(log, "s", []byte("x"), nil) {
		t.Error("success should be acknowledged")
	}
	if !settle(log, "s", []byte("x"), Drop(errors.New("bad"))) {
		t.Error("dropped message should be acknowledged")
	}
	if settle(log, "s", []byte("x"), errors.New("db down")) {
		t.Error("transient failure must not be acknowledged")
	}
}
