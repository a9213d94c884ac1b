package subscriber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorhub/sensorhub/internal/config"
)

func TestNewSubscriber_Memory(t *testing.T) {
	sub, err := NewSubscriber(config.QueueConfig{Type: "memory"}, Config{})
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	_, ok := sub.(*MemorySubscriber)
	assert.True(t, ok, "expected *MemorySubscriber, got %T", sub)
}

func TestNewSubscriber_NATS(t *testing.T) {
	ns := startNATS(t)

	sub, err := NewSubscriber(config.QueueConfig{URL: ns.ClientURL()}, Config{Logger: testLogger()})
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	_, ok := sub.(*NATSSubscriber)
	assert.True(t, ok, "empty type should default to NATS")
}

func TestNewSubscriber_KafkaUsesGroupFromConfig(t *testing.T) {
	sub, err := NewSubscriber(config.QueueConfig{
		Type:         "kafka",
		KafkaBrokers: []string{"localhost:9092"},
		KafkaGroupID: "sensorhub-ingestor",
	}, Config{Logger: testLogger()})
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	ks, ok := sub.(*KafkaSubscriber)
	require.True(t, ok)
	assert.Equal(t, "sensorhub-ingestor", ks.cfg.ConsumerGroup)
}

func TestNewSubscriber_MQTTUnreachable(t *testing.T) {
	_, err := NewSubscriber(config.QueueConfig{Type: "mqtt", URL: "tcp://127.0.0.1:1"}, Config{Logger: testLogger()})
	assert.Error(t, err)
}

func TestNewSubscriber_Unsupported(t *testing.T) {
	_, err := NewSubscriber(config.QueueConfig{Type: "amqp"}, Config{})
	assert.Error(t, err)
}
