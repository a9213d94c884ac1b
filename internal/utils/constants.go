package utils

import (
	"strings"
	"time"
)

// =============================================================================
// Timeout Constants
// =============================================================================

const (
	// DefaultRequestTimeout bounds the storage work done for one HTTP request
	DefaultRequestTimeout = 30 * time.Second

	// IngestTimeout bounds storing one message consumed from the queue
	IngestTimeout = 10 * time.Second

	// PublishTimeout bounds a best-effort publish from a request handler
	PublishTimeout = 5 * time.Second

	// ShutdownTimeout is how long services wait for in-flight work on exit
	ShutdownTimeout = 10 * time.Second
)

// =============================================================================
// Buffer and Batch Size Constants
// =============================================================================

const (
	// DefaultBatchSize is the default batch size for bulk inserts
	DefaultBatchSize = 1000

	// DefaultBufferSize is the default buffer size for channels
	DefaultBufferSize = 100

	// DefaultPageSize is the page size of paginated reading listings
	DefaultPageSize = 100

	// MaxPageSize caps the page size a client may request
	MaxPageSize = 1000
)

// =============================================================================
// Queue Type Constants
// =============================================================================

// QueueType represents the type of message queue
type QueueType string

const (
	// QueueTypeNATS represents NATS JetStream queue (default)
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMQTT represents an MQTT broker, the transport sensor boxes speak natively
	QueueTypeMQTT QueueType = "mqtt"

	// QueueTypeMemory represents in-memory queue (for testing)
	QueueTypeMemory QueueType = "memory"
)

// MQTTTopic maps a dotted queue subject onto an MQTT topic
// ("sensorhub.air.readings" becomes "sensorhub/air/readings").
func MQTTTopic(subject string) string {
	return strings.ReplaceAll(subject, ".", "/")
}

// NATSStreamName returns the JetStream stream created for a subject. Stream
// names cannot contain dots, so they become underscores.
func NATSStreamName(subject string) string {
	return "STREAM_" + streamNameReplacer.Replace(subject)
}

var streamNameReplacer = strings.NewReplacer(".", "_", "-", "_", "*", "all", ">", "rest")

// RedisStreamKey returns the Redis stream a subject is written to and read from
func RedisStreamKey(prefix, subject string) string {
	return prefix + ":" + subject
}
