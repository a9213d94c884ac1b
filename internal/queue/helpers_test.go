package queue

import (
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// Test-only constructors; production code goes through NewPublisher.

func NewNATSPublisherWithConn(conn *nats.Conn) (*NATSPublisher, error) {
	return newNATSPublisherWithConn(conn)
}

func NewRedisPublisher(cfg RedisConfig) (*RedisPublisher, error) {
	return newRedisPublisher(cfg)
}

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	return newKafkaPublisher(cfg)
}

// setupTestNATS starts an embedded JetStream server and returns a connection to it
func setupTestNATS(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		t.Fatalf("Failed to create NATS server: %v", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	nc, err := nats.Connect(ns.ClientURL())
	if err != nil {
		ns.Shutdown()
		t.Fatalf("Failed to connect to NATS: %v", err)
	}

	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
	})

	return ns, nc
}
