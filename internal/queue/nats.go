package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sensorhub/sensorhub/internal/utils"
)

// NATSConfig represents NATS connection configuration
type NATSConfig struct {
	URL      string
	Username string
	Password string
}

// NATSPublisher publishes to NATS JetStream. Each subject gets a stream on
// first use so a publish never fails for lack of one.
type NATSPublisher struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	streams map[string]bool
	mu      sync.Mutex
}

// newNATSPublisher connects to NATS with JetStream enabled
func newNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("sensorhub-publisher"),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p, err := newNATSPublisherWithConn(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

// newNATSPublisherWithConn wraps an existing connection (used in tests)
func newNATSPublisherWithConn(conn *nats.Conn) (*NATSPublisher, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &NATSPublisher{
		conn:    conn,
		js:      js,
		streams: make(map[string]bool),
	}, nil
}

// Publish publishes a message and waits for the JetStream ack
func (p *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := p.ensureStream(subject); err != nil {
		return err
	}

	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// PublishBatch queues every message asynchronously and waits for all acks.
// Individual failures are counted, not returned.
func (p *NATSPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	futures := make([]nats.PubAckFuture, 0, len(messages))
	for _, msg := range messages {
		if err := p.ensureStream(msg.Subject); err != nil {
			continue
		}
		future, err := p.js.PublishAsync(msg.Subject, msg.Data)
		if err != nil {
			continue
		}
		futures = append(futures, future)
	}

	select {
	case <-p.js.PublishAsyncComplete():
	case <-ctx.Done():
		return 0, fmt.Errorf("timeout waiting for batch publish: %w", ctx.Err())
	}

	successCount := 0
	for _, future := range futures {
		select {
		case <-future.Ok():
			successCount++
		case <-future.Err():
		}
	}

	return successCount, nil
}

// ensureStream creates a stream for subject unless one already covers it
func (p *NATSPublisher) ensureStream(subject string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streams[subject] {
		return nil
	}

	if name, err := p.js.StreamNameBySubject(subject); err == nil && name != "" {
		p.streams[subject] = true
		return nil
	}

	_, err := p.js.AddStream(&nats.StreamConfig{
		Name:     utils.NATSStreamName(subject),
		Subjects: []string{subject},
		MaxAge:   24 * time.Hour,
		Storage:  nats.FileStorage,
		Replicas: 1,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("failed to create stream for subject %s: %w", subject, err)
	}

	p.streams[subject] = true
	return nil
}

// Close drains pending acks and closes the connection
func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}
