package subscriber

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/sensorhub/sensorhub/internal/utils"
)

// NATSSubscriber implements Subscriber for NATS JetStream with durable consumers
type NATSSubscriber struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	cfg           Config
	log           *logging.Logger
	subscriptions map[string]*nats.Subscription
	mu            sync.Mutex
}

// NewNATSSubscriber connects to NATS and prepares a JetStream context
func NewNATSSubscriber(url, username, password string, cfg Config) (*NATSSubscriber, error) {
	cfg = cfg.withDefaults()
	log := cfg.Logger.With("component", "subscriber.nats")

	opts := []nats.Option{
		nats.Name(fmt.Sprintf("sensorhub-ingestor-%s", cfg.NodeID)),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if username != "" {
		opts = append(opts, nats.UserInfo(username, password))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &NATSSubscriber{
		conn:          conn,
		js:            js,
		cfg:           cfg,
		log:           log,
		subscriptions: make(map[string]*nats.Subscription),
	}, nil
}

// durableName is unique per group, node and subject. Consumer names cannot
// contain dots.
func (s *NATSSubscriber) durableName(subject string) string {
	sanitized := strings.NewReplacer(".", "_", "*", "all", ">", "rest").Replace(subject)
	return fmt.Sprintf("%s-%s-%s", s.cfg.ConsumerGroup, s.cfg.NodeID, sanitized)
}

// Subscribe creates a durable push consumer with manual acks
func (s *NATSSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	if err := s.ensureStream(subject); err != nil {
		return err
	}

	durable := s.durableName(subject)

	sub, err := s.js.Subscribe(subject, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			_ = msg.Nak()
			return
		}

		if settle(s.log, msg.Subject, msg.Data, handler(ctx, msg.Subject, msg.Data)) {
			_ = msg.Ack()
			return
		}
		_ = msg.Nak()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxAckPending(s.cfg.BatchSize),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(s.cfg.MaxRetries),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	s.subscriptions[subject] = sub
	s.log.Info("Subscribed to subject", "subject", subject, "durable", durable)
	return nil
}

// ensureStream creates a stream for subject unless one already covers it
func (s *NATSSubscriber) ensureStream(subject string) error {
	if name, err := s.js.StreamNameBySubject(subject); err == nil && name != "" {
		return nil
	}

	streamName := utils.NATSStreamName(subject)
	_, err := s.js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{subject},
		MaxAge:   24 * time.Hour,
		Storage:  nats.FileStorage,
		Replicas: 1,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		s.log.Error("Failed to create stream", "stream", streamName, "error", err)
		return fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}

	return nil
}

// Unsubscribe drains in-flight messages and stops delivery for subject
func (s *NATSSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	if err := sub.Drain(); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", subject, err)
	}

	delete(s.subscriptions, subject)
	s.log.Info("Unsubscribed from subject", "subject", subject)
	return nil
}

// Close drains all subscriptions and closes the connection
func (s *NATSSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for subject, sub := range s.subscriptions {
		if err := sub.Drain(); err != nil {
			s.log.Warn("Failed to drain subscription", "subject", subject, "error", err)
		}
	}
	s.subscriptions = make(map[string]*nats.Subscription)

	s.conn.Close()
	s.log.Info("NATS subscriber closed")
	return nil
}
