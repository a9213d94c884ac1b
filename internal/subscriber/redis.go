package subscriber

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/sensorhub/sensorhub/internal/utils"
)

// RedisSubscriber implements Subscriber for Redis Streams consumer groups
type RedisSubscriber struct {
	client        *redis.Client
	streamPrefix  string
	cfg           Config
	log           *logging.Logger
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
}

// NewRedisSubscriber creates a new Redis Streams subscriber. addr may be a
// redis:// URL or host:port.
func NewRedisSubscriber(addr, password string, db int, streamPrefix string, cfg Config) (*RedisSubscriber, error) {
	cfg = cfg.withDefaults()

	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if streamPrefix == "" {
		streamPrefix = "sensorhub"
	}

	return &RedisSubscriber{
		client:        client,
		streamPrefix:  streamPrefix,
		cfg:           cfg,
		log:           cfg.Logger.With("component", "subscriber.redis"),
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

// Subscribe joins the consumer group on the subject's stream, creating both
// when missing, and starts reading in the background
func (s *RedisSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := utils.RedisStreamKey(s.streamPrefix, subject)

	if _, exists := s.subscriptions[stream]; exists {
		return fmt.Errorf("already subscribed to stream: %s", stream)
	}

	err := s.client.XGroupCreateMkStream(ctx, stream, s.cfg.ConsumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	s.subscriptions[stream] = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.consume(subCtx, stream, subject, handler)
	}()

	s.log.Info("Subscribed to Redis stream", "stream", stream, "group", s.cfg.ConsumerGroup, "consumer", s.cfg.NodeID)
	return nil
}

// consume first replays this consumer's pending entries (delivered but never
// acknowledged, e.g. before a crash), then reads new ones
func (s *RedisSubscriber) consume(ctx context.Context, stream, subject string, handler MessageHandler) {
	cursor := "0"

	for ctx.Err() == nil {
		streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.cfg.ConsumerGroup,
			Consumer: s.cfg.NodeID,
			Streams:  []string{stream, cursor},
			Count:    int64(s.cfg.BatchSize),
			Block:    time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			s.log.Error("Failed to read from stream", "stream", stream, "error", err)
			time.Sleep(time.Second)
			continue
		}

		lastID := ""
		for _, st := range streams {
			for _, message := range st.Messages {
				lastID = message.ID
				s.handle(ctx, stream, subject, message, handler)
			}
		}

		// Walk the pending list once, then switch to new messages.
		if cursor != ">" {
			if lastID == "" {
				cursor = ">"
			} else {
				cursor = lastID
			}
		}
	}
}

func (s *RedisSubscriber) handle(ctx context.Context, stream, subject string, message redis.XMessage, handler MessageHandler) {
	data, ok := message.Values["data"].(string)
	if !ok {
		s.log.Warn("Invalid message format", "stream", stream, "id", message.ID)
		s.client.XAck(ctx, stream, s.cfg.ConsumerGroup, message.ID)
		return
	}

	if !settle(s.log, subject, []byte(data), handler(ctx, subject, []byte(data))) {
		return
	}

	if err := s.client.XAck(ctx, stream, s.cfg.ConsumerGroup, message.ID).Err(); err != nil {
		s.log.Error("Failed to ACK message", "stream", stream, "id", message.ID, "error", err)
	}
}

// Unsubscribe unsubscribes from a stream
func (s *RedisSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := utils.RedisStreamKey(s.streamPrefix, subject)
	cancel, exists := s.subscriptions[stream]
	if !exists {
		return fmt.Errorf("not subscribed to stream: %s", stream)
	}

	cancel()
	delete(s.subscriptions, stream)
	s.log.Info("Unsubscribed from Redis stream", "stream", stream)
	return nil
}

// Close stops every reader, waits for them and closes the client
func (s *RedisSubscriber) Close() error {
	s.mu.Lock()
	for _, cancel := range s.subscriptions {
		cancel()
	}
	s.subscriptions = make(map[string]context.CancelFunc)
	s.mu.Unlock()

	s.wg.Wait()

	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	s.log.Info("Redis subscriber closed")
	return nil
}
