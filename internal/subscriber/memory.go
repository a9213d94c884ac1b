package subscriber

import (
	"context"
	"fmt"
	"sync"

	"github.com/sensorhub/sensorhub/internal/logging"
)

// memorySubscription is one subscriber's interest in a subject
type memorySubscription struct {
	handler MessageHandler
	ctx     context.Context
	cancel  context.CancelFunc
	ch      chan []byte
}

// memoryBroker fans published messages out to every memory subscription in
// the process
type memoryBroker struct {
	subscribers map[string][]*memorySubscription
	mu          sync.RWMutex
}

var broker = &memoryBroker{subscribers: make(map[string][]*memorySubscription)}

func (b *memoryBroker) add(subject string, sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[subject] = append(b.subscribers[subject], sub)
}

func (b *memoryBroker) remove(subject string, sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[subject]
	for i, s := range subs {
		if s == sub {
			b.subscribers[subject] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscribers[subject]) == 0 {
		delete(b.subscribers, subject)
	}
}

// PublishToMemory delivers a message to all memory subscribers of subject.
// Messages for a full subscriber are dropped with a warning.
func PublishToMemory(subject string, data []byte) {
	broker.mu.RLock()
	subs := append([]*memorySubscription(nil), broker.subscribers[subject]...)
	broker.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.ch <- data:
		default:
			logging.Global().Warn("Memory subscriber full, dropping message", "subject", subject)
		}
	}
}

// MemorySubscriber implements Subscriber for the in-process broker. Failed
// messages are logged and not redelivered.
type MemorySubscriber struct {
	subscriptions map[string]*memorySubscription
	log           *logging.Logger
	wg            sync.WaitGroup
	mu            sync.Mutex
}

// NewMemorySubscriber creates a new in-memory subscriber
func NewMemorySubscriber() (*MemorySubscriber, error) {
	return &MemorySubscriber{
		subscriptions: make(map[string]*memorySubscription),
		log:           logging.Global().With("component", "subscriber.memory"),
	}, nil
}

// Subscribe subscribes to a subject with the given handler
func (s *MemorySubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &memorySubscription{
		handler: handler,
		ctx:     subCtx,
		cancel:  cancel,
		ch:      make(chan []byte, 1000),
	}

	s.subscriptions[subject] = sub
	broker.add(subject, sub)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.consume(sub, subject)
	}()

	s.log.Debug("Subscribed to in-memory subject", "subject", subject)
	return nil
}

func (s *MemorySubscriber) consume(sub *memorySubscription, subject string) {
	for {
		select {
		case <-sub.ctx.Done():
			return
		case data := <-sub.ch:
			settle(s.log, subject, data, sub.handler(sub.ctx, subject, data))
		}
	}
}

// Unsubscribe unsubscribes from a subject
func (s *MemorySubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	sub.cancel()
	broker.remove(subject, sub)
	delete(s.subscriptions, subject)
	return nil
}

// Close unsubscribes everything and waits for in-flight handlers
func (s *MemorySubscriber) Close() error {
	s.mu.Lock()
	for subject, sub := range s.subscriptions {
		sub.cancel()
		broker.remove(subject, sub)
	}
	s.subscriptions = make(map[string]*memorySubscription)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}
