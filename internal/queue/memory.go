package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/sensorhub/sensorhub/internal/subscriber"
)

// memoryCapacity bounds the messages retained per subject
const memoryCapacity = 10000

// MemoryPublisher publishes in-process. Messages are delivered to memory
// subscribers in the same process and retained per subject so tests can
// inspect them.
type MemoryPublisher struct {
	messages map[string][][]byte
	closed   bool
	mu       sync.RWMutex
}

// NewMemoryPublisher creates an in-memory publisher
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{
		messages: make(map[string][][]byte),
	}
}

// Publish retains a copy of data and fans it out to memory subscribers
func (p *MemoryPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("publisher closed")
	}
	if len(p.messages[subject]) >= memoryCapacity {
		p.mu.Unlock()
		return fmt.Errorf("channel full for subject: %s", subject)
	}
	p.messages[subject] = append(p.messages[subject], dataCopy)
	p.mu.Unlock()

	subscriber.PublishToMemory(subject, dataCopy)
	return nil
}

// PublishBatch publishes multiple messages
func (p *MemoryPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	successCount := 0
	for _, msg := range messages {
		if err := p.Publish(ctx, msg.Subject, msg.Data); err != nil {
			continue
		}
		successCount++
	}
	return successCount, nil
}

// Messages returns the messages published on subject, oldest first
func (p *MemoryPublisher) Messages(subject string) [][]byte {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([][]byte, len(p.messages[subject]))
	copy(out, p.messages[subject])
	return out
}

// GetPendingCount returns the number of messages retained for a subject (for testing)
func (p *MemoryPublisher) GetPendingCount(subject string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.messages[subject])
}

// Close drops retained messages and rejects further publishes
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.messages = make(map[string][][]byte)
	return nil
}
