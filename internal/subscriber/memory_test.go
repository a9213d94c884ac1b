package subscriber

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestMemorySubscriber_Delivery(t *testing.T) {
	sub, err := NewMemorySubscriber()
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	var (
		mu       sync.Mutex
		received []string
	)
	require.NoError(t, sub.Subscribe(context.Background(), "mem.delivery", func(_ context.Context, subject string, data []byte) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, subject+"="+string(data))
		return nil
	}))

	PublishToMemory("mem.delivery", []byte("a"))
	PublishToMemory("mem.delivery", []byte("b"))
	PublishToMemory("mem.other", []byte("ignored"))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"mem.delivery=a", "mem.delivery=b"}, received)
}

func TestMemorySubscriber_FanOut(t *testing.T) {
	var count int32
	handler := func(context.Context, string, []byte) error {
		atomic.AddInt32(&count, 1)
		return nil
	}

	s1, _ := NewMemorySubscriber()
	s2, _ := NewMemorySubscriber()
	defer func() { _ = s1.Close() }()
	defer func() { _ = s2.Close() }()

	require.NoError(t, s1.Subscribe(context.Background(), "mem.fanout", handler))
	require.NoError(t, s2.Subscribe(context.Background(), "mem.fanout", handler))

	PublishToMemory("mem.fanout", []byte("x"))

	waitFor(t, func() bool { return atomic.LoadInt32(&count) == 2 })
}

func TestMemorySubscriber_DuplicateSubscribe(t *testing.T) {
	sub, _ := NewMemorySubscriber()
	defer func() { _ = sub.Close() }()

	noop := func(context.Context, string, []byte) error { return nil }
	require.NoError(t, sub.Subscribe(context.Background(), "mem.dup", noop))
	assert.Error(t, sub.Subscribe(context.Background(), "mem.dup", noop))
}

func TestMemorySubscriber_Unsubscribe(t *testing.T) {
	sub, _ := NewMemorySubscriber()
	defer func() { _ = sub.Close() }()

	var count int32
	require.NoError(t, sub.Subscribe(context.Background(), "mem.unsub", func(context.Context, string, []byte) error {
		atomic.AddInt32(&count, 1)
		return nil
	}))
	require.NoError(t, sub.Unsubscribe("mem.unsub"))
	assert.Error(t, sub.Unsubscribe("mem.unsub"))

	PublishToMemory("mem.unsub", []byte("x"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&count))

	broker.mu.RLock()
	_, registered := broker.subscribers["mem.unsub"]
	broker.mu.RUnlock()
	assert.False(t, registered)
}

func TestMemorySubscriber_HandlerErrorDoesNotStopConsumer(t *testing.T) {
	sub, _ := NewMemorySubscriber()
	sub.log = testLogger()
	defer func() { _ = sub.Close() }()

	var count int32
	require.NoError(t, sub.Subscribe(context.Background(), "mem.errors", func(context.Context, string, []byte) error {
		if atomic.AddInt32(&count, 1) == 1 {
			return errors.New("first fails")
		}
		return nil
	}))

	PublishToMemory("mem.errors", []byte("1"))
	PublishToMemory("mem.errors", []byte("2"))

	waitFor(t, func() bool { return atomic.LoadInt32(&count) == 2 })
}

func TestMemorySubscriber_CloseStopsDelivery(t *testing.T) {
	sub, _ := NewMemorySubscriber()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, sub.Subscribe(ctx, "mem.close", func(context.Context, string, []byte) error { return nil }))
	require.NoError(t, sub.Close())

	broker.mu.RLock()
	defer broker.mu.RUnlock()
	assert.Empty(t, broker.subscribers["mem.close"])
}
