package subscriber

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorhub/sensorhub/internal/utils"
)

// startNATS starts an embedded JetStream server for the test
func startNATS(t *testing.T) *server.Server {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	})
	require.NoError(t, err)

	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns
}

func newTestNATSSubscriber(t *testing.T, url string) *NATSSubscriber {
	t.Helper()
	sub, err := NewNATSSubscriber(url, "", "", Config{NodeID: "node1", ConsumerGroup: "test", Logger: testLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })
	return sub
}

func publishJS(t *testing.T, url, subject string, data []byte) {
	t.Helper()
	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	js, err := nc.JetStream()
	require.NoError(t, err)
	_, err = js.Publish(subject, data)
	require.NoError(t, err)
}

func TestNATSSubscriber_New_InvalidURL(t *testing.T) {
	_, err := NewNATSSubscriber("nats://127.0.0.1:1", "", "", Config{Logger: testLogger()})
	assert.Error(t, err)
}

func TestNATSSubscriber_DurableName(t *testing.T) {
	s := &NATSSubscriber{cfg: Config{NodeID: "node1", ConsumerGroup: "ingest"}}

	assert.Equal(t, "ingest-node1-sensorhub_air_readings", s.durableName("sensorhub.air.readings"))
	assert.Equal(t, "ingest-node1-sensorhub_all", s.durableName("sensorhub.*"))
}

func TestNATSSubscriber_ReceivesAndAcks(t *testing.T) {
	ns := startNATS(t)
	sub := newTestNATSSubscriber(t, ns.ClientURL())

	received := make(chan string, 1)
	require.NoError(t, sub.Subscribe(context.Background(), "sensorhub.air.readings", func(_ context.Context, subject string, data []byte) error {
		received <- subject + "=" + string(data)
		return nil
	}))

	publishJS(t, ns.ClientURL(), "sensorhub.air.readings", []byte("reading"))

	select {
	case got := <-received:
		assert.Equal(t, "sensorhub.air.readings=reading", got)
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}

	js, err := sub.conn.JetStream()
	require.NoError(t, err)
	_, err = js.StreamInfo(utils.NATSStreamName("sensorhub.air.readings"))
	assert.NoError(t, err, "subscriber should create the stream")
}

func TestNATSSubscriber_RedeliversOnFailure(t *testing.T) {
	ns := startNATS(t)
	sub := newTestNATSSubscriber(t, ns.ClientURL())

	var attempts int32
	done := make(chan struct{})
	require.NoError(t, sub.Subscribe(context.Background(), "sensorhub.pump.events", func(context.Context, string, []byte) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return errors.New("database unavailable")
		}
		close(done)
		return nil
	}))

	publishJS(t, ns.ClientURL(), "sensorhub.pump.events", []byte("event"))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("message was not redelivered")
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestNATSSubscriber_DropIsNotRedelivered(t *testing.T) {
	ns := startNATS(t)
	sub := newTestNATSSubscriber(t, ns.ClientURL())

	var attempts int32
	require.NoError(t, sub.Subscribe(context.Background(), "sensorhub.garden.readings", func(context.Context, string, []byte) error {
		atomic.AddInt32(&attempts, 1)
		return Drop(errors.New("invalid json"))
	}))

	publishJS(t, ns.ClientURL(), "sensorhub.garden.readings", []byte("{"))

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestNATSSubscriber_DuplicateAndUnsubscribe(t *testing.T) {
	ns := startNATS(t)
	sub := newTestNATSSubscriber(t, ns.ClientURL())

	noop := func(context.Context, string, []byte) error { return nil }
	require.NoError(t, sub.Subscribe(context.Background(), "sensorhub.alerts", noop))
	assert.Error(t, sub.Subscribe(context.Background(), "sensorhub.alerts", noop))

	require.NoError(t, sub.Unsubscribe("sensorhub.alerts"))
	assert.Error(t, sub.Unsubscribe("sensorhub.alerts"))
}
