package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sensorhub/sensorhub/internal/aggregation"
	"github.com/sensorhub/sensorhub/internal/config"
	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/sensorhub/sensorhub/internal/storage"
)

// brt is a fixed UTC-3 zone so tests do not depend on the tz database
var brt = time.FixedZone("BRT", -3*3600)

// wednesday is 2024-01-10 12:00 local
var wednesday = time.Date(2024, 1, 10, 12, 0, 0, 0, brt)

func testLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, zerolog.Disabled)
}

func f64(v float64) *float64 { return &v }

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	db, err := storage.Open(config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, testLogger())
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))

	t.Cleanup(func() { _ = storage.Close(db) })
	return storage.NewStore(db, brt)
}

// fakeFetcher records every query and answers from respond
type fakeFetcher struct {
	mu      sync.Mutex
	queries []aggregation.BucketQuery
	respond func(q aggregation.BucketQuery) ([]aggregation.BucketRow, error)
}

func (f *fakeFetcher) AverageByBucket(_ context.Context, q aggregation.BucketQuery) ([]aggregation.BucketRow, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	if f.respond == nil {
		return nil, nil
	}
	return f.respond(q)
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// recordingPublisher captures published messages
type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	messages [][]byte
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.messages = append(p.messages, data)
	return nil
}
