package storage

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sensorhub/sensorhub/internal/config"
	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/stretchr/testify/require"
)

// brt is a fixed UTC-3 zone so tests do not depend on the tz database
var brt = time.FixedZone("BRT", -3*3600)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	var buf bytes.Buffer
	db, err := Open(config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logging.NewWithWriter(&buf, zerolog.ErrorLevel))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	t.Cleanup(func() { _ = Close(db) })
	return NewStore(db, brt)
}

func f64(v float64) *float64 { return &v }

func local(day, hour, minute int) time.Time {
	return time.Date(2024, 1, day, hour, minute, 0, 0, brt)
}
