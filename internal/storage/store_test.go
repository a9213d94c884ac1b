package storage

import (
	"context"
	"testing"
	"time"

	"github.com/sensorhub/sensorhub/internal/aggregation"
	"github.com/sensorhub/sensorhub/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAir(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	readings := []AirReading{
		{BoxID: "box-1", RecordedAt: local(10, 5, 10), Temperature: f64(10)},
		{BoxID: "box-1", RecordedAt: local(10, 5, 40), Temperature: f64(21)},
		{BoxID: "box-2", RecordedAt: local(10, 8, 0), Temperature: f64(30), MQ9CO: f64(4)},
		{BoxID: "box-2", RecordedAt: local(10, 9, 0)}, // no temperature
		{BoxID: "box-1", RecordedAt: local(11, 1, 0), Temperature: f64(99)},
		{BoxID: "box-3", RecordedAt: local(9, 23, 59), Temperature: f64(50)},
	}
	require.NoError(t, s.InsertAirReadings(ctx, readings))
}

func todayWindow(t *testing.T) aggregation.Window {
	t.Helper()
	w, err := aggregation.ComputeWindow(aggregation.WindowToday, local(10, 12, 0), brt, "", "")
	require.NoError(t, err)
	return w
}

func TestStampUsesLocalCalendar(t *testing.T) {
	s := newTestStore(t)

	// 01:30 UTC on the 11th is 22:30 on the 10th (a Wednesday) in BRT
	at, b := s.stamp(time.Date(2024, 1, 11, 1, 30, 45, 999, time.UTC))
	assert.Equal(t, time.Date(2024, 1, 11, 1, 30, 45, 0, time.UTC), at)
	assert.Equal(t, "2024-01-10", b.LocalDate)
	assert.Equal(t, 22, b.LocalHour)
	assert.Equal(t, 4, b.LocalWeekday)
}

func TestAverageByBucketHourly(t *testing.T) {
	s := newTestStore(t)
	seedAir(t, s)

	q := aggregation.BucketQuery{
		Table:        "air_readings",
		Column:       "temperature",
		SourceColumn: "box_id",
		Window:       todayWindow(t),
		Key:          aggregation.KeyHourOfDay,
	}

	rows, err := s.AverageByBucket(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 2, "null-only hour 9 and other days are omitted")
	assert.Equal(t, "5", rows[0].Key)
	assert.InDelta(t, 15.5, rows[0].Value, 1e-9)
	assert.Equal(t, "8", rows[1].Key)
	assert.InDelta(t, 30.0, rows[1].Value, 1e-9)

	q.SourceID = "box-1"
	rows, err = s.AverageByBucket(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "5", rows[0].Key)
}

func TestAverageByBucketWeeklyAndDaily(t *testing.T) {
	s := newTestStore(t)
	seedAir(t, s)
	ctx := context.Background()

	week, err := aggregation.ComputeWindow(aggregation.WindowThisWeek, local(10, 12, 0), brt, "", "")
	require.NoError(t, err)

	rows, err := s.AverageByBucket(ctx, aggregation.BucketQuery{
		Table: "air_readings", Column: "temperature", Window: week, Key: aggregation.KeyDayOfWeek,
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	// tuesday 9th, wednesday 10th, thursday 11th
	assert.Equal(t, []string{"3", "4", "5"}, []string{rows[0].Key, rows[1].Key, rows[2].Key})
	assert.InDelta(t, (10.0+21+30)/3, rows[1].Value, 1e-9)

	days, err := aggregation.ComputeWindow(aggregation.WindowCustom, time.Now(), brt, "2024-01-09", "2024-01-10")
	require.NoError(t, err)
	rows, err = s.AverageByBucket(ctx, aggregation.BucketQuery{
		Table: "air_readings", Column: "temperature", Window: days, Key: aggregation.KeyCalendarDate,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01-09", rows[0].Key)
	assert.Equal(t, "2024-01-10", rows[1].Key)
}

func TestAverageByBucketRejectsBadQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AverageByBucket(ctx, aggregation.BucketQuery{
		Table: "air_readings", Column: "temperature; DROP TABLE air_readings", Key: aggregation.KeyHourOfDay,
	})
	assert.Error(t, err)

	_, err = s.AverageByBucket(ctx, aggregation.BucketQuery{
		Table: "air_readings", Column: "temperature", Key: "minute",
	})
	assert.Error(t, err)

	_, err = s.AverageByBucket(ctx, aggregation.BucketQuery{
		Table: "missing_table", Column: "temperature", Window: todayWindow(t), Key: aggregation.KeyHourOfDay,
	})
	assert.Error(t, err)
}

func TestBucketKey(t *testing.T) {
	assert.Equal(t, "5", bucketKey(int64(5)))
	assert.Equal(t, "7", bucketKey([]byte("7")))
	assert.Equal(t, "2024-01-10", bucketKey("2024-01-10"))
	assert.Equal(t, "2024-01-10", bucketKey(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "3", bucketKey(int32(3)))
}

func TestDSN(t *testing.T) {
	dsn, err := DSN(config.DatabaseConfig{Driver: "mysql", User: "u", Password: "p", Host: "db", Name: "hub"})
	require.NoError(t, err)
	assert.Equal(t, "u:p@tcp(db:3306)/hub?charset=utf8mb4&parseTime=true&loc=UTC", dsn)

	dsn, err = DSN(config.DatabaseConfig{Driver: "postgres", User: "u", Password: "p", Host: "db", Port: 6543, Name: "hub"})
	require.NoError(t, err)
	assert.Contains(t, dsn, "port=6543")
	assert.Contains(t, dsn, "sslmode=disable")

	_, err = DSN(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
