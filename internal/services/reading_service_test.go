package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorhub/sensorhub/internal/models"
	"github.com/sensorhub/sensorhub/internal/storage"
)

func seedBoxes(t *testing.T, store *storage.Store) {
	t.Helper()
	at := func(day, hour int) time.Time { return time.Date(2024, 1, day, hour, 0, 0, 0, brt) }

	require.NoError(t, store.InsertAirReadings(context.Background(), []storage.AirReading{
		{BoxID: "box-b", RecordedAt: at(9, 10), Temperature: f64(99)},
		{BoxID: "box-b", RecordedAt: at(10, 10), Temperature: f64(20), Humidity: f64(50), MQ9CO: f64(10), MQ2H2: f64(10)},
		{BoxID: "box-a", RecordedAt: at(10, 8), Temperature: f64(30), MQ135Smoke: f64(5)},
		{BoxID: "box-a", RecordedAt: at(8, 8), Temperature: f64(1)},
	}))
}

func TestSources(t *testing.T) {
	store := newTestStore(t)
	svc := NewReadingService(testLogger(), store)

	sources, err := svc.Sources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{}, sources)

	seedBoxes(t, store)
	sources, err = svc.Sources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"box-a", "box-b"}, sources)
}

func TestListAirReadingsProjection(t *testing.T) {
	store := newTestStore(t)
	seedBoxes(t, store)
	svc := NewReadingService(testLogger(), store)

	out, err := svc.ListAirReadings(context.Background(), models.ReadingQuery{BoxID: "box-b", Sensor: "temperature"})
	require.NoError(t, err)

	rows, ok := out.([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, rows, 2)
	assert.Equal(t, "box-b", rows[0]["box_id"])
	assert.Equal(t, "2024-01-10T13:00:00Z", rows[0]["recorded_at"])
	require.NotNil(t, rows[0]["temperature"])
	assert.Equal(t, 20.0, *rows[0]["temperature"].(*float64))
	assert.NotContains(t, rows[0], "humidity")
}

func TestListAirReadingsFilters(t *testing.T) {
	store := newTestStore(t)
	seedBoxes(t, store)
	svc := NewReadingService(testLogger(), store)
	ctx := context.Background()

	out, err := svc.ListAirReadings(ctx, models.ReadingQuery{Start: "2024-01-10", End: "2024-01-10"})
	require.NoError(t, err)
	readings := out.([]storage.AirReading)
	require.Len(t, readings, 2)
	assert.Equal(t, "box-b", readings[0].BoxID)

	_, err = svc.ListAirReadings(ctx, models.ReadingQuery{Sensor: "password"})
	assert.True(t, IsCode(err, CodeValidation))

	_, err = svc.ListAirReadings(ctx, models.ReadingQuery{Start: "2024-01-10", End: "2024-01-09"})
	assert.True(t, IsCode(err, CodeValidation))

	_, err = svc.ListAirReadings(ctx, models.ReadingQuery{Start: "last tuesday"})
	assert.True(t, IsCode(err, CodeValidation))
}

func TestPageAirReadings(t *testing.T) {
	store := newTestStore(t)
	seedBoxes(t, store)
	svc := NewReadingService(testLogger(), store)
	ctx := context.Background()

	page, err := svc.PageAirReadings(ctx, models.ReadingQuery{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.Limit)
	assert.Len(t, page.Results.([]storage.AirReading), 1)

	page, err = svc.PageAirReadings(ctx, models.ReadingQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.Limit)
	assert.Len(t, page.Results.([]storage.AirReading), 4)

	_, err = svc.PageAirReadings(ctx, models.ReadingQuery{Page: -1})
	assert.True(t, IsCode(err, CodeValidation))
	_, err = svc.PageAirReadings(ctx, models.ReadingQuery{Limit: 5000})
	assert.True(t, IsCode(err, CodeValidation))
}

func TestLatestAirReading(t *testing.T) {
	store := newTestStore(t)
	seedBoxes(t, store)
	svc := NewReadingService(testLogger(), store)

	r, err := svc.LatestAirReading(context.Background(), "box-b")
	require.NoError(t, err)
	assert.Equal(t, 20.0, *r.Temperature)

	_, err = svc.LatestAirReading(context.Background(), "box-z")
	assert.True(t, IsCode(err, CodeNotFound))
}

func TestOverview(t *testing.T) {
	store := newTestStore(t)
	svc := NewReadingService(testLogger(), store)

	empty, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Zero(t, empty.TotalBoxes)
	assert.Zero(t, empty.TemperatureAvg)
	assert.NotNil(t, empty.Readings)

	seedBoxes(t, store)
	got, err := svc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, got.TotalBoxes)
	assert.Len(t, got.Readings, 2)
	assert.Equal(t, 25.0, got.TemperatureAvg)
	// box-a has no humidity; it counts as zero
	assert.Equal(t, 25.0, got.HumidityAvg)
	// box-b: (10+10)/10 = 2, box-a: 5/10 = 0.5
	assert.Equal(t, 1.25, got.ToxicGasAvg)
}

func TestLatestGardenReading(t *testing.T) {
	store := newTestStore(t)
	svc := NewReadingService(testLogger(), store)
	ctx := context.Background()

	_, err := svc.LatestGardenReading(ctx)
	assert.True(t, IsCode(err, CodeNotFound))

	require.NoError(t, store.InsertGardenReading(ctx, &storage.GardenReading{
		RecordedAt: time.Date(2024, 1, 10, 9, 0, 0, 0, brt),
		SoilWet:    f64(70),
	}))
	g, err := svc.LatestGardenReading(ctx)
	require.NoError(t, err)
	assert.Equal(t, 70.0, *g.SoilWet)
}
