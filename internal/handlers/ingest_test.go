package handlers

import (
	"context"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorhub/sensorhub/internal/models"
	"github.com/sensorhub/sensorhub/internal/storage"
)

func TestCreateAirReading(t *testing.T) {
	app, store := newTestApp(t)

	resp := doRequest(t, app, "POST", "/air/readings",
		`{"box_id":"box-1","recorded_at":"2024-01-10 08:00:00","temperature":22.5,"mq2_lpg":1.25}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created models.CreatedResponse
	decode(t, resp, &created)
	assert.NotZero(t, created.ID)

	latest, err := store.LatestAirReading(context.Background(), "box-1")
	require.NoError(t, err)
	assert.Equal(t, 22.5, *latest.Temperature)
	assert.Equal(t, 1.25, *latest.MQ2LPG)
	assert.Nil(t, latest.Fire)
}

func TestCreateRejectsBadInput(t *testing.T) {
	app, store := newTestApp(t)

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"air missing recorded_at", "/air/readings", `{"box_id":"box-1","temperature":20}`},
		{"air missing box", "/air/readings", `{"recorded_at":"2024-01-10 08:00:00"}`},
		{"air bad timestamp", "/air/readings", `{"box_id":"box-1","recorded_at":"10/01/2024"}`},
		{"air malformed json", "/air/readings", `{"box_id":`},
		{"air string sensor", "/air/readings", `{"box_id":"box-1","recorded_at":"2024-01-10 08:00:00","temperature":"hot"}`},
		{"garden missing timestamp", "/garden/readings", `{"soil_wet":40}`},
		{"pump missing status", "/pump/events", `{"event_time":"2024-01-10 08:00:00"}`},
		{"alert missing sensor", "/alerts", `{"source_id":"box-1","value":3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, app, "POST", tt.target, tt.body)
			require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

			var body models.ErrorResponse
			decode(t, resp, &body)
			assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}

	readings, err := store.ListAirReadings(context.Background(), storage.ReadingFilter{})
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func TestCreateHidesDecoderDetail(t *testing.T) {
	app, _ := newTestApp(t)

	for _, body := range []string{
		`{"box_id":"box-1","recorded_at":"2024-01-10 08:00:00","temperature":"hot"}`,
		`{"box_id":`,
		`[1,2,3]`,
	} {
		resp := doRequest(t, app, "POST", "/air/readings", body)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, body)

		var got models.ErrorResponse
		decode(t, resp, &got)
		assert.Equal(t, "invalid JSON body", got.Error.Message, body)
		assert.NotContains(t, got.Error.Message, "float64")
		assert.NotContains(t, got.Error.Message, "models.")
	}
}

func TestCreateGardenPumpAndAlert(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, "POST", "/garden/readings",
		`{"recorded_at":"2024-01-10T09:00:00-03:00","soil_wet":61.5,"soil_dry":20}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doRequest(t, app, "POST", "/pump/events",
		`{"event_time":"2024-01-10 09:05:00","status":"on","origin":"app"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doRequest(t, app, "POST", "/alerts",
		`{"source_id":"box-3","sensor":"mq2_lpg","value":812,"level":"critical","message":"LPG leak"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var alert storage.Alert
	decode(t, resp, &alert)
	assert.Equal(t, "mq2_lpg", alert.Sensor)
	assert.Equal(t, 812.0, alert.Value)
	assert.False(t, alert.Timestamp.IsZero())
}
