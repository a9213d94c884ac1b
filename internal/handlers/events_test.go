package handlers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorhub/sensorhub/internal/models"
	"github.com/sensorhub/sensorhub/internal/storage"
)

func TestPumpRoutes(t *testing.T) {
	app, _ := newTestApp(t)

	for _, target := range []string{"/pump/status", "/pump/events/latest"} {
		resp := doRequest(t, app, "GET", target, "")
		require.Equal(t, fiber.StatusNotFound, resp.StatusCode, target)
	}

	for _, body := range []string{
		`{"event_time":"2024-01-10 06:00:00","status":"on","origin":"schedule"}`,
		`{"event_time":"2024-01-10 06:30:00","status":"off","origin":"schedule"}`,
		`{"event_time":"2024-01-10 07:00:00","status":"on","origin":"app"}`,
	} {
		resp := doRequest(t, app, "POST", "/pump/events", body)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	resp := doRequest(t, app, "GET", "/pump/status", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var status models.PumpStatusResponse
	decode(t, resp, &status)
	assert.Equal(t, "on", status.Status)
	assert.Equal(t, "2024-01-10T10:00:00Z", status.EventTime)
	assert.Equal(t, "app", status.Origin)

	resp = doRequest(t, app, "GET", "/pump/events?status=off", "")
	var off []storage.PumpEvent
	decode(t, resp, &off)
	require.Len(t, off, 1)
	assert.Equal(t, "off", off[0].Status)

	resp = doRequest(t, app, "GET", "/pump/events", "")
	var all []storage.PumpEvent
	decode(t, resp, &all)
	require.Len(t, all, 3)
	assert.Equal(t, "app", all[0].Origin)

	resp = doRequest(t, app, "GET", "/pump/events/latest", "")
	var latest storage.PumpEvent
	decode(t, resp, &latest)
	assert.Equal(t, all[0].ID, latest.ID)
}

func TestAlertRoutes(t *testing.T) {
	app, _ := newTestApp(t)

	for _, body := range []string{
		`{"source_id":"box-1","sensor":"mq9_co","value":80,"level":"warning","message":"CO rising"}`,
		`{"source_id":"box-2","sensor":"mq9_co","value":95,"level":"critical","message":"CO high"}`,
		`{"source_id":"box-1","sensor":"fire","value":1,"level":"critical","message":"Flame detected"}`,
	} {
		resp := doRequest(t, app, "POST", "/alerts", body)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/alerts", 3},
		{"/alerts/source/box-1", 2},
		{"/alerts/sensor/mq9_co", 2},
		{"/alerts/sensor/humidity", 0},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			resp := doRequest(t, app, "GET", tt.target, "")
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			var alerts []storage.Alert
			decode(t, resp, &alerts)
			assert.Len(t, alerts, tt.want)
		})
	}
}
