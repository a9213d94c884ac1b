package handlers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorhub/sensorhub/internal/models"
	"github.com/sensorhub/sensorhub/internal/storage"
)

func TestHandler_Health(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, "GET", "/health", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var health models.HealthResponse
	decode(t, resp, &health)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "up", health.Database)
	assert.Equal(t, Version, health.Version)
	assert.NotEmpty(t, health.Timestamp)
}

func TestHandler_HealthDatabaseDown(t *testing.T) {
	app, store := newTestApp(t)
	require.NoError(t, storage.Close(store.DB()))

	resp := doRequest(t, app, "GET", "/health", "")
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var health models.HealthResponse
	decode(t, resp, &health)
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "down", health.Database)
}

func TestHandler_NotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, "GET", "/weather/forecast/now", "")
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var body models.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.Equal(t, "/weather/forecast/now", body.Error.Path)
}
