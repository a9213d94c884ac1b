package handlers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorhub/sensorhub/internal/models"
	"github.com/sensorhub/sensorhub/internal/services"
	"github.com/sensorhub/sensorhub/internal/storage"
)

func TestListSources(t *testing.T) {
	app, store := newTestApp(t)

	resp := doRequest(t, app, "GET", "/air/sources", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var empty models.SourceListResponse
	decode(t, resp, &empty)
	assert.Equal(t, []string{}, empty.Sources)

	seedSeries(t, store)
	resp = doRequest(t, app, "GET", "/air/sources", "")
	var got models.SourceListResponse
	decode(t, resp, &got)
	assert.Equal(t, []string{"box-1", "box-2"}, got.Sources)
}

func TestListAirReadings(t *testing.T) {
	app, store := newTestApp(t)
	seedSeries(t, store)

	resp := doRequest(t, app, "GET", "/air/readings?box_id=box-1&start=2024-01-09&end=2024-01-10", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var readings []storage.AirReading
	decode(t, resp, &readings)
	require.Len(t, readings, 3)
	assert.Equal(t, "box-1", readings[0].BoxID)

	resp = doRequest(t, app, "GET", "/air/readings?sensor=temperature&box_id=box-2", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var projected []map[string]interface{}
	decode(t, resp, &projected)
	require.Len(t, projected, 1)
	assert.Equal(t, 30.0, projected[0]["temperature"])
	assert.Len(t, projected[0], 3)

	resp = doRequest(t, app, "GET", "/air/readings?sensor=password", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPageAirReadings(t *testing.T) {
	app, store := newTestApp(t)
	seedSeries(t, store)

	resp := doRequest(t, app, "GET", "/air/readings/page?page=2&limit=2", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var page struct {
		Page    int                  `json:"page"`
		Limit   int                  `json:"limit"`
		Results []storage.AirReading `json:"results"`
	}
	decode(t, resp, &page)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.Limit)
	assert.Len(t, page.Results, 2)

	resp = doRequest(t, app, "GET", "/air/readings/page?page=two", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp = doRequest(t, app, "GET", "/air/readings/page?limit=0&page=0", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLatestAirReading(t *testing.T) {
	app, store := newTestApp(t)

	resp := doRequest(t, app, "GET", "/air/readings/latest", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var empty services.AirOverview
	decode(t, resp, &empty)
	assert.Zero(t, empty.TotalBoxes)
	assert.Empty(t, empty.Readings)

	resp = doRequest(t, app, "GET", "/air/readings/latest?box_id=box-1", "")
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	seedSeries(t, store)

	resp = doRequest(t, app, "GET", "/air/readings/latest?box_id=box-1", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var latest storage.AirReading
	decode(t, resp, &latest)
	assert.Equal(t, "box-1", latest.BoxID)

	resp = doRequest(t, app, "GET", "/air/readings/latest", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var overview services.AirOverview
	decode(t, resp, &overview)
	assert.Equal(t, 2, overview.TotalBoxes)
	assert.Len(t, overview.Readings, 2)
}

func TestLatestGardenReading(t *testing.T) {
	app, store := newTestApp(t)

	resp := doRequest(t, app, "GET", "/garden/readings/latest", "")
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	var body models.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)

	seedSeries(t, store)
	resp = doRequest(t, app, "GET", "/garden/readings/latest", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var g storage.GardenReading
	decode(t, resp, &g)
	assert.Equal(t, 50.0, *g.SoilWet)
	assert.Nil(t, g.SoilDry)
}
