package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sensorhub/sensorhub/internal/config"
	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/sensorhub/sensorhub/internal/middleware"
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

// newTestApp wires every handler on a fresh app with the production error
// handler and a clock fixed at wednesday
func newTestApp(t *testing.T) (*fiber.App, *storage.Store) {
	t.Helper()

	store := newTestStore(t)
	h, err := New(testLogger(), store, config.DefaultConfig(), nil)
	require.NoError(t, err)
	h.seriesService.WithClock(func() time.Time { return wednesday })

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(testLogger())})
	app.Get("/health", h.Health)
	app.Post("/air/readings", h.CreateAirReading)
	app.Get("/air/readings", h.ListAirReadings)
	app.Get("/air/readings/page", h.PageAirReadings)
	app.Get("/air/readings/latest", h.LatestAirReading)
	app.Get("/air/sources", h.ListSources)
	app.Post("/garden/readings", h.CreateGardenReading)
	app.Get("/garden/readings/latest", h.LatestGardenReading)
	app.Post("/pump/events", h.CreatePumpEvent)
	app.Get("/pump/events", h.ListPumpEvents)
	app.Get("/pump/events/latest", h.LatestPumpEvent)
	app.Get("/pump/status", h.PumpStatus)
	app.Post("/alerts", h.CreateAlert)
	app.Get("/alerts", h.ListAlerts)
	app.Get("/alerts/source/:source_id", h.AlertsBySource)
	app.Get("/alerts/sensor/:sensor", h.AlertsBySensor)
	app.Get("/:domain/series", h.Series)
	app.Get("/:domain/comparison", h.Comparison)
	app.Get("/:domain/anomalies", h.Anomalies)
	app.Use(h.NotFound)

	return app, store
}

func doRequest(t *testing.T, app *fiber.App, method, target, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}
