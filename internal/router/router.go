package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/sensorhub/sensorhub/internal/config"
	"github.com/sensorhub/sensorhub/internal/handlers"
	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/sensorhub/sensorhub/internal/middleware"
	"github.com/sensorhub/sensorhub/internal/queue"
	"github.com/sensorhub/sensorhub/internal/storage"
)

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, store *storage.Store, publisher queue.Publisher, cfg *config.Config) (*handlers.Handler, error) {
	h, err := handlers.New(logger, store, cfg, publisher)
	if err != nil {
		return nil, err
	}

	// Global middlewares; dashboards are served from other origins
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger, logging.DefaultMiddlewareConfig()))

	// Health check (no auth required)
	app.Get("/health", h.Health)

	// Reads are open, writes need an API key and are rate limited
	write := []fiber.Handler{
		middleware.RateLimit(logger, cfg.RateLimit),
		middleware.APIKeyAuth(logger, cfg.Auth),
	}
	withWrite := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, write...), handler)
	}

	v1 := app.Group("/api/v1")

	// Air quality
	v1.Post("/air/readings", withWrite(h.CreateAirReading)...)
	v1.Get("/air/readings", h.ListAirReadings)
	v1.Get("/air/readings/page", h.PageAirReadings)
	v1.Get("/air/readings/latest", h.LatestAirReading)
	v1.Get("/air/sources", h.ListSources)

	// Garden
	v1.Post("/garden/readings", withWrite(h.CreateGardenReading)...)
	v1.Get("/garden/readings/latest", h.LatestGardenReading)

	// Pump
	v1.Post("/pump/events", withWrite(h.CreatePumpEvent)...)
	v1.Get("/pump/events", h.ListPumpEvents)
	v1.Get("/pump/events/latest", h.LatestPumpEvent)
	v1.Get("/pump/status", h.PumpStatus)

	// Alerts
	v1.Post("/alerts", withWrite(h.CreateAlert)...)
	v1.Get("/alerts", h.ListAlerts)
	v1.Get("/alerts/source/:source_id", h.AlertsBySource)
	v1.Get("/alerts/sensor/:sensor", h.AlertsBySensor)

	// Time-bucketed series, any domain
	v1.Get("/:domain/series", h.Series)
	v1.Get("/:domain/comparison", h.Comparison)
	v1.Get("/:domain/anomalies", h.Anomalies)

	// 404 handler
	app.Use(h.NotFound)

	return h, nil
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, store *storage.Store, publisher queue.Publisher, cfg *config.Config) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		AppName:               "SensorHub API",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	if _, err := Setup(app, logger, store, publisher, cfg); err != nil {
		return nil, err
	}

	return app, nil
}
