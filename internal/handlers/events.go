package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sensorhub/sensorhub/internal/storage"
)

// ListPumpEvents handles GET /pump/events?status=
func (h *Handler) ListPumpEvents(c *fiber.Ctx) error {
	events, err := h.eventService.PumpEvents(c.UserContext(), c.Query("status"))
	if err != nil {
		return err
	}
	return c.JSON(events)
}

// LatestPumpEvent handles GET /pump/events/latest
func (h *Handler) LatestPumpEvent(c *fiber.Ctx) error {
	e, err := h.eventService.LatestPumpEvent(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(e)
}

// PumpStatus handles GET /pump/status
func (h *Handler) PumpStatus(c *fiber.Ctx) error {
	status, err := h.eventService.PumpStatus(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(status)
}

// ListAlerts handles GET /alerts
func (h *Handler) ListAlerts(c *fiber.Ctx) error {
	return h.alerts(c, storage.AlertFilter{})
}

// AlertsBySource handles GET /alerts/source/:source_id
func (h *Handler) AlertsBySource(c *fiber.Ctx) error {
	return h.alerts(c, storage.AlertFilter{SourceID: c.Params("source_id")})
}

// AlertsBySensor handles GET /alerts/sensor/:sensor
func (h *Handler) AlertsBySensor(c *fiber.Ctx) error {
	return h.alerts(c, storage.AlertFilter{Sensor: c.Params("sensor")})
}

func (h *Handler) alerts(c *fiber.Ctx, filter storage.AlertFilter) error {
	alerts, err := h.eventService.Alerts(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(alerts)
}
