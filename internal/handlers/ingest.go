package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sensorhub/sensorhub/internal/models"
)

// CreateAirReading handles POST /air/readings
func (h *Handler) CreateAirReading(c *fiber.Ctx) error {
	var req models.AirReadingRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}

	r, err := h.ingestService.RecordAirReading(c.UserContext(), &req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(models.CreatedResponse{
		Message: "air reading stored",
		ID:      r.ID,
	})
}

// CreateGardenReading handles POST /garden/readings
func (h *Handler) CreateGardenReading(c *fiber.Ctx) error {
	var req models.GardenReadingRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}

	r, err := h.ingestService.RecordGardenReading(c.UserContext(), &req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(models.CreatedResponse{
		Message: "garden reading stored",
		ID:      r.ID,
	})
}

// CreatePumpEvent handles POST /pump/events
func (h *Handler) CreatePumpEvent(c *fiber.Ctx) error {
	var req models.PumpEventRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}

	e, err := h.ingestService.RecordPumpEvent(c.UserContext(), &req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(models.CreatedResponse{
		Message: "pump event stored",
		ID:      e.ID,
	})
}

// CreateAlert handles POST /alerts
func (h *Handler) CreateAlert(c *fiber.Ctx) error {
	var req models.AlertRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}

	a, err := h.ingestService.RaiseAlert(c.UserContext(), &req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(a)
}
