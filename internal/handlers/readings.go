package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sensorhub/sensorhub/internal/models"
)

// ListSources handles GET /air/sources
func (h *Handler) ListSources(c *fiber.Ctx) error {
	sources, err := h.readingService.Sources(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(models.SourceListResponse{Sources: sources})
}

func readingQuery(c *fiber.Ctx) (models.ReadingQuery, error) {
	q := models.ReadingQuery{
		BoxID:  c.Query("box_id"),
		Sensor: c.Query("sensor"),
		Start:  c.Query("start"),
		End:    c.Query("end"),
	}

	var err error
	if q.Page, err = queryInt(c, "page"); err != nil {
		return q, err
	}
	if q.Limit, err = queryInt(c, "limit"); err != nil {
		return q, err
	}
	return q, nil
}

// ListAirReadings handles GET /air/readings
func (h *Handler) ListAirReadings(c *fiber.Ctx) error {
	q, err := readingQuery(c)
	if err != nil {
		return err
	}

	results, err := h.readingService.ListAirReadings(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(results)
}

// PageAirReadings handles GET /air/readings/page
func (h *Handler) PageAirReadings(c *fiber.Ctx) error {
	q, err := readingQuery(c)
	if err != nil {
		return err
	}

	page, err := h.readingService.PageAirReadings(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// LatestAirReading handles GET /air/readings/latest. With box_id it returns
// that box's newest reading, otherwise the cross-box overview.
func (h *Handler) LatestAirReading(c *fiber.Ctx) error {
	if boxID := c.Query("box_id"); boxID != "" {
		r, err := h.readingService.LatestAirReading(c.UserContext(), boxID)
		if err != nil {
			return err
		}
		return c.JSON(r)
	}

	overview, err := h.readingService.Overview(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(overview)
}

// LatestGardenReading handles GET /garden/readings/latest
func (h *Handler) LatestGardenReading(c *fiber.Ctx) error {
	r, err := h.readingService.LatestGardenReading(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(r)
}
