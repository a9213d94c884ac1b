package handlers

import (
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/sensorhub/sensorhub/internal/services"
)

// Series handles GET /:domain/series
//
// Query parameters:
//   - sensor: sensor name from the domain allow-list (required)
//   - source_id: restrict to one box; omitted aggregates every box
//   - period: today (default), week, custom
//   - start, end: YYYY-MM-DD, required for custom
func (h *Handler) Series(c *fiber.Ctx) error {
	req := services.SeriesRequest{
		Domain:   c.Params("domain"),
		Period:   c.Query("period"),
		Start:    c.Query("start"),
		End:      c.Query("end"),
		SourceID: c.Query("source_id"),
	}
	if sensor := c.Query("sensor"); sensor != "" {
		req.Sensors = []string{sensor}
	}

	result, err := h.seriesService.Build(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// Comparison handles GET /:domain/comparison?sensors=a,b
func (h *Handler) Comparison(c *fiber.Ctx) error {
	req := services.SeriesRequest{
		Domain:   c.Params("domain"),
		Sensors:  splitList(c.Query("sensors")),
		Period:   c.Query("period"),
		Start:    c.Query("start"),
		End:      c.Query("end"),
		SourceID: c.Query("source_id"),
	}

	result, err := h.seriesService.Compare(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// Anomalies handles GET /:domain/anomalies
//
// Query parameters:
//   - sensor: sensor name from the domain allow-list (required)
//   - source_id, period, start, end: as for Series
//   - algorithm: zscore (default), iqr, moving_average
//   - threshold: detector sensitivity; omitted uses the detector default
func (h *Handler) Anomalies(c *fiber.Ctx) error {
	req := services.AnomalyRequest{
		SeriesRequest: services.SeriesRequest{
			Domain:   c.Params("domain"),
			Period:   c.Query("period"),
			Start:    c.Query("start"),
			End:      c.Query("end"),
			SourceID: c.Query("source_id"),
		},
		Algorithm: c.Query("algorithm"),
	}
	if sensor := c.Query("sensor"); sensor != "" {
		req.Sensors = []string{sensor}
	}
	if raw := strings.TrimSpace(c.Query("threshold")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return services.NewValidationError("threshold must be a number")
		}
		req.Threshold = v
	}

	report, err := h.seriesService.Anomalies(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.JSON(report)
}
