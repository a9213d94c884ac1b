package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/sensorhub/sensorhub/internal/config"
	"github.com/sensorhub/sensorhub/internal/domain"
	"github.com/sensorhub/sensorhub/internal/envelope"
	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/sensorhub/sensorhub/internal/queue"
	"github.com/sensorhub/sensorhub/internal/services"
	"github.com/sensorhub/sensorhub/internal/storage"
)

// Version is reported by the health endpoint
var Version = "1.0.0"

// Handler contains all HTTP handlers
type Handler struct {
	logger *logging.Logger
	store  *storage.Store

	// Services
	seriesService  *services.SeriesService
	ingestService  *services.IngestService
	readingService *services.ReadingService
	eventService   *services.EventService
}

// New creates a new handler instance. publisher may be nil; when set and
// cfg.Ingest.PublishAlerts is on, stored alerts are fanned out on the
// alerts subject.
func New(logger *logging.Logger, store *storage.Store, cfg *config.Config, publisher queue.Publisher) (*Handler, error) {
	seriesService := services.NewSeriesService(logger, store, domain.DefaultRegistry(), store.Location(), cfg.Aggregation.MaxRangeDays)
	ingestService := services.NewIngestService(logger, store)

	if publisher != nil && cfg.Ingest.PublishAlerts {
		codec, err := envelope.NewCodec(cfg.Queue.Compression)
		if err != nil {
			return nil, err
		}
		ingestService.WithAlertPublisher(publisher, codec, cfg.Queue.Subjects.Alerts)
	}

	return &Handler{
		logger:         logger,
		store:          store,
		seriesService:  seriesService,
		ingestService:  ingestService,
		readingService: services.NewReadingService(logger, store),
		eventService:   services.NewEventService(logger, store),
	}, nil
}

// IngestService exposes the shared ingest path, e.g. for a queue consumer
// running in the same process
func (h *Handler) IngestService() *services.IngestService {
	return h.ingestService
}

// parseBody decodes a JSON body, rejecting malformed input with 400. The
// decoder error names Go types, so it is logged rather than returned.
func (h *Handler) parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		h.logger.WithContext(c.UserContext()).Debug("Rejected request body", "path", c.Path(), "error", err)
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	return nil
}

// queryInt parses an optional integer query parameter. Missing is 0.
func queryInt(c *fiber.Ctx, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, services.NewValidationError(name + " must be an integer")
	}
	return v, nil
}

// splitList parses a comma separated query value, dropping empty items
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
