package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/sensorhub/sensorhub/internal/models"
	"github.com/sensorhub/sensorhub/internal/services"
)

// statusByCode maps service error codes to HTTP status
var statusByCode = map[string]int{
	services.CodeValidation: fiber.StatusBadRequest,
	services.CodeNotFound:   fiber.StatusNotFound,
	services.CodeStorage:    fiber.StatusInternalServerError,
}

// ErrorHandler renders every error as models.ErrorResponse. Service errors
// keep their code; anything unrecognized is a generic 500.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		detail := models.ErrorDetail{
			Code:    "INTERNAL_ERROR",
			Message: "Internal Server Error",
		}

		var (
			se *services.ServiceError
			fe *fiber.Error
		)
		switch {
		case errors.As(err, &se):
			if s, ok := statusByCode[se.Code]; ok {
				status = s
			}
			detail.Code = se.Code
			detail.Message = se.Message
			detail.Details = se.Details
		case errors.As(err, &fe):
			status = fe.Code
			detail.Code = codeForStatus(fe.Code)
			detail.Message = fe.Message
		}

		log := logger.WithContext(c.UserContext())
		fields := []interface{}{
			"path", c.Path(),
			"method", c.Method(),
			"status", status,
			"error", err,
		}
		if status >= fiber.StatusInternalServerError {
			log.Error("Request failed", fields...)
		} else {
			log.Debug("Request rejected", fields...)
		}

		if status != fiber.StatusNotFound && status != fiber.StatusMethodNotAllowed {
			detail.Path = c.Path()
		}

		return c.Status(status).JSON(models.ErrorResponse{Error: detail})
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return services.CodeValidation
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusNotFound:
		return services.CodeNotFound
	case fiber.StatusTooManyRequests:
		return "RATE_LIMITED"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	default:
		if status >= fiber.StatusInternalServerError {
			return "INTERNAL_ERROR"
		}
		return "ERROR"
	}
}
