package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"ijara_backend/internal/ads"
	"ijara_backend/internal/service"
	"ijara_backend/pkg/logger"
	"ijara_backend/pkg/utils/image"
)

// ErrorHandler maps domain errors to HTTP responses. Validation errors are
// returned as a field-keyed map; unknown errors are logged and become 500.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var verr *ads.ValidationError
		var ferr *fiber.Error

		switch {
		case errors.As(err, &verr):
			return c.Status(fiber.StatusBadRequest).JSON(verr.Fields)
		case errors.Is(err, image.ErrInvalidImageData):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"images": []string{image.ErrInvalidImageData.Error()},
			})
		case errors.Is(err, ads.ErrInvalidParams):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coordinates."})
		case errors.Is(err, service.ErrInvalidCredentials):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
		case errors.Is(err, ads.ErrUnauthenticated):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication credentials were not provided"})
		case errors.Is(err, ads.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not have permission to perform this action"})
		case errors.Is(err, ads.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
		case errors.Is(err, ads.ErrRateLimited):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Request was throttled"})
		case errors.As(err, &ferr):
			return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
		}

		log.Error("%s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}
