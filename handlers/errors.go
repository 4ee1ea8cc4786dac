package handlers

import (
	"errors"

	"yourland-onboarding/services"

	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors onto status codes. msg is the user-facing summary;
// the wrapped error goes into "cause".
func respondError(c *fiber.Ctx, msg string, err error) error {
	status := fiber.StatusInternalServerError
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, services.ErrConflict):
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
