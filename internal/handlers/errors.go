package handlers

import (
	"errors"
	"log/slog"

	"storekode/internal/services"

	"github.com/gofiber/fiber/v2"
)

const (
	msgInternalServer     = "Internal server error"
	msgInvalidBody        = "Invalid request body"
	msgValidationFailed   = "Validation Error"
	msgUserExists         = "User already exists"
	msgInvalidCredentials = "Invalid credentials"
	msgAuthRequired       = "Authentication required"
	msgForbidden          = "Forbidden"
	msgInvalidStoreID     = "Invalid store ID"
	msgStoreNotFound      = "Store not found"
	msgDuplicateReviewPID = "A store with this Google Review PID already exists"
)

// writeError is the single place service errors become HTTP responses. Anything
// unrecognised is logged and answered with a generic 500.
func writeError(c *fiber.Ctx, logger *slog.Logger, op string, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": msgValidationFailed,
			"errors":  verr.Fields,
		})
	case errors.Is(err, services.ErrDuplicateEmail):
		return message(c, fiber.StatusBadRequest, msgUserExists)
	case errors.Is(err, services.ErrInvalidCredentials):
		return message(c, fiber.StatusBadRequest, msgInvalidCredentials)
	case errors.Is(err, services.ErrDuplicateReviewPID):
		return message(c, fiber.StatusBadRequest, msgDuplicateReviewPID)
	case errors.Is(err, services.ErrInvalidID):
		return message(c, fiber.StatusBadRequest, msgInvalidStoreID)
	case errors.Is(err, services.ErrStoreNotFound):
		return message(c, fiber.StatusNotFound, msgStoreNotFound)
	case services.IsAuthenticationError(err):
		return message(c, fiber.StatusUnauthorized, msgAuthRequired)
	case errors.Is(err, services.ErrForbidden):
		return message(c, fiber.StatusForbidden, msgForbidden)
	default:
		logger.ErrorContext(c.UserContext(), op, "error", err)
		return message(c, fiber.StatusInternalServerError, msgInternalServer)
	}
}

func message(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"message": msg})
}
