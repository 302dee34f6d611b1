package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"stockroom/internal/domain"
	applog "stockroom/internal/log"
)

// statusFor maps engine error kinds to HTTP status codes, so the API layer
// never re-derives business logic.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrCustomerNotFound),
		errors.Is(err, domain.ErrItemNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrProductDisabled),
		errors.Is(err, domain.ErrCustomerInactive):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrInsufficientAvailability),
		errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidDiscount),
		errors.Is(err, domain.ErrInvalidPayment),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrEmptyCart):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// fail renders an engine error. Expected kinds surface their reason string;
// infrastructure failures are logged and hidden behind a generic message.
func fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		applog.Error(c, "server.error", err, nil)
		return c.Status(status).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
