package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler converts returned errors into a JSON error body. Fiber
// errors keep their status code; everything else is a 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
