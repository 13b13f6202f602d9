package blog

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// HTTPError is the single error-to-status boundary for route handlers: it
// maps taxonomy categories onto status codes, logs the full detail server
// side, and returns an opaque status to the client.
func HTTPError(c *fiber.Ctx, logger Logger, err error) error {
	if logger == nil {
		logger = defLogger{}
	}

	var rich *errors.Error
	if !errors.As(err, &rich) {
		rich = errors.Wrap(err, errors.CategoryInternal, "an unexpected server error occurred")
	}

	logger.Error(
		"request failed: %s category=%s path=%s details=%s",
		rich.Message,
		rich.Category,
		c.Path(),
		print.MaybePrettyJSON(rich.Metadata),
	)

	switch rich.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return c.SendStatus(fiber.StatusUnauthorized)
	case errors.CategoryConflict:
		return c.SendStatus(fiber.StatusConflict)
	case errors.CategoryNotFound:
		return c.SendStatus(fiber.StatusNotFound)
	case errors.CategoryValidation, errors.CategoryBadInput:
		return c.SendStatus(fiber.StatusBadRequest)
	default:
		return c.SendStatus(fiber.StatusInternalServerError)
	}
}
