package server

import (
	"errors"

	"writeflow/internal/middleware"
	"writeflow/internal/models"
	"writeflow/internal/token"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid ID"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// commentIDParam returns the :commentId route parameter. Comment ids are
// opaque strings, so only emptiness is rejected.
func (s *Server) commentIDParam(c *fiber.Ctx) (string, error) {
	id := c.Params("commentId")
	if id == "" {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid comment ID"))
		return "", errResponseWritten
	}
	return id, nil
}

// identity returns the caller attached by the auth gate. Routes behind
// AuthRequired always have one.
func identity(c *fiber.Ctx) *token.Identity {
	return middleware.IdentityFrom(c)
}

// parseBody decodes the request body into dst, writing a 400 on failure.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}
