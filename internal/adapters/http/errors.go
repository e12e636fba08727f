package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/bikepaths/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, 401, "unauthorized", msg)
}

// respondError maps a service error onto the API error shape. Anything
// unrecognised is logged and reported without detail.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case domain.IsValidation(err),
		errors.Is(err, domain.ErrObstacleTooFar),
		errors.Is(err, domain.ErrSegmentNotFound):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrNoRouteFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, "path not found")
	}
	LoggerFromCtx(c.UserContext()).Error("request failed",
		"method", c.Method(), "path", c.Path(), "error", err)
	return errInternal(c, "internal server error")
}
