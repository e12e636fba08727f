package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/bikepaths/internal/pkg/auth"
)

const userIDLocal = "user_id"

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's user ID in Locals.
func RequireAuth(v *auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if v == nil {
			return errUnauthorized(c, "authentication is not configured")
		}
		raw, err := auth.FromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return errUnauthorized(c, "missing bearer token")
		}
		userID, err := v.UserID(raw)
		if err != nil {
			return errUnauthorized(c, "invalid token")
		}
		c.Locals(userIDLocal, userID)
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a token is sent. Requests without a
// token continue anonymously; a token that fails verification is rejected.
func OptionalAuth(v *auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := auth.FromHeader(c.Get(fiber.HeaderAuthorization))
		if errors.Is(err, auth.ErrMissingToken) || v == nil {
			return c.Next()
		}
		if err != nil {
			return errUnauthorized(c, "malformed authorization header")
		}
		userID, err := v.UserID(raw)
		if err != nil {
			return errUnauthorized(c, "invalid token")
		}
		c.Locals(userIDLocal, userID)
		return c.Next()
	}
}

// callerID returns the authenticated user ID, or "" for anonymous requests.
func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}
