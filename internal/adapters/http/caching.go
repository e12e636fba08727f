package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Handlers that already set the header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}
		// Errors and authenticated responses are never shared.
		if c.Response().StatusCode() >= 400 || c.Get(fiber.HeaderAuthorization) != "" {
			c.Set(fiber.HeaderCacheControl, "private, no-store")
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case path == "/graphql":
			ttl = "private, max-age=0"

		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"

		case path == "/v1/routes/search" || strings.HasSuffix(path, "/search"):
			ttl = "public, max-age=60" // matches the search result cache

		case strings.HasSuffix(path, "/kml"):
			ttl = "public, max-age=300"

		case strings.HasPrefix(path, "/v1/paths/"), strings.HasPrefix(path, "/paths/"):
			ttl = "public, max-age=300" // matches the path detail cache

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
