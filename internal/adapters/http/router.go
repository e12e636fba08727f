package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/bikepaths/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited",
				"too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	required := RequireAuth(deps.Auth)
	optional := OptionalAuth(deps.Auth)
	withTimeout := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, requestTimeout)
	}

	v1 := app.Group("/v1")
	v1.Post("/paths", required, withTimeout(CreatePathHandler(deps)))
	v1.Get("/paths", required, withTimeout(ListPathsHandler(deps)))
	v1.Get("/paths/:id", optional, withTimeout(GetPathHandler(deps)))
	v1.Get("/paths/:id/kml", optional, withTimeout(PathKMLHandler(deps)))
	v1.Post("/obstacles", required, withTimeout(ReportObstacleHandler(deps)))
	v1.Get("/routes/search", optional, withTimeout(SearchRoutesHandler(deps)))

	// Pre-v1 endpoints. Static routes are registered before /paths/:id.
	legacy := app.Group("", DeprecationMiddleware(legacyRoutes))
	legacy.Post("/paths/manual", required, withTimeout(LegacyCreatePathHandler(deps)))
	legacy.Post("/paths/obstacles", required, withTimeout(LegacyReportObstacleHandler(deps)))
	legacy.Get("/paths/search", optional, withTimeout(LegacySearchRoutesHandler(deps)))
	legacy.Get("/routes/search", optional, withTimeout(LegacySearchRoutesHandler(deps)))
	legacy.Get("/paths/:id", optional, withTimeout(LegacyGetPathHandler(deps)))

	app.Post("/graphql", optional, GraphQLHandler(deps))

	SetupDocs(app, "api/openapi.yaml")

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
