package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/bikepaths/internal/adapters/postgres"
	"github.com/samirrijal/bikepaths/internal/adapters/valkey"
	"github.com/samirrijal/bikepaths/internal/core/usecases"
	"github.com/samirrijal/bikepaths/internal/pkg/auth"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Paths     *usecases.PathService
	Obstacles *usecases.ObstacleService
	Routes    *usecases.RouteSearchService
	Auth      *auth.Verifier
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
}
