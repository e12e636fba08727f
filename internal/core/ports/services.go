package ports

import (
	"context"

	"github.com/samirrijal/bikepaths/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishPathCreated(ctx context.Context, p *domain.Path) error
	PublishObstacleReported(ctx context.Context, pathID string, o *domain.Obstacle) error
	PublishRefinementRequested(ctx context.Context, pathID string) error
}

// EventSubscriber consumes domain events from the message bus.
type EventSubscriber interface {
	SubscribeRefinementRequests(ctx context.Context, handler func(ctx context.Context, pathID string) error) error
}

// CacheService abstracts a key-value cache (Valkey).
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// RoadSnapper snaps a coordinate sequence onto the road network, returning a
// denser sequence that includes interpolated points.
type RoadSnapper interface {
	SnapToRoads(ctx context.Context, points []domain.GeoPoint) ([]domain.SnappedPoint, error)
}
