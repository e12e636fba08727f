package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/bikepaths/internal/core/domain"
	"github.com/samirrijal/bikepaths/internal/core/matching"
	"github.com/samirrijal/bikepaths/internal/core/ports"
	"github.com/samirrijal/bikepaths/internal/pkg/metrics"
	"github.com/samirrijal/bikepaths/internal/pkg/telemetry"
)

// RouteSearchConfig tunes RouteSearchService.
type RouteSearchConfig struct {
	ToleranceMeters float64
	CacheTTLSeconds int
}

// RouteSearchService answers origin/destination searches over stored paths.
type RouteSearchService struct {
	paths     ports.PathRepository
	obstacles ports.ObstacleRepository
	cache     ports.CacheService
	cfg       RouteSearchConfig
}

// NewRouteSearchService creates a new RouteSearchService. cache may be nil.
func NewRouteSearchService(paths ports.PathRepository, obstacles ports.ObstacleRepository, cache ports.CacheService, cfg RouteSearchConfig) *RouteSearchService {
	if cfg.ToleranceMeters <= 0 {
		cfg.ToleranceMeters = 100
	}
	if cfg.CacheTTLSeconds <= 0 {
		cfg.CacheTTLSeconds = 60
	}
	return &RouteSearchService{paths: paths, obstacles: obstacles, cache: cache, cfg: cfg}
}

// Search returns up to three ranked candidates, best first, or
// domain.ErrNoRouteFound. viewerID widens the search to the viewer's own
// private paths; empty means anonymous.
func (s *RouteSearchService) Search(ctx context.Context, viewerID string, origin, destination domain.GeoPoint) ([]domain.RouteCandidate, error) {
	if err := origin.Validate("origin"); err != nil {
		return nil, err
	}
	if err := destination.Validate("destination"); err != nil {
		return nil, err
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRouteSearch)
	defer span.End()

	var cacheKey string
	if s.cache != nil {
		cacheKey = searchCacheKey(searchGeneration(ctx, s.cache), viewerID, origin, destination)
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var routes []domain.RouteCandidate
			if err := json.Unmarshal(data, &routes); err == nil {
				metrics.CacheHits.WithLabelValues("route_search").Inc()
				metrics.RouteSearches.WithLabelValues("found").Inc()
				return routes, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("route_search").Inc()
	}

	paths, err := s.paths.ListVisible(ctx, viewerID)
	if err != nil {
		metrics.RouteSearches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("list paths: %w", err)
	}
	span.SetAttributes(attribute.Int("paths.visible", len(paths)))

	routes, err := matching.Assemble(origin, destination, s.cfg.ToleranceMeters, paths, func(p domain.Path) ([]domain.Obstacle, error) {
		ids := make([]string, len(p.Segments))
		for i, seg := range p.Segments {
			ids[i] = seg.ID
		}
		obs, err := s.obstacles.ListBySegments(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("list obstacles for path %s: %w", p.ID, err)
		}
		return obs, nil
	})
	switch {
	case errors.Is(err, domain.ErrNoRouteFound):
		metrics.RouteSearches.WithLabelValues("no_route").Inc()
		return nil, err
	case err != nil:
		metrics.RouteSearches.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.RouteSearches.WithLabelValues("found").Inc()
	metrics.RouteCandidates.Observe(float64(len(routes)))
	span.SetAttributes(attribute.Int("routes.returned", len(routes)))

	if s.cache != nil {
		data, err := json.Marshal(routes)
		if err != nil {
			slog.Warn("encode route search for cache", "error", err)
		} else {
			_ = s.cache.Set(ctx, cacheKey, data, s.cfg.CacheTTLSeconds)
		}
	}
	return routes, nil
}
