package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/bikepaths/internal/core/domain"
	"github.com/samirrijal/bikepaths/internal/core/matching"
	"github.com/samirrijal/bikepaths/internal/core/ports"
	"github.com/samirrijal/bikepaths/internal/pkg/geospatial"
	"github.com/samirrijal/bikepaths/internal/pkg/metrics"
	"github.com/samirrijal/bikepaths/internal/pkg/telemetry"
)

// ObstacleService handles standalone obstacle reports.
type ObstacleService struct {
	obstacles   ports.ObstacleRepository
	segments    ports.SegmentRepository
	publisher   ports.EventPublisher
	cache       ports.CacheService
	maxDistance float64

	newID func() string
	now   func() time.Time
}

// NewObstacleService creates a new ObstacleService. publisher and cache may be nil.
func NewObstacleService(
	obstacles ports.ObstacleRepository,
	segments ports.SegmentRepository,
	publisher ports.EventPublisher,
	cache ports.CacheService,
	maxDistanceMeters float64,
) *ObstacleService {
	if maxDistanceMeters <= 0 {
		maxDistanceMeters = matching.DefaultMaxObstacleDistance
	}
	return &ObstacleService{
		obstacles:   obstacles,
		segments:    segments,
		publisher:   publisher,
		cache:       cache,
		maxDistance: maxDistanceMeters,
		newID:       uuid.NewString,
		now:         time.Now,
	}
}

// Report stores an obstacle. With an explicit segment ID the segment must
// exist; otherwise the nearest stored segment within range is used.
func (s *ObstacleService) Report(ctx context.Context, reporterID string, in ObstacleInput) (*domain.Obstacle, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanObstacleAdd)
	defer span.End()

	if err := validateObstacle("obstacle", in); err != nil {
		return nil, err
	}

	seg, err := s.locateSegment(ctx, in)
	if err != nil {
		return nil, err
	}

	o := &domain.Obstacle{
		ID:          s.newID(),
		SegmentID:   seg.ID,
		Type:        in.Type,
		Severity:    in.Severity,
		Location:    in.Location,
		Description: in.Description,
		ReportedBy:  reporterID,
		ReportedAt:  s.now().UTC(),
		Confirmed:   true,
	}
	if err := s.obstacles.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create obstacle: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, pathCacheKey(seg.PathID))
		bumpSearchGeneration(ctx, s.cache, s.newID())
	}
	if s.publisher != nil {
		if err := s.publisher.PublishObstacleReported(ctx, seg.PathID, o); err != nil {
			slog.Warn("publish obstacle reported", "obstacle_id", o.ID, "error", err)
		}
	}
	return o, nil
}

func (s *ObstacleService) locateSegment(ctx context.Context, in ObstacleInput) (*domain.Segment, error) {
	if in.SegmentID != "" {
		seg, err := s.segments.GetByID(ctx, in.SegmentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				metrics.ObstacleAssociations.WithLabelValues("rejected").Inc()
				return nil, fmt.Errorf("segment %s: %w", in.SegmentID, domain.ErrSegmentNotFound)
			}
			return nil, fmt.Errorf("lookup segment: %w", err)
		}
		metrics.ObstacleAssociations.WithLabelValues("explicit").Inc()
		return seg, nil
	}

	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(in.Location.Lat, in.Location.Lon, s.maxDistance)
	candidates, err := s.segments.FindInBounds(ctx, domain.Bounds{
		MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon,
	})
	if err != nil {
		return nil, fmt.Errorf("find candidate segments: %w", err)
	}

	id, ok := matching.FindNearestSegment(in.Location, candidates, s.maxDistance)
	if !ok {
		metrics.ObstacleAssociations.WithLabelValues("rejected").Inc()
		return nil, domain.ErrObstacleTooFar
	}
	metrics.ObstacleAssociations.WithLabelValues("nearest").Inc()
	for i := range candidates {
		if candidates[i].ID == id {
			return &candidates[i], nil
		}
	}
	return nil, domain.ErrObstacleTooFar
}
