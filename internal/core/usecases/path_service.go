package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/bikepaths/internal/core/domain"
	"github.com/samirrijal/bikepaths/internal/core/matching"
	"github.com/samirrijal/bikepaths/internal/core/ports"
	"github.com/samirrijal/bikepaths/internal/pkg/metrics"
	"github.com/samirrijal/bikepaths/internal/pkg/telemetry"
)

// SegmentInput describes one segment of a path being created.
type SegmentInput struct {
	StreetName string               `json:"street_name"`
	Status     domain.SegmentStatus `json:"status"`
	Start      domain.GeoPoint      `json:"start"`
	End        domain.GeoPoint      `json:"end"`
	Order      int                  `json:"order"`
}

// ObstacleInput describes an obstacle report. An empty SegmentID asks for
// association with the nearest segment.
type ObstacleInput struct {
	SegmentID   string                  `json:"segment_id"`
	Type        domain.ObstacleType     `json:"type"`
	Severity    domain.ObstacleSeverity `json:"severity"`
	Location    domain.GeoPoint         `json:"location"`
	Description string                  `json:"description"`
}

// CreatePathInput is a manually recorded path.
type CreatePathInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Publishable bool            `json:"publishable"`
	Segments    []SegmentInput  `json:"segments"`
	Obstacles   []ObstacleInput `json:"obstacles"`
}

// PathServiceConfig tunes PathService.
type PathServiceConfig struct {
	ObstacleMaxDistanceMeters float64
	DetailCacheTTLSeconds     int
}

// PathService handles path creation, retrieval and refinement of stored paths.
type PathService struct {
	paths     ports.PathRepository
	segments  ports.SegmentRepository
	obstacles ports.ObstacleRepository
	refiner   *RefinementService
	publisher ports.EventPublisher
	cache     ports.CacheService
	cfg       PathServiceConfig

	newID func() string
	now   func() time.Time
}

// NewPathService creates a new PathService. refiner, publisher and cache may be nil.
func NewPathService(
	paths ports.PathRepository,
	segments ports.SegmentRepository,
	obstacles ports.ObstacleRepository,
	refiner *RefinementService,
	publisher ports.EventPublisher,
	cache ports.CacheService,
	cfg PathServiceConfig,
) *PathService {
	if cfg.ObstacleMaxDistanceMeters <= 0 {
		cfg.ObstacleMaxDistanceMeters = matching.DefaultMaxObstacleDistance
	}
	if cfg.DetailCacheTTLSeconds <= 0 {
		cfg.DetailCacheTTLSeconds = 300
	}
	return &PathService{
		paths:     paths,
		segments:  segments,
		obstacles: obstacles,
		refiner:   refiner,
		publisher: publisher,
		cache:     cache,
		cfg:       cfg,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Create validates, optionally refines and stores a manually recorded path.
// Obstacles without a segment ID are attached to the nearest new segment; the
// whole write is rejected when any obstacle cannot be attached.
func (s *PathService) Create(ctx context.Context, ownerID string, in CreatePathInput) (*domain.Path, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanPathCreate)
	defer span.End()

	if ownerID == "" {
		return nil, &domain.ValidationError{Field: "owner", Message: "owner is required"}
	}
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	pathID := s.newID()
	segs := make([]domain.Segment, len(in.Segments))
	for i, si := range in.Segments {
		segs[i] = domain.NewSegment(s.newID(), pathID, si.StreetName, si.Status, si.Order, si.Start, si.End, nil)
	}

	outcome := RefinementDisabled
	if s.refiner != nil {
		var refined []domain.Segment
		refined, outcome = s.refiner.Refine(ctx, segs)
		if outcome == RefinementApplied {
			segs = refined
		}
	}
	span.SetAttributes(
		attribute.String("refinement", string(outcome)),
		attribute.Int("segments", len(segs)),
	)

	obstacles := make([]domain.Obstacle, 0, len(in.Obstacles))
	for i, oi := range in.Obstacles {
		segID, err := s.resolveSegment(ctx, oi, segs)
		if err != nil {
			return nil, fmt.Errorf("obstacles[%d]: %w", i, err)
		}
		obstacles = append(obstacles, domain.Obstacle{
			ID:          s.newID(),
			SegmentID:   segID,
			Type:        oi.Type,
			Severity:    oi.Severity,
			Location:    oi.Location,
			Description: oi.Description,
			ReportedBy:  ownerID,
			ReportedAt:  s.now().UTC(),
			Confirmed:   true,
		})
	}

	p := &domain.Path{
		ID:          pathID,
		OwnerID:     ownerID,
		Name:        in.Name,
		Description: in.Description,
		DataSource:  domain.SourceManual,
		Publishable: in.Publishable,
		Refined:     outcome == RefinementApplied,
		CreatedAt:   s.now().UTC(),
		Segments:    segs,
	}
	if err := s.paths.Create(ctx, p, obstacles); err != nil {
		return nil, fmt.Errorf("create path: %w", err)
	}
	if s.cache != nil {
		bumpSearchGeneration(ctx, s.cache, s.newID())
	}

	if s.publisher != nil {
		if err := s.publisher.PublishPathCreated(ctx, p); err != nil {
			slog.Warn("publish path created", "path_id", p.ID, "error", err)
		}
		if outcome.Retryable() {
			if err := s.publisher.PublishRefinementRequested(ctx, p.ID); err != nil {
				slog.Warn("publish refinement request", "path_id", p.ID, "error", err)
			}
		}
	}

	return p, nil
}

// resolveSegment returns the segment an obstacle belongs to. An explicit ID
// must name one of the new segments or an already stored one.
func (s *PathService) resolveSegment(ctx context.Context, oi ObstacleInput, segs []domain.Segment) (string, error) {
	if oi.SegmentID != "" {
		for _, seg := range segs {
			if seg.ID == oi.SegmentID {
				metrics.ObstacleAssociations.WithLabelValues("explicit").Inc()
				return seg.ID, nil
			}
		}
		if _, err := s.segments.GetByID(ctx, oi.SegmentID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				metrics.ObstacleAssociations.WithLabelValues("rejected").Inc()
				return "", fmt.Errorf("segment %s: %w", oi.SegmentID, domain.ErrSegmentNotFound)
			}
			return "", fmt.Errorf("lookup segment: %w", err)
		}
		metrics.ObstacleAssociations.WithLabelValues("explicit").Inc()
		return oi.SegmentID, nil
	}

	id, ok := matching.FindNearestSegment(oi.Location, segs, s.cfg.ObstacleMaxDistanceMeters)
	if !ok {
		metrics.ObstacleAssociations.WithLabelValues("rejected").Inc()
		return "", domain.ErrObstacleTooFar
	}
	metrics.ObstacleAssociations.WithLabelValues("nearest").Inc()
	return id, nil
}

// Get returns a path visible to viewerID with obstacles and derived score.
// Paths the viewer may not read are reported as domain.ErrNotFound.
func (s *PathService) Get(ctx context.Context, id, viewerID string) (*domain.PathDetail, error) {
	cacheKey := pathCacheKey(id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var d domain.PathDetail
			if err := json.Unmarshal(data, &d); err == nil {
				metrics.CacheHits.WithLabelValues("path_detail").Inc()
				if !d.VisibleTo(viewerID) {
					return nil, domain.ErrNotFound
				}
				return &d, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("path_detail").Inc()
	}

	p, err := s.paths.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.VisibleTo(viewerID) {
		return nil, domain.ErrNotFound
	}

	obs, err := s.obstacles.ListByPath(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list obstacles: %w", err)
	}

	segs := p.OrderedSegments()
	idx := matching.GroupObstacles(obs)
	d := &domain.PathDetail{
		Path:            *p,
		Segments:        matching.AttachObstacles(segs, idx),
		Score:           matching.Score(segs, idx),
		TotalDistanceKm: matching.TotalDistanceKm(segs),
	}
	d.Path.Segments = nil

	if s.cache != nil {
		data, err := json.Marshal(d)
		if err != nil {
			slog.Warn("encode path detail for cache", "path_id", id, "error", err)
		} else {
			_ = s.cache.Set(ctx, cacheKey, data, s.cfg.DetailCacheTTLSeconds)
		}
	}
	return d, nil
}

// ListByOwner returns one page of the owner's paths.
func (s *PathService) ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]domain.Path, int, error) {
	if ownerID == "" {
		return nil, 0, &domain.ValidationError{Field: "owner", Message: "owner is required"}
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.paths.ListByOwner(ctx, ownerID, offset, limit)
}

// LoadSegments returns the stored segments of a path in order.
func (s *PathService) LoadSegments(ctx context.Context, pathID string) ([]domain.Segment, error) {
	p, err := s.paths.GetByID(ctx, pathID)
	if err != nil {
		return nil, err
	}
	return p.OrderedSegments(), nil
}

// ApplyRefinement replaces a stored path's segments with refined ones.
// Existing obstacles are re-attached to their nearest refined segment and
// detached when none lies within range.
func (s *PathService) ApplyRefinement(ctx context.Context, pathID string, refined []domain.Segment) error {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRefineStored)
	defer span.End()
	span.SetAttributes(attribute.String("path_id", pathID))

	if len(refined) == 0 {
		return &domain.ValidationError{Field: "segments", Message: "refined segments are empty"}
	}

	obs, err := s.obstacles.ListByPath(ctx, pathID)
	if err != nil {
		return fmt.Errorf("list obstacles: %w", err)
	}

	reassign := make(map[string]string, len(obs))
	for _, o := range obs {
		id, ok := matching.FindNearestSegment(o.Location, refined, s.cfg.ObstacleMaxDistanceMeters)
		if !ok {
			slog.Info("obstacle detached after refinement", "path_id", pathID, "obstacle_id", o.ID)
			metrics.ObstacleAssociations.WithLabelValues("rejected").Inc()
		} else {
			metrics.ObstacleAssociations.WithLabelValues("nearest").Inc()
		}
		reassign[o.ID] = id
	}

	if err := s.paths.ReplaceSegments(ctx, pathID, refined, reassign); err != nil {
		return fmt.Errorf("replace segments: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, pathCacheKey(pathID))
		bumpSearchGeneration(ctx, s.cache, s.newID())
	}
	return nil
}

func pathCacheKey(id string) string {
	return "paths:id:" + id
}

func validateCreate(in CreatePathInput) error {
	if len(in.Segments) == 0 {
		return &domain.ValidationError{Field: "segments", Message: "at least one segment is required"}
	}
	if len(in.Name) > 200 {
		return &domain.ValidationError{Field: "name", Message: "name too long (max 200 characters)"}
	}
	for i, si := range in.Segments {
		field := fmt.Sprintf("segments[%d]", i)
		if !si.Status.Valid() {
			return &domain.ValidationError{Field: field + ".status", Message: "status is required"}
		}
		if err := si.Start.Validate(field + ".start"); err != nil {
			return err
		}
		if err := si.End.Validate(field + ".end"); err != nil {
			return err
		}
	}
	for i, oi := range in.Obstacles {
		if err := validateObstacle(fmt.Sprintf("obstacles[%d]", i), oi); err != nil {
			return err
		}
	}
	return nil
}

func validateObstacle(field string, oi ObstacleInput) error {
	if !oi.Type.Valid() {
		return &domain.ValidationError{Field: field + ".type", Message: "type is required"}
	}
	if !oi.Severity.Valid() {
		return &domain.ValidationError{Field: field + ".severity", Message: "severity is required"}
	}
	return oi.Location.Validate(field + ".location")
}
