package ports

import (
	"context"

	"github.com/samirrijal/bikepaths/internal/core/domain"
)

// PathRepository persists paths together with their segments.
type PathRepository interface {
	// Create inserts the path, its segments and the given obstacles atomically.
	Create(ctx context.Context, p *domain.Path, obstacles []domain.Obstacle) error
	// GetByID returns the path with its segments, or domain.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Path, error)
	// ListVisible returns every path readable by viewerID with segments loaded,
	// ordered by creation time then ID. An empty viewerID sees only publishable paths.
	ListVisible(ctx context.Context, viewerID string) ([]domain.Path, error)
	// ListByOwner returns one page of the owner's paths (segments loaded) and the total count.
	ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]domain.Path, int, error)
	// ReplaceSegments swaps a path's segments, re-points obstacles according to
	// reassign (obstacle ID to new segment ID, "" detaches) and marks the path refined.
	ReplaceSegments(ctx context.Context, pathID string, segments []domain.Segment, reassign map[string]string) error
}

// SegmentRepository reads segments independently of their paths.
type SegmentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Segment, error)
	// FindInBounds returns segments with any endpoint inside the box.
	FindInBounds(ctx context.Context, b domain.Bounds) ([]domain.Segment, error)
}

// ObstacleRepository persists obstacle reports.
type ObstacleRepository interface {
	Create(ctx context.Context, o *domain.Obstacle) error
	// ListBySegments returns obstacles attached to any of the segments,
	// ordered by report time then ID.
	ListBySegments(ctx context.Context, segmentIDs []string) ([]domain.Obstacle, error)
	// ListByPath returns every obstacle attached to a segment of the path.
	ListByPath(ctx context.Context, pathID string) ([]domain.Obstacle, error)
}
