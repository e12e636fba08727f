package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/bikepaths/internal/core/domain"
)

// --- Mock PathRepository ---

type mockPathRepo struct {
	createFn          func(ctx context.Context, p *domain.Path, obstacles []domain.Obstacle) error
	getByIDFn         func(ctx context.Context, id string) (*domain.Path, error)
	listVisibleFn     func(ctx context.Context, viewerID string) ([]domain.Path, error)
	listByOwnerFn     func(ctx context.Context, ownerID string, offset, limit int) ([]domain.Path, int, error)
	replaceSegmentsFn func(ctx context.Context, pathID string, segs []domain.Segment, reassign map[string]string) error
}

func (m *mockPathRepo) Create(ctx context.Context, p *domain.Path, obstacles []domain.Obstacle) error {
	if m.createFn != nil {
		return m.createFn(ctx, p, obstacles)
	}
	return nil
}

func (m *mockPathRepo) GetByID(ctx context.Context, id string) (*domain.Path, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPathRepo) ListVisible(ctx context.Context, viewerID string) ([]domain.Path, error) {
	if m.listVisibleFn != nil {
		return m.listVisibleFn(ctx, viewerID)
	}
	return nil, nil
}

func (m *mockPathRepo) ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]domain.Path, int, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerID, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockPathRepo) ReplaceSegments(ctx context.Context, pathID string, segs []domain.Segment, reassign map[string]string) error {
	if m.replaceSegmentsFn != nil {
		return m.replaceSegmentsFn(ctx, pathID, segs, reassign)
	}
	return nil
}

// --- Mock SegmentRepository ---

type mockSegmentRepo struct {
	getByIDFn      func(ctx context.Context, id string) (*domain.Segment, error)
	findInBoundsFn func(ctx context.Context, b domain.Bounds) ([]domain.Segment, error)
}

func (m *mockSegmentRepo) GetByID(ctx context.Context, id string) (*domain.Segment, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockSegmentRepo) FindInBounds(ctx context.Context, b domain.Bounds) ([]domain.Segment, error) {
	if m.findInBoundsFn != nil {
		return m.findInBoundsFn(ctx, b)
	}
	return nil, nil
}

// --- Mock ObstacleRepository ---

type mockObstacleRepo struct {
	createFn         func(ctx context.Context, o *domain.Obstacle) error
	listBySegmentsFn func(ctx context.Context, ids []string) ([]domain.Obstacle, error)
	listByPathFn     func(ctx context.Context, pathID string) ([]domain.Obstacle, error)
}

func (m *mockObstacleRepo) Create(ctx context.Context, o *domain.Obstacle) error {
	if m.createFn != nil {
		return m.createFn(ctx, o)
	}
	return nil
}

func (m *mockObstacleRepo) ListBySegments(ctx context.Context, ids []string) ([]domain.Obstacle, error) {
	if m.listBySegmentsFn != nil {
		return m.listBySegmentsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockObstacleRepo) ListByPath(ctx context.Context, pathID string) ([]domain.Obstacle, error) {
	if m.listByPathFn != nil {
		return m.listByPathFn(ctx, pathID)
	}
	return nil, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	created   []string
	reported  []string
	refineReq []string
}

func (m *mockPublisher) PublishPathCreated(ctx context.Context, p *domain.Path) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, p.ID)
	return nil
}

func (m *mockPublisher) PublishObstacleReported(ctx context.Context, pathID string, o *domain.Obstacle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reported = append(m.reported, pathID+"/"+o.ID)
	return nil
}

func (m *mockPublisher) PublishRefinementRequested(ctx context.Context, pathID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refineReq = append(m.refineReq, pathID)
	return nil
}

// --- Mock CacheService (in-memory) ---

type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("valkey nil message")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// --- Mock RoadSnapper ---

type mockSnapper struct {
	calls  int
	snapFn func(ctx context.Context, points []domain.GeoPoint) ([]domain.SnappedPoint, error)
}

func (m *mockSnapper) SnapToRoads(ctx context.Context, points []domain.GeoPoint) ([]domain.SnappedPoint, error) {
	m.calls++
	if m.snapFn != nil {
		return m.snapFn(ctx, points)
	}
	return nil, errors.New("no snap configured")
}

// identitySnap echoes every input point and inserts one interpolated midpoint
// between consecutive points.
func identitySnap(ctx context.Context, points []domain.GeoPoint) ([]domain.SnappedPoint, error) {
	var out []domain.SnappedPoint
	for i, p := range points {
		if i > 0 {
			prev := points[i-1]
			out = append(out, domain.SnappedPoint{
				Location:      domain.GeoPoint{Lat: (prev.Lat + p.Lat) / 2, Lon: (prev.Lon + p.Lon) / 2},
				OriginalIndex: -1,
			})
		}
		out = append(out, domain.SnappedPoint{Location: p, OriginalIndex: i})
	}
	return out, nil
}

// Milano test coordinates.
var (
	viaRomaStart   = domain.GeoPoint{Lat: 45.4642, Lon: 9.1900}
	viaRomaEnd     = domain.GeoPoint{Lat: 45.4671, Lon: 9.1925}
	viaMilanoEnd   = domain.GeoPoint{Lat: 45.4700, Lon: 9.1950}
	farAwayPoint   = domain.GeoPoint{Lat: 45.5000, Lon: 9.3000}
	nearViaRomaMid = domain.GeoPoint{Lat: 45.46566, Lon: 9.19126}
)
