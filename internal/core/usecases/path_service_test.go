package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/bikepaths/internal/core/domain"
	"github.com/samirrijal/bikepaths/internal/core/ports"
	"github.com/samirrijal/bikepaths/internal/core/usecases"
)

func twoSegmentInput() usecases.CreatePathInput {
	return usecases.CreatePathInput{
		Name:        "Navigli loop",
		Publishable: true,
		Segments: []usecases.SegmentInput{
			{StreetName: "Via Roma", Status: domain.StatusOptimal, Start: viaRomaStart, End: viaRomaEnd, Order: 0},
			{StreetName: "Via Milano", Status: domain.StatusMedium, Start: viaRomaEnd, End: viaMilanoEnd, Order: 1},
		},
	}
}

func newPathService(paths *mockPathRepo, segs *mockSegmentRepo, obs *mockObstacleRepo, refiner *usecases.RefinementService, pub *mockPublisher, cache *mockCache) *usecases.PathService {
	if paths == nil {
		paths = &mockPathRepo{}
	}
	if segs == nil {
		segs = &mockSegmentRepo{}
	}
	if obs == nil {
		obs = &mockObstacleRepo{}
	}
	var publisher ports.EventPublisher
	if pub != nil {
		publisher = pub
	}
	var cacheSvc ports.CacheService
	if cache != nil {
		cacheSvc = cache
	}
	return usecases.NewPathService(paths, segs, obs, refiner, publisher, cacheSvc, usecases.PathServiceConfig{})
}

func TestCreatePath_ComputesLengthsAndAttachesNearestObstacle(t *testing.T) {
	var stored *domain.Path
	var storedObs []domain.Obstacle
	repo := &mockPathRepo{
		createFn: func(ctx context.Context, p *domain.Path, obstacles []domain.Obstacle) error {
			stored = p
			storedObs = obstacles
			return nil
		},
	}
	svc := newPathService(repo, nil, nil, nil, nil, nil)

	in := twoSegmentInput()
	in.Obstacles = []usecases.ObstacleInput{
		{Type: domain.ObstaclePothole, Severity: domain.SeverityModerate, Location: nearViaRomaMid},
	}

	p, err := svc.Create(context.Background(), "user-1", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored == nil || stored.ID != p.ID {
		t.Fatal("expected path to be persisted")
	}
	if p.OwnerID != "user-1" || p.DataSource != domain.SourceManual {
		t.Errorf("unexpected owner/source: %s %s", p.OwnerID, p.DataSource)
	}
	if p.Refined {
		t.Error("path must not be marked refined without a snapper")
	}
	if len(p.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(p.Segments))
	}
	for _, s := range p.Segments {
		if s.LengthMeters <= 0 {
			t.Errorf("segment %s: expected positive length, got %v", s.ID, s.LengthMeters)
		}
		if s.PathID != p.ID {
			t.Errorf("segment %s: expected path id %s, got %s", s.ID, p.ID, s.PathID)
		}
	}
	if len(storedObs) != 1 {
		t.Fatalf("expected 1 obstacle, got %d", len(storedObs))
	}
	if storedObs[0].SegmentID != p.Segments[0].ID {
		t.Errorf("expected obstacle on Via Roma segment %s, got %s", p.Segments[0].ID, storedObs[0].SegmentID)
	}
	if !storedObs[0].Confirmed || storedObs[0].ReportedBy != "user-1" {
		t.Errorf("unexpected obstacle metadata: %+v", storedObs[0])
	}
}

func TestCreatePath_ObstacleTooFarRejectsWholeWrite(t *testing.T) {
	repo := &mockPathRepo{
		createFn: func(ctx context.Context, p *domain.Path, obstacles []domain.Obstacle) error {
			t.Fatal("nothing may be persisted")
			return nil
		},
	}
	svc := newPathService(repo, nil, nil, nil, nil, nil)

	in := twoSegmentInput()
	in.Obstacles = []usecases.ObstacleInput{
		{Type: domain.ObstacleDebris, Severity: domain.SeverityMinor, Location: farAwayPoint},
	}

	_, err := svc.Create(context.Background(), "user-1", in)
	if !errors.Is(err, domain.ErrObstacleTooFar) {
		t.Fatalf("expected ErrObstacleTooFar, got %v", err)
	}
}

func TestCreatePath_ExplicitUnknownSegment(t *testing.T) {
	svc := newPathService(nil, &mockSegmentRepo{}, nil, nil, nil, nil)

	in := twoSegmentInput()
	in.Obstacles = []usecases.ObstacleInput{
		{SegmentID: "does-not-exist", Type: domain.ObstacleOther, Severity: domain.SeverityMinor, Location: viaRomaStart},
	}

	_, err := svc.Create(context.Background(), "user-1", in)
	if !errors.Is(err, domain.ErrSegmentNotFound) {
		t.Fatalf("expected ErrSegmentNotFound, got %v", err)
	}
}

func TestCreatePath_ExplicitStoredSegment(t *testing.T) {
	var storedObs []domain.Obstacle
	repo := &mockPathRepo{
		createFn: func(ctx context.Context, p *domain.Path, obstacles []domain.Obstacle) error {
			storedObs = obstacles
			return nil
		},
	}
	segs := &mockSegmentRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Segment, error) {
			return &domain.Segment{ID: id, PathID: "other-path"}, nil
		},
	}
	svc := newPathService(repo, segs, nil, nil, nil, nil)

	in := twoSegmentInput()
	in.Obstacles = []usecases.ObstacleInput{
		{SegmentID: "stored-seg", Type: domain.ObstacleConstruction, Severity: domain.SeveritySevere, Location: farAwayPoint},
	}

	if _, err := svc.Create(context.Background(), "user-1", in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(storedObs) != 1 || storedObs[0].SegmentID != "stored-seg" {
		t.Errorf("expected obstacle on stored-seg, got %+v", storedObs)
	}
}

func TestCreatePath_Validation(t *testing.T) {
	svc := newPathService(nil, nil, nil, nil, nil, nil)

	cases := map[string]func(in *usecases.CreatePathInput){
		"no segments":    func(in *usecases.CreatePathInput) { in.Segments = nil },
		"missing status": func(in *usecases.CreatePathInput) { in.Segments[0].Status = 0 },
		"bad latitude":   func(in *usecases.CreatePathInput) { in.Segments[1].End.Lat = 91 },
		"bad obstacle":   func(in *usecases.CreatePathInput) { in.Obstacles = []usecases.ObstacleInput{{Location: viaRomaStart}} },
		"bad obstacle location": func(in *usecases.CreatePathInput) {
			in.Obstacles = []usecases.ObstacleInput{{Type: domain.ObstacleOther, Severity: domain.SeverityMinor, Location: domain.GeoPoint{Lon: 200}}}
		},
	}
	for name, mutate := range cases {
		in := twoSegmentInput()
		mutate(&in)
		_, err := svc.Create(context.Background(), "user-1", in)
		if !domain.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}

	if _, err := svc.Create(context.Background(), "", twoSegmentInput()); !domain.IsValidation(err) {
		t.Errorf("anonymous create: expected validation error, got %v", err)
	}
}

func TestCreatePath_RefinementApplied(t *testing.T) {
	snapper := &mockSnapper{snapFn: identitySnap}
	pub := &mockPublisher{}
	svc := newPathService(nil, nil, nil, usecases.NewRefinementService(snapper), pub, nil)

	p, err := svc.Create(context.Background(), "user-1", twoSegmentInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Refined {
		t.Error("expected path to be marked refined")
	}
	for _, s := range p.Segments {
		if len(s.Geometry) != 3 {
			t.Errorf("segment %s: expected 3 geometry points, got %d", s.ID, len(s.Geometry))
		}
	}
	if len(pub.created) != 1 {
		t.Errorf("expected 1 path created event, got %d", len(pub.created))
	}
	if len(pub.refineReq) != 0 {
		t.Errorf("expected no refinement request, got %v", pub.refineReq)
	}
}

func TestCreatePath_RefinementFailureFallsBackAndRequestsRetry(t *testing.T) {
	snapper := &mockSnapper{snapFn: func(ctx context.Context, points []domain.GeoPoint) ([]domain.SnappedPoint, error) {
		return nil, context.DeadlineExceeded
	}}
	pub := &mockPublisher{}
	svc := newPathService(nil, nil, nil, usecases.NewRefinementService(snapper), pub, nil)

	in := twoSegmentInput()
	p, err := svc.Create(context.Background(), "user-1", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Refined {
		t.Error("path must not be marked refined on failure")
	}
	for i, s := range p.Segments {
		if s.Start != in.Segments[i].Start || s.End != in.Segments[i].End || s.Geometry != nil {
			t.Errorf("segment %d: expected original endpoints, got %+v", i, s)
		}
	}
	if len(pub.refineReq) != 1 || pub.refineReq[0] != p.ID {
		t.Errorf("expected refinement request for %s, got %v", p.ID, pub.refineReq)
	}
}

func TestGetPath_PrivateHiddenFromOthers(t *testing.T) {
	repo := &mockPathRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Path, error) {
			return &domain.Path{ID: id, OwnerID: "owner", Publishable: false}, nil
		},
	}
	svc := newPathService(repo, nil, nil, nil, nil, nil)

	if _, err := svc.Get(context.Background(), "p1", "someone-else"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "p1", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for anonymous, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "p1", "owner"); err != nil {
		t.Errorf("owner: unexpected error: %v", err)
	}
}

func TestGetPath_ScoresWithObstacles(t *testing.T) {
	repo := &mockPathRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Path, error) {
			return &domain.Path{ID: id, DataSource: domain.SourceManual, Publishable: true, Segments: []domain.Segment{
				{ID: "s2", Order: 1, Status: domain.StatusOptimal, LengthMeters: 500},
				{ID: "s1", Order: 0, Status: domain.StatusMedium, LengthMeters: 1000},
			}}, nil
		},
	}
	obs := &mockObstacleRepo{
		listByPathFn: func(ctx context.Context, pathID string) ([]domain.Obstacle, error) {
			return []domain.Obstacle{{ID: "o1", SegmentID: "s1", Type: domain.ObstaclePothole, Severity: domain.SeverityModerate}}, nil
		},
	}
	cache := newMockCache()
	svc := newPathService(repo, nil, obs, nil, nil, cache)

	d, err := svc.Get(context.Background(), "p1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Score != 1850 {
		t.Errorf("expected score 1850, got %v", d.Score)
	}
	if d.TotalDistanceKm != 1.5 {
		t.Errorf("expected 1.5 km, got %v", d.TotalDistanceKm)
	}
	if d.Segments[0].ID != "s1" || len(d.Segments[0].Obstacles) != 1 {
		t.Errorf("expected ordered segments with obstacles attached, got %+v", d.Segments)
	}
	if _, ok := cache.data["paths:id:p1"]; !ok {
		t.Error("expected detail to be cached")
	}
}

func TestGetPath_UnencodableDetailIsServedUncached(t *testing.T) {
	repo := &mockPathRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Path, error) {
			return &domain.Path{ID: id, Publishable: true, Segments: []domain.Segment{
				{ID: "s1", Order: 0, Status: domain.StatusOptimal, LengthMeters: 100},
			}}, nil
		},
	}
	cache := newMockCache()
	svc := newPathService(repo, nil, nil, nil, nil, cache)

	d, err := svc.Get(context.Background(), "p1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Score != 100 {
		t.Errorf("expected score 100, got %v", d.Score)
	}
	if _, ok := cache.data["paths:id:p1"]; ok {
		t.Error("detail without a data source must not be cached")
	}
}

func TestCreatePath_InvalidatesRouteSearches(t *testing.T) {
	cache := newMockCache()
	svc := newPathService(nil, nil, nil, nil, nil, cache)

	if _, err := svc.Create(context.Background(), "owner", twoSegmentInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := string(cache.data["routes:search:gen"])
	if first == "" {
		t.Fatal("expected search generation to be set")
	}

	if _, err := svc.Create(context.Background(), "owner", twoSegmentInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second := string(cache.data["routes:search:gen"]); second == first {
		t.Errorf("expected a new search generation, still %q", second)
	}
}

func TestApplyRefinement_ReassignsAndDetaches(t *testing.T) {
	var gotReassign map[string]string
	repo := &mockPathRepo{
		replaceSegmentsFn: func(ctx context.Context, pathID string, segs []domain.Segment, reassign map[string]string) error {
			gotReassign = reassign
			return nil
		},
	}
	obs := &mockObstacleRepo{
		listByPathFn: func(ctx context.Context, pathID string) ([]domain.Obstacle, error) {
			return []domain.Obstacle{
				{ID: "near", SegmentID: "old", Location: nearViaRomaMid},
				{ID: "far", SegmentID: "old", Location: farAwayPoint},
			}, nil
		},
	}
	cache := newMockCache()
	svc := newPathService(repo, nil, obs, nil, nil, cache)

	refined := []domain.Segment{
		domain.NewSegment("r1", "p1", "Via Roma", domain.StatusOptimal, 0, viaRomaStart, viaRomaEnd, nil),
	}
	if err := svc.ApplyRefinement(context.Background(), "p1", refined); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotReassign["near"] != "r1" {
		t.Errorf("expected near obstacle on r1, got %q", gotReassign["near"])
	}
	if v, ok := gotReassign["far"]; !ok || v != "" {
		t.Errorf("expected far obstacle detached, got %q (present=%v)", v, ok)
	}
	if len(cache.deleted) != 1 || cache.deleted[0] != "paths:id:p1" {
		t.Errorf("expected detail cache invalidation, got %v", cache.deleted)
	}
}
