package usecases

import (
	"context"
	"log/slog"
	"time"

	"github.com/samirrijal/bikepaths/internal/core/domain"
	"github.com/samirrijal/bikepaths/internal/core/ports"
	"github.com/samirrijal/bikepaths/internal/pkg/metrics"
	"github.com/samirrijal/bikepaths/internal/pkg/telemetry"
)

// MaxSnapPoints is the largest coordinate batch the road snapper accepts.
const MaxSnapPoints = 100

// RefinementOutcome says what happened to a refinement attempt.
type RefinementOutcome string

const (
	RefinementApplied  RefinementOutcome = "refined"
	RefinementDisabled RefinementOutcome = "disabled"
	RefinementSkipped  RefinementOutcome = "skipped"
	RefinementFailed   RefinementOutcome = "failed"
	RefinementUnusable RefinementOutcome = "unusable"
)

// Retryable reports whether a later attempt could succeed where this one did not.
func (o RefinementOutcome) Retryable() bool {
	return o == RefinementFailed
}

// RefinementService densifies segments with road-snapped geometry.
type RefinementService struct {
	snapper ports.RoadSnapper
}

// NewRefinementService creates a RefinementService. A nil snapper disables refinement.
func NewRefinementService(snapper ports.RoadSnapper) *RefinementService {
	return &RefinementService{snapper: snapper}
}

// Refine snaps all segment endpoints in one call and rebuilds each segment
// from the snapped points lying between its own two endpoints.
//
// refined is nil unless outcome is RefinementApplied; on every other outcome
// the caller keeps its original segments unchanged.
func (s *RefinementService) Refine(ctx context.Context, segments []domain.Segment) (refined []domain.Segment, outcome RefinementOutcome) {
	defer func() { metrics.RefinementOutcomes.WithLabelValues(string(outcome)).Inc() }()

	if s == nil || s.snapper == nil {
		return nil, RefinementDisabled
	}

	ordered := domain.SortSegments(segments)
	points := make([]domain.GeoPoint, 0, 2*len(ordered))
	for _, seg := range ordered {
		points = append(points, seg.Start, seg.End)
	}
	if len(points) < 2 || len(points) > MaxSnapPoints {
		slog.Debug("road refinement skipped", "points", len(points))
		return nil, RefinementSkipped
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRoadRefine)
	defer span.End()

	start := time.Now()
	snapped, err := s.snapper.SnapToRoads(ctx, points)
	metrics.RefinementDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Warn("road refinement failed, keeping original segments", "error", err)
		return nil, RefinementFailed
	}

	refined, ok := splitSnapped(ordered, snapped, len(points))
	if !ok {
		slog.Warn("road refinement response unusable, keeping original segments",
			"snapped_points", len(snapped))
		return nil, RefinementUnusable
	}
	return refined, RefinementApplied
}

// splitSnapped cuts the snapped polyline at the positions of the original
// points. Segment i spans original points 2i and 2i+1.
func splitSnapped(ordered []domain.Segment, snapped []domain.SnappedPoint, nPoints int) ([]domain.Segment, bool) {
	pos := make([]int, nPoints)
	for i := range pos {
		pos[i] = -1
	}
	for i, sp := range snapped {
		idx := sp.OriginalIndex
		if idx < 0 || idx >= nPoints {
			continue
		}
		if pos[idx] == -1 {
			pos[idx] = i
		}
	}
	for i, p := range pos {
		if p == -1 || (i > 0 && p <= pos[i-1]) {
			return nil, false
		}
	}

	out := make([]domain.Segment, len(ordered))
	for i, seg := range ordered {
		from, to := pos[2*i], pos[2*i+1]
		geom := make([]domain.GeoPoint, 0, to-from+1)
		for _, sp := range snapped[from : to+1] {
			geom = append(geom, sp.Location)
		}
		out[i] = domain.NewSegment(seg.ID, seg.PathID, seg.StreetName, seg.Status, seg.Order, seg.Start, seg.End, geom)
	}
	return out, true
}
