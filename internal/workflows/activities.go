package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/samirrijal/bikepaths/internal/core/domain"
	"github.com/samirrijal/bikepaths/internal/core/usecases"
	"github.com/samirrijal/bikepaths/internal/pkg/metrics"
)

// RefinementActivities holds the activity implementations for the refinement workflow.
type RefinementActivities struct {
	Paths   *usecases.PathService
	Refiner *usecases.RefinementService
}

// SnapResult carries refined segments back to the workflow. Segments is
// empty unless Outcome is usecases.RefinementApplied.
type SnapResult struct {
	Outcome  usecases.RefinementOutcome
	Segments []domain.Segment
}

// LoadSegments returns the stored segments of a path in order.
func (a *RefinementActivities) LoadSegments(ctx context.Context, pathID string) ([]domain.Segment, error) {
	segs, err := a.Paths.LoadSegments(ctx, pathID)
	if err != nil {
		return nil, fmt.Errorf("load segments of %s: %w", pathID, err)
	}
	return segs, nil
}

// SnapSegments snaps segments to roads. A failed snapper call is returned as
// an error so the activity retry policy applies; every other non-refined
// outcome is a normal result.
func (a *RefinementActivities) SnapSegments(ctx context.Context, segments []domain.Segment) (SnapResult, error) {
	refined, outcome := a.Refiner.Refine(ctx, segments)
	if outcome.Retryable() {
		activity.GetLogger(ctx).Warn("snap attempt failed", "attempt", activity.GetInfo(ctx).Attempt)
		return SnapResult{Outcome: outcome}, fmt.Errorf("road snapping %s", outcome)
	}
	return SnapResult{Outcome: outcome, Segments: refined}, nil
}

// ReplaceSegments stores refined segments and re-attaches the path's obstacles.
func (a *RefinementActivities) ReplaceSegments(ctx context.Context, pathID string, segments []domain.Segment) error {
	if err := a.Paths.ApplyRefinement(ctx, pathID, segments); err != nil {
		return fmt.Errorf("apply refinement to %s: %w", pathID, err)
	}
	metrics.StoredRefinements.Inc()
	return nil
}
