package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/bikepaths/internal/core/domain"
	"github.com/samirrijal/bikepaths/internal/core/usecases"
)

// RefinePathInput is the input for the refinement workflow.
type RefinePathInput struct {
	PathID string
}

// RefinePathResult reports what the workflow did to the stored path.
type RefinePathResult struct {
	PathID   string
	Outcome  usecases.RefinementOutcome
	Segments int
}

// WorkflowID returns the workflow ID used for a path, so at most one
// refinement per path runs at a time.
func WorkflowID(pathID string) string {
	return "refine-" + pathID
}

// RefinePathWorkflow loads a stored path, snaps its segments to roads and,
// when snapping produced usable geometry, swaps the refined segments in.
// Any other outcome leaves the path untouched.
func RefinePathWorkflow(ctx workflow.Context, input RefinePathInput) (RefinePathResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting path refinement", "pathID", input.PathID)

	result := RefinePathResult{PathID: input.PathID}

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 5 * time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var segments []domain.Segment
	if err := workflow.ExecuteActivity(ctx, "LoadSegments", input.PathID).Get(ctx, &segments); err != nil {
		return result, err
	}

	var snapped SnapResult
	if err := workflow.ExecuteActivity(ctx, "SnapSegments", segments).Get(ctx, &snapped); err != nil {
		return result, err
	}
	result.Outcome = snapped.Outcome

	if snapped.Outcome != usecases.RefinementApplied {
		logger.Info("Path left unrefined", "pathID", input.PathID, "outcome", string(snapped.Outcome))
		return result, nil
	}

	if err := workflow.ExecuteActivity(ctx, "ReplaceSegments", input.PathID, snapped.Segments).Get(ctx, nil); err != nil {
		return result, err
	}
	result.Segments = len(snapped.Segments)

	logger.Info("Path refined", "pathID", input.PathID, "segments", result.Segments)
	return result, nil
}
