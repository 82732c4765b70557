package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// DefaultBackfillLimit caps a run when the input names no limit.
const DefaultBackfillLimit = 100

// BackfillInput is the input for the leg backfill workflow.
type BackfillInput struct {
	Limit int
}

// BackfillResult summarises a backfill run.
type BackfillResult struct {
	Converted int
	Failed    int
	Legs      int
}

// LegBackfillWorkflow converts trips that were never converted. Each trip
// is one activity; a failed trip is counted and the run moves on.
// Activities are not retried.
func LegBackfillWorkflow(ctx workflow.Context, input BackfillInput) (BackfillResult, error) {
	logger := workflow.GetLogger(ctx)

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultBackfillLimit
	}
	logger.Info("Starting leg backfill", "limit", limit)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	var result BackfillResult

	var tripIDs []string
	if err := workflow.ExecuteActivity(ctx, "ListPendingTrips", limit).Get(ctx, &tripIDs); err != nil {
		return result, err
	}

	for _, id := range tripIDs {
		var legs int
		if err := workflow.ExecuteActivity(ctx, "ConvertTrip", id).Get(ctx, &legs); err != nil {
			logger.Warn("trip conversion failed", "tripID", id, "error", err)
			result.Failed++
			continue
		}
		result.Converted++
		result.Legs += legs
	}

	logger.Info("Leg backfill finished",
		"converted", result.Converted, "failed", result.Failed, "legs", result.Legs)
	return result, nil
}
