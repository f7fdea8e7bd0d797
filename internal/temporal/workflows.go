package temporal

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const activityTimeout = 25 * time.Second

// TranslateWorkflow wraps the orchestrator's nine-step translate() sequence
// as a single activity, grounded on internal/temporal/workflows.go's
// ChatWorkflow shape but collapsed to one activity since C7's retry/
// failover logic already lives inside Translate itself — the workflow
// layer adds durability (the call survives a worker restart), not a second
// independent retry policy.
func TranslateWorkflow(ctx workflow.Context, input TranslateInput) (TranslateOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: activityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1, // Translate() owns its own retry/failover.
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var out TranslateOutput
	err := workflow.ExecuteActivity(ctx, (*Activities).Translate, input).Get(ctx, &out)
	if err != nil {
		return TranslateOutput{}, err
	}
	return out, nil
}
