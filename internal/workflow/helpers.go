package workflow

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/kubidu/kubidu/internal/activity"
)

// executorActivityCtx returns a context for calls to the build executor.
// Retries inside one workflow attempt are short; the job-level retry policy
// set by the queue covers longer outages.
func executorActivityCtx(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    2 * time.Second,
			MaximumInterval:    20 * time.Second,
			BackoffCoefficient: 2.0,
		},
	})
}

func storeActivityCtx(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 5,
		},
	})
}

// finalAttempt reports whether err ends the job: the executor rejected it, or
// the job-level retry policy has no attempts left.
func finalAttempt(attempt int32, policy *temporal.RetryPolicy, err error) bool {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.NonRetryable() {
		return true
	}
	if policy == nil {
		return true
	}
	if policy.MaximumAttempts == 0 {
		return false
	}
	return attempt >= policy.MaximumAttempts
}

func isFinalAttempt(ctx workflow.Context, err error) bool {
	info := workflow.GetInfo(ctx)
	return finalAttempt(info.Attempt, info.RetryPolicy, err)
}

// markFailed runs a failure-recording activity. Its own error is logged so the
// original failure is what the workflow reports.
func markFailed(ctx workflow.Context, activityName, id string, cause error) {
	err := workflow.ExecuteActivity(storeActivityCtx(ctx), activityName, activity.MarkFailedParams{
		ID:      id,
		Message: cause.Error(),
	}).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Error("failed to record failure", "activity", activityName, "id", id, "error", err)
	}
}

// terminal converts a final failure into a non-retryable workflow error so the
// queue does not start another attempt.
func terminal(msg string, err error) error {
	return temporal.NewNonRetryableApplicationError(msg, "JOB_FAILED", err)
}
