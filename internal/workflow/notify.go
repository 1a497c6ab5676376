package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/kubidu/kubidu/internal/model"
)

// NotifyWorkspaceWorkflow delivers one workspace event to the notification
// webhook.
func NotifyWorkspaceWorkflow(ctx workflow.Context, event model.WorkspaceEvent) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
		},
	})
	err := workflow.ExecuteActivity(ctx, "SendWorkspaceEvent", event).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Warn("failed to deliver workspace event",
			"type", event.Type, "workspaceID", event.WorkspaceID, "error", err)
	}
	return err
}
