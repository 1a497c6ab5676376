package workflow

import (
	"go.temporal.io/sdk/workflow"

	"github.com/kubidu/kubidu/internal/model"
)

// DeployServiceWorkflow hands an already built artifact to the executor.
func DeployServiceWorkflow(ctx workflow.Context, job model.DeployJob) error {
	err := workflow.ExecuteActivity(executorActivityCtx(ctx), "SubmitDeploy", job).Get(ctx, nil)
	if err == nil {
		return nil
	}
	if !isFinalAttempt(ctx, err) {
		workflow.GetLogger(ctx).Warn("deploy hand-off failed, job will be retried", "deploymentID", job.DeploymentID, "error", err)
		return err
	}
	markFailed(ctx, "MarkDeploymentFailed", job.DeploymentID, err)
	return terminal("deploy hand-off failed", err)
}
