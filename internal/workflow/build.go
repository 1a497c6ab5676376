package workflow

import (
	"go.temporal.io/sdk/workflow"

	"github.com/kubidu/kubidu/internal/model"
)

// BuildServiceWorkflow hands a build job to the executor and marks its build
// queue entry RUNNING. When the last attempt fails the entry and the
// deployment are marked FAILED.
func BuildServiceWorkflow(ctx workflow.Context, job model.BuildJob) error {
	logger := workflow.GetLogger(ctx)

	err := workflow.ExecuteActivity(executorActivityCtx(ctx), "SubmitBuild", job).Get(ctx, nil)
	if err != nil {
		if !isFinalAttempt(ctx, err) {
			logger.Warn("build hand-off failed, job will be retried", "deploymentID", job.DeploymentID, "error", err)
			return err
		}
		markFailed(ctx, "MarkBuildFailed", job.BuildQueueID, err)
		markFailed(ctx, "MarkDeploymentFailed", job.DeploymentID, err)
		return terminal("build hand-off failed", err)
	}

	err = workflow.ExecuteActivity(storeActivityCtx(ctx), "MarkBuildRunning", job.BuildQueueID).Get(ctx, nil)
	if err != nil {
		// The executor has the job; its status reports will move the entry on.
		logger.Warn("failed to mark build running", "buildQueueID", job.BuildQueueID, "error", err)
	}
	return nil
}
