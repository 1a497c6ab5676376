package activity

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/model"
)

// BuildQueueStore is the subset of the build queue repository the worker
// needs.
type BuildQueueStore interface {
	GetByID(ctx context.Context, id string) (*model.BuildQueueEntry, error)
	UpdateStatus(ctx context.Context, id string, status model.BuildQueueStatus, errMsg *string) error
}

// DeploymentStore is the subset of the deployment repository the worker
// needs.
type DeploymentStore interface {
	GetByID(ctx context.Context, id string) (*model.Deployment, error)
	UpdateStatus(ctx context.Context, u model.DeploymentStatusUpdate) error
}

// CoreDB contains activities that record job progress in the core database.
type CoreDB struct {
	builds      BuildQueueStore
	deployments DeploymentStore
}

func NewCoreDB(builds BuildQueueStore, deployments DeploymentStore) *CoreDB {
	return &CoreDB{builds: builds, deployments: deployments}
}

// MarkFailedParams identifies a row to fail and the reason.
type MarkFailedParams struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// MarkBuildRunning moves a build queue entry to RUNNING once the executor
// accepted the job. An entry the executor already moved further is left
// alone.
func (a *CoreDB) MarkBuildRunning(ctx context.Context, buildQueueID string) error {
	return a.setBuildStatus(ctx, buildQueueID, model.BuildRunning, nil)
}

// MarkBuildFailed fails a build queue entry after the last attempt.
func (a *CoreDB) MarkBuildFailed(ctx context.Context, params MarkFailedParams) error {
	return a.setBuildStatus(ctx, params.ID, model.BuildFailed, &params.Message)
}

func (a *CoreDB) setBuildStatus(ctx context.Context, id string, status model.BuildQueueStatus, msg *string) error {
	entry, err := a.builds.GetByID(ctx, id)
	if err != nil {
		return storeError("get build queue entry", err)
	}
	if !entry.Status.CanTransitionTo(status) {
		activity.GetLogger(ctx).Info("build queue entry already moved on",
			"buildQueueID", id, "current", string(entry.Status), "wanted", string(status))
		return nil
	}
	if err := a.builds.UpdateStatus(ctx, id, status, msg); err != nil {
		return storeError("update build queue entry", err)
	}
	return nil
}

// MarkDeploymentFailed fails a deployment whose job could not be handed to
// the executor. Deployments already in a terminal state are left alone.
func (a *CoreDB) MarkDeploymentFailed(ctx context.Context, params MarkFailedParams) error {
	d, err := a.deployments.GetByID(ctx, params.ID)
	if err != nil {
		return storeError("get deployment", err)
	}
	if !model.CanTransition(d.Status, model.DeploymentFailed) {
		activity.GetLogger(ctx).Info("deployment already finished",
			"deploymentID", params.ID, "status", string(d.Status))
		return nil
	}
	msg := params.Message
	err = a.deployments.UpdateStatus(ctx, model.DeploymentStatusUpdate{
		DeploymentID: params.ID,
		Status:       model.DeploymentFailed,
		Message:      &msg,
	})
	if err != nil {
		return storeError("update deployment", err)
	}
	return nil
}

// storeError makes missing rows non-retryable; everything else is retried.
func storeError(op string, err error) error {
	if errors.Is(err, errs.ErrNotFound) {
		return temporal.NewNonRetryableApplicationError(op, "NOT_FOUND", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
