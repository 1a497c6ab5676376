package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/model"
	"github.com/kubidu/kubidu/internal/platform"
)

// BuildRequest describes a build for one deployment.
type BuildRequest struct {
	ProjectID       string
	ServiceID       string
	DeploymentID    string
	RepositoryURL   string
	Branch          string
	CommitSHA       string
	CommitMessage   string
	Author          string
	InstallationRef string
	RepoFullName    string
}

// BuildQueueDispatcher records build queue entries and hands build and deploy
// jobs to the JobQueue. It does not wait for execution.
type BuildQueueDispatcher struct {
	entries BuildQueueRepository
	queue   JobQueue
}

func NewBuildQueueDispatcher(entries BuildQueueRepository, queue JobQueue) *BuildQueueDispatcher {
	return &BuildQueueDispatcher{entries: entries, queue: queue}
}

func buildJobID(deploymentID string) string  { return "build-" + deploymentID }
func deployJobID(deploymentID string) string { return "deploy-" + deploymentID }

// EnqueueBuild creates a QUEUED entry and submits the build job with the
// build retry policy.
func (d *BuildQueueDispatcher) EnqueueBuild(ctx context.Context, req BuildRequest) (string, error) {
	entry := &model.BuildQueueEntry{
		ID:           platform.NewID(),
		ServiceID:    req.ServiceID,
		DeploymentID: req.DeploymentID,
		Status:       model.BuildQueued,
	}
	if err := d.entries.Create(ctx, entry); err != nil {
		return "", fmt.Errorf("create build queue entry: %w", err)
	}

	job := model.Job{
		Name: model.BuildServiceWorkflowName,
		ID:   buildJobID(req.DeploymentID),
		Payload: model.BuildJob{
			BuildQueueID:    entry.ID,
			ProjectID:       req.ProjectID,
			ServiceID:       req.ServiceID,
			DeploymentID:    req.DeploymentID,
			RepositoryURL:   req.RepositoryURL,
			Branch:          req.Branch,
			CommitSHA:       req.CommitSHA,
			CommitMessage:   req.CommitMessage,
			Author:          req.Author,
			InstallationRef: req.InstallationRef,
			RepoFullName:    req.RepoFullName,
		},
	}

	jobID, err := d.queue.Enqueue(ctx, job, model.BuildRetryPolicy())
	if err != nil {
		msg := err.Error()
		if uerr := d.entries.UpdateStatus(ctx, entry.ID, model.BuildFailed, &msg); uerr != nil {
			zerolog.Ctx(ctx).Error().Err(uerr).Str("build_queue_id", entry.ID).Msg("failed to mark build queue entry failed")
		}
		return "", errs.WrapMsg(errs.ErrExternalDependency, "enqueue build", err)
	}
	jobsEnqueued.WithLabelValues("build").Inc()

	if err := d.entries.SetJobID(ctx, entry.ID, jobID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("build_queue_id", entry.ID).Msg("failed to record build job id")
	}

	zerolog.Ctx(ctx).Info().Str("build_queue_id", entry.ID).Str("job_id", jobID).
		Str("deployment_id", req.DeploymentID).Msg("build queued")
	return jobID, nil
}

// EnqueueDeploy submits a deploy-only job for an existing artifact.
func (d *BuildQueueDispatcher) EnqueueDeploy(ctx context.Context, job model.DeployJob) (string, error) {
	jobID, err := d.queue.Enqueue(ctx, model.Job{
		Name:    model.DeployServiceWorkflowName,
		ID:      deployJobID(job.DeploymentID),
		Payload: job,
	}, model.BuildRetryPolicy())
	if err != nil {
		return "", errs.WrapMsg(errs.ErrExternalDependency, "enqueue deploy", err)
	}
	jobsEnqueued.WithLabelValues("deploy").Inc()

	zerolog.Ctx(ctx).Info().Str("job_id", jobID).Str("deployment_id", job.DeploymentID).Msg("deploy queued")
	return jobID, nil
}

// RecordStatus applies a status reported by the build executor.
func (d *BuildQueueDispatcher) RecordStatus(ctx context.Context, entryID string, status model.BuildQueueStatus, errMsg *string) error {
	if !status.Valid() {
		return errs.Invalid("unknown build status %q", status)
	}
	entry, err := d.entries.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if !entry.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: build %s cannot move from %s to %s", errs.ErrInvalidTransition, entryID, entry.Status, status)
	}
	return d.entries.UpdateStatus(ctx, entryID, status, errMsg)
}
