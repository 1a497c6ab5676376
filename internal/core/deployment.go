package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/logging"
	"github.com/kubidu/kubidu/internal/model"
	"github.com/kubidu/kubidu/internal/platform"
)

const shortSHALength = 7

// DeploymentOrchestrator decides when a deployment is produced and hands the
// work to the BuildQueueDispatcher. Deployments are always created PENDING.
type DeploymentOrchestrator struct {
	deployments   DeploymentRepository
	installations InstallationRepository
	source        SourceProvider
	dispatcher    *BuildQueueDispatcher
	guard         *AccessPolicyGuard
	notifier      Notifier
}

func NewDeploymentOrchestrator(
	deployments DeploymentRepository,
	installations InstallationRepository,
	source SourceProvider,
	dispatcher *BuildQueueDispatcher,
	guard *AccessPolicyGuard,
	notifier Notifier,
) *DeploymentOrchestrator {
	return &DeploymentOrchestrator{
		deployments:   deployments,
		installations: installations,
		source:        source,
		dispatcher:    dispatcher,
		guard:         guard,
		notifier:      notifier,
	}
}

// RequiresRedeploy reports whether an update changes something the running
// container depends on: its start command or its public routing.
func RequiresRedeploy(before, after *model.Service) bool {
	return !equalStringPtr(before.Defaults.StartCommand, after.Defaults.StartCommand) ||
		before.Subdomain != after.Subdomain
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func newDeployment(svc *model.Service, runtime model.RuntimeParams) *model.Deployment {
	return &model.Deployment{
		ID:        platform.NewID(),
		ServiceID: svc.ID,
		Status:    model.DeploymentPending,
		Runtime:   runtime,
	}
}

func deployJob(svc *model.Service, d *model.Deployment) model.DeployJob {
	return model.DeployJob{
		ProjectID:    svc.ProjectID,
		ServiceID:    svc.ID,
		DeploymentID: d.ID,
		ImageURL:     deref(d.ImageURL),
		ImageTag:     deref(d.ImageTag),
		CommitSHA:    deref(d.GitCommitSHA),
		Subdomain:    svc.Subdomain,
		Runtime:      d.Runtime,
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// OnServiceCreated produces the first deployment of a new service. Image
// sources are deployed directly. Repository sources with complete auto-deploy
// metadata are built from the branch head. Other services get no deployment
// and a nil result.
func (o *DeploymentOrchestrator) OnServiceCreated(ctx context.Context, project *model.Project, svc *model.Service, actorID string) (*model.Deployment, error) {
	switch {
	case svc.SourceKind == model.SourceImage:
		d := newDeployment(svc, svc.Defaults)
		d.ImageURL = svc.ImageURL
		d.ImageTag = svc.ImageTag
		return o.createAndDeploy(ctx, project, svc, d, triggerImage, actorID)
	case svc.HasAutoDeploySource():
		return o.buildFromRepository(ctx, project, svc, actorID)
	}
	return nil, nil
}

func (o *DeploymentOrchestrator) buildFromRepository(ctx context.Context, project *model.Project, svc *model.Service, actorID string) (*model.Deployment, error) {
	if o.source == nil {
		return nil, errs.WrapMsg(errs.ErrExternalDependency, "source provider is not configured", nil)
	}
	inst, err := o.installations.GetByID(ctx, *svc.InstallationRef)
	if err != nil {
		return nil, fmt.Errorf("resolve installation %s: %w", *svc.InstallationRef, err)
	}

	branch := svc.BranchOrDefault()
	commit, err := o.source.LatestCommit(ctx, inst.InstallationID, *svc.RepoFullName, branch)
	if err != nil {
		return nil, fmt.Errorf("fetch latest commit: %w", err)
	}

	d := newDeployment(svc, svc.Defaults)
	d.GitCommitSHA = &commit.SHA
	d.GitCommitMessage = &commit.Message
	d.GitAuthor = &commit.Author
	if err := o.deployments.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create deployment: %w", err)
	}
	deploymentsCreated.WithLabelValues(triggerRepository).Inc()

	_, err = o.dispatcher.EnqueueBuild(ctx, BuildRequest{
		ProjectID:       svc.ProjectID,
		ServiceID:       svc.ID,
		DeploymentID:    d.ID,
		RepositoryURL:   deref(svc.RepositoryURL),
		Branch:          branch,
		CommitSHA:       commit.SHA,
		CommitMessage:   commit.Message,
		Author:          commit.Author,
		InstallationRef: *svc.InstallationRef,
		RepoFullName:    *svc.RepoFullName,
	})
	if err != nil {
		o.markFailed(ctx, d.ID, err)
		return d, err
	}

	notify(ctx, o.notifier, model.EventDeploymentCreated, project, svc, d.ID, actorID, "build queued for "+shortSHA(commit.SHA))
	return d, nil
}

// OnServiceUpdated redeploys when RequiresRedeploy(before, after). The new
// deployment uses the service's current runtime parameters and the newest
// built image of the service. A repository service with no built image yet is
// not redeployed.
func (o *DeploymentOrchestrator) OnServiceUpdated(ctx context.Context, project *model.Project, before, after *model.Service, actorID string) (*model.Deployment, error) {
	if !RequiresRedeploy(before, after) {
		return nil, nil
	}

	d := newDeployment(after, after.Defaults)
	if after.SourceKind == model.SourceImage {
		d.ImageURL = after.ImageURL
		d.ImageTag = after.ImageTag
	} else {
		latest, err := o.deployments.LatestWithImage(ctx, after.ID)
		if errors.Is(err, errs.ErrNotFound) {
			zerolog.Ctx(ctx).Info().Str("service_id", after.ID).Msg("no built image, skipping redeploy")
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		d.ImageURL = latest.ImageURL
		d.ImageTag = latest.ImageTag
		d.GitCommitSHA = latest.GitCommitSHA
		d.GitCommitMessage = latest.GitCommitMessage
		d.GitAuthor = latest.GitAuthor
	}
	return o.createAndDeploy(ctx, project, after, d, triggerRedeploy, actorID)
}

func (o *DeploymentOrchestrator) createAndDeploy(ctx context.Context, project *model.Project, svc *model.Service, d *model.Deployment, trigger, actorID string) (*model.Deployment, error) {
	if err := o.deployments.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create deployment: %w", err)
	}
	deploymentsCreated.WithLabelValues(trigger).Inc()

	if _, err := o.dispatcher.EnqueueDeploy(ctx, deployJob(svc, d)); err != nil {
		o.markFailed(ctx, d.ID, err)
		return d, err
	}

	event := model.EventDeploymentCreated
	if trigger == triggerRollback {
		event = model.EventDeploymentRollback
	}
	notify(ctx, o.notifier, event, project, svc, d.ID, actorID, deref(d.StatusMessage))
	return d, nil
}

// markFailed records that a deployment never reached the queue.
func (o *DeploymentOrchestrator) markFailed(ctx context.Context, deploymentID string, cause error) {
	msg := "enqueue failed: " + cause.Error()
	err := o.deployments.UpdateStatus(ctx, model.DeploymentStatusUpdate{
		DeploymentID: deploymentID,
		Status:       model.DeploymentFailed,
		Message:      &msg,
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("deployment_id", deploymentID).Msg("failed to mark deployment failed")
	}
}

// Rollback creates a PENDING deployment that reuses the artifact, commit
// metadata and runtime parameters of target. The target must belong to the
// service and carry a built image.
func (o *DeploymentOrchestrator) Rollback(ctx context.Context, actorID, serviceID, targetDeploymentID string) (*model.Deployment, error) {
	ctx = logging.WithOperation(ctx, "rollback", "service_id", serviceID, "target_deployment_id", targetDeploymentID)

	svc, project, err := o.guard.AuthorizeService(ctx, actorID, serviceID, RollbackRoles)
	if err != nil {
		return nil, err
	}

	target, err := o.deployments.GetByID(ctx, targetDeploymentID)
	if err != nil {
		return nil, err
	}
	if target.ServiceID != svc.ID {
		return nil, errs.NotFound("deployment %s for service %s", targetDeploymentID, serviceID)
	}
	if deref(target.ImageURL) == "" {
		return nil, errs.Conflict("deployment %s has no built image to roll back to", targetDeploymentID)
	}

	label := rollbackLabel(target)
	message := "Rollback to " + label
	d := newDeployment(svc, target.Runtime)
	d.ImageURL = target.ImageURL
	d.ImageTag = target.ImageTag
	d.GitCommitSHA = target.GitCommitSHA
	d.GitCommitMessage = &message
	d.GitAuthor = target.GitAuthor
	d.RolledBackFrom = &target.ID
	d.StatusMessage = &message

	d, err = o.createAndDeploy(ctx, project, svc, d, triggerRollback, actorID)
	if err != nil {
		return nil, fmt.Errorf("rollback to %s: %w", label, err)
	}
	zerolog.Ctx(ctx).Info().Str("deployment_id", d.ID).Msg("rollback queued")
	return d, nil
}

// rollbackLabel names a deployment by short SHA, else image tag, else ID.
func rollbackLabel(d *model.Deployment) string {
	if sha := deref(d.GitCommitSHA); sha != "" {
		return shortSHA(sha)
	}
	if tag := deref(d.ImageTag); tag != "" {
		return tag
	}
	if img := deref(d.ImageURL); img != "" {
		return img
	}
	return d.ID
}

func shortSHA(sha string) string {
	if len(sha) > shortSHALength {
		return sha[:shortSHALength]
	}
	return sha
}

// RecordStatus applies a status reported by the executor. Moves that the
// deployment state machine does not allow fail with ErrInvalidTransition.
func (o *DeploymentOrchestrator) RecordStatus(ctx context.Context, u model.DeploymentStatusUpdate) error {
	if !u.Status.Valid() {
		return errs.Invalid("unknown deployment status %q", u.Status)
	}
	d, err := o.deployments.GetByID(ctx, u.DeploymentID)
	if err != nil {
		return err
	}
	if !model.CanTransition(d.Status, u.Status) {
		return fmt.Errorf("%w: deployment %s cannot move from %s to %s", errs.ErrInvalidTransition, d.ID, d.Status, u.Status)
	}
	if err := o.deployments.UpdateStatus(ctx, u); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("deployment_id", d.ID).Str("from", string(d.Status)).
		Str("to", string(u.Status)).Msg("deployment status recorded")
	return nil
}

// ListDeployments returns a service's deployments newest first.
func (o *DeploymentOrchestrator) ListDeployments(ctx context.Context, actorID, serviceID string, limit int) ([]model.Deployment, error) {
	if _, _, err := o.guard.AuthorizeService(ctx, actorID, serviceID, ReadRoles); err != nil {
		return nil, err
	}
	return o.deployments.ListByService(ctx, serviceID, limit)
}

func (o *DeploymentOrchestrator) GetDeployment(ctx context.Context, actorID, deploymentID string) (*model.Deployment, error) {
	d, err := o.deployments.GetByID(ctx, deploymentID)
	if err != nil {
		return nil, err
	}
	if _, _, err := o.guard.AuthorizeService(ctx, actorID, d.ServiceID, ReadRoles); err != nil {
		return nil, err
	}
	return d, nil
}
