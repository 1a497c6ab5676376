package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/model"
)

func TestRequiresRedeploy(t *testing.T) {
	base := imageService("api")
	base.Subdomain = "api-proj"

	cmd := func(s string) *model.Service {
		c := *base
		c.Defaults.StartCommand = &s
		return &c
	}

	cpu := *base
	cpu.Defaults.CPULimit = "2000m"
	sub := *base
	sub.Subdomain = "api-v2"

	assert.False(t, RequiresRedeploy(base, base))
	assert.False(t, RequiresRedeploy(base, &cpu))
	assert.True(t, RequiresRedeploy(base, &sub))
	assert.True(t, RequiresRedeploy(base, cmd("npm start")))
	assert.False(t, RequiresRedeploy(cmd("npm start"), cmd("npm start")))
	assert.True(t, RequiresRedeploy(cmd("npm start"), base))
}

func TestRollbackLabel(t *testing.T) {
	assert.Equal(t, "abc1234", rollbackLabel(&model.Deployment{ID: "d", GitCommitSHA: strPtr("abc1234def")}))
	assert.Equal(t, "v3", rollbackLabel(&model.Deployment{ID: "d", ImageTag: strPtr("v3")}))
	assert.Equal(t, "nginx", rollbackLabel(&model.Deployment{ID: "d", ImageURL: strPtr("nginx")}))
	assert.Equal(t, "d", rollbackLabel(&model.Deployment{ID: "d"}))
}

func seedRollbackTarget(env *testEnv) model.Deployment {
	env.services.put(model.Service{ID: "svc-1", ProjectID: testProject, Name: "api", Subdomain: "api-proj", SourceKind: model.SourceImage})
	env.services.put(model.Service{ID: "svc-2", ProjectID: testProject, Name: "worker", SourceKind: model.SourceImage})

	start := "node server.js"
	target := model.Deployment{
		ID:           "dep-old",
		ServiceID:    "svc-1",
		Status:       model.DeploymentRunning,
		ImageURL:     strPtr("ghcr.io/acme/api"),
		ImageTag:     strPtr("v1"),
		GitCommitSHA: strPtr("abc1234def5678"),
		GitAuthor:    strPtr("Jane"),
		Runtime: model.RuntimeParams{
			Port: 3000, Replicas: 2, CPURequest: "100m", CPULimit: "500m",
			MemoryRequest: "128Mi", MemoryLimit: "256Mi", HealthCheckPath: "/healthz",
			StartCommand: &start,
		},
	}
	env.deployments.add(target)
	env.deployments.add(model.Deployment{ID: "dep-new", ServiceID: "svc-1", Status: model.DeploymentRunning, ImageTag: strPtr("v2")})
	env.deployments.add(model.Deployment{ID: "dep-other", ServiceID: "svc-2", Status: model.DeploymentRunning})
	return target
}

func TestRollback_CopiesTarget(t *testing.T) {
	env := newTestEnv(t)
	target := seedRollbackTarget(env)

	d, err := env.core.Orchestrator.Rollback(context.Background(), deployerID, "svc-1", "dep-old")
	require.NoError(t, err)

	assert.Equal(t, model.DeploymentPending, d.Status)
	assert.NotEqual(t, target.ID, d.ID)
	assert.Equal(t, target.ImageURL, d.ImageURL)
	assert.Equal(t, target.ImageTag, d.ImageTag)
	assert.Equal(t, target.GitCommitSHA, d.GitCommitSHA)
	assert.Equal(t, target.Runtime, d.Runtime)
	require.NotNil(t, d.RolledBackFrom)
	assert.Equal(t, "dep-old", *d.RolledBackFrom)
	assert.Equal(t, "Rollback to abc1234", *d.GitCommitMessage)

	assert.Equal(t, d.ID, env.deployments.newest("svc-1").ID)

	jobs := env.queue.named(model.DeployServiceWorkflowName)
	require.Len(t, jobs, 1)
	job := jobs[0].Payload.(model.DeployJob)
	assert.Equal(t, d.ID, job.DeploymentID)
	assert.Equal(t, "api-proj", job.Subdomain)
	assert.Equal(t, 3000, job.Runtime.Port)

	events := env.queue.named(model.NotifyWorkspaceWorkflowName)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventDeploymentRollback, events[0].Payload.(model.WorkspaceEvent).Type)
}

func TestRollback_TargetOfAnotherService(t *testing.T) {
	env := newTestEnv(t)
	seedRollbackTarget(env)

	_, err := env.core.Orchestrator.Rollback(context.Background(), adminID, "svc-1", "dep-other")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Len(t, env.deployments.forService("svc-1"), 2)
	assert.Empty(t, env.queue.jobs)
}

func TestRollback_TargetWithoutImage(t *testing.T) {
	env := newTestEnv(t)
	seedRollbackTarget(env)
	env.deployments.add(model.Deployment{
		ID: "dep-failed", ServiceID: "svc-1", Status: model.DeploymentFailed,
		GitCommitSHA: strPtr("deadbeef00"),
	})

	_, err := env.core.Orchestrator.Rollback(context.Background(), adminID, "svc-1", "dep-failed")
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.Len(t, env.deployments.forService("svc-1"), 3)
	assert.Empty(t, env.queue.named(model.DeployServiceWorkflowName))
}

func TestRollback_Authorization(t *testing.T) {
	env := newTestEnv(t)
	seedRollbackTarget(env)

	_, err := env.core.Orchestrator.Rollback(context.Background(), strangerID, "svc-1", "dep-old")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = env.core.Orchestrator.Rollback(context.Background(), adminID, "svc-1", "dep-missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRollback_EnqueueFailureMarksDeploymentFailed(t *testing.T) {
	env := newTestEnv(t)
	seedRollbackTarget(env)
	env.queue.fail[model.DeployServiceWorkflowName] = errors.New("queue down")

	_, err := env.core.Orchestrator.Rollback(context.Background(), adminID, "svc-1", "dep-old")
	assert.ErrorIs(t, err, errs.ErrExternalDependency)

	latest := env.deployments.newest("svc-1")
	assert.Equal(t, model.DeploymentFailed, latest.Status)
	assert.Equal(t, "dep-old", *latest.RolledBackFrom)
}

func TestRecordStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.deployments.add(model.Deployment{ID: "dep-1", ServiceID: "svc-1", Status: model.DeploymentPending})
	o := env.core.Orchestrator

	require.NoError(t, o.RecordStatus(ctx, model.DeploymentStatusUpdate{DeploymentID: "dep-1", Status: model.DeploymentBuilding}))
	require.NoError(t, o.RecordStatus(ctx, model.DeploymentStatusUpdate{DeploymentID: "dep-1", Status: model.DeploymentBuilding}))

	err := o.RecordStatus(ctx, model.DeploymentStatusUpdate{DeploymentID: "dep-1", Status: model.DeploymentPending})
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	err = o.RecordStatus(ctx, model.DeploymentStatusUpdate{DeploymentID: "dep-1", Status: "EXPLODED"})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	msg := "oom"
	require.NoError(t, o.RecordStatus(ctx, model.DeploymentStatusUpdate{DeploymentID: "dep-1", Status: model.DeploymentFailed, Message: &msg}))
	d, _ := env.deployments.GetByID(ctx, "dep-1")
	assert.Equal(t, model.DeploymentFailed, d.Status)
	assert.Equal(t, "oom", *d.StatusMessage)
}

func TestListDeployments(t *testing.T) {
	env := newTestEnv(t)
	seedRollbackTarget(env)
	ctx := context.Background()

	list, err := env.core.Orchestrator.ListDeployments(ctx, deployerID, "svc-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "dep-new", list[0].ID)

	list, err = env.core.Orchestrator.ListDeployments(ctx, deployerID, "svc-1", 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = env.core.Orchestrator.GetDeployment(ctx, strangerID, "dep-old")
	assert.ErrorIs(t, err, errs.ErrForbidden)
	d, err := env.core.Orchestrator.GetDeployment(ctx, memberID, "dep-old")
	require.NoError(t, err)
	assert.Equal(t, "svc-1", d.ServiceID)
}

func TestOnServiceCreated_RepositoryWithoutProvider(t *testing.T) {
	env := newTestEnv(t)
	o := NewDeploymentOrchestrator(env.deployments, env.installations, nil, env.core.Dispatcher, env.core.Guard, nil)
	svc := repoService("api")
	svc.ID = "svc-1"

	_, err := o.OnServiceCreated(context.Background(), nil, svc, adminID)
	assert.ErrorIs(t, err, errs.ErrExternalDependency)
	assert.Empty(t, env.deployments.forService("svc-1"))
}

func TestOnServiceCreated_IncompleteRepositoryIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	svc := repoService("api")
	svc.ID = "svc-1"
	svc.InstallationRef = nil

	d, err := env.core.Orchestrator.OnServiceCreated(context.Background(), nil, svc, adminID)
	require.NoError(t, err)
	assert.Nil(t, d)
	env.source.AssertNotCalled(t, "LatestCommit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOnServiceUpdated_RepositoryReusesLatestArtifact(t *testing.T) {
	env := newTestEnv(t)
	before := repoService("api")
	before.ID = "svc-1"
	before.Subdomain = "api-proj"
	env.deployments.add(model.Deployment{
		ID: "dep-1", ServiceID: "svc-1", Status: model.DeploymentRunning,
		ImageURL: strPtr("registry/api"), ImageTag: strPtr("abc123"), GitCommitSHA: strPtr("abc123"),
	})

	after := *before
	cmd := "./serve"
	after.Defaults.StartCommand = &cmd

	d, err := env.core.Orchestrator.OnServiceUpdated(context.Background(), nil, before, &after, adminID)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "registry/api", *d.ImageURL)
	assert.Equal(t, "abc123", *d.GitCommitSHA)
	assert.Equal(t, &cmd, d.Runtime.StartCommand)
}

func TestOnServiceUpdated_RepositoryWithoutHistoryIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	before := repoService("api")
	before.ID = "svc-1"
	after := *before
	after.Subdomain = "api-v2"

	d, err := env.core.Orchestrator.OnServiceUpdated(context.Background(), nil, before, &after, adminID)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestOnServiceUpdated_RepositorySkipsUnbuiltDeployments(t *testing.T) {
	env := newTestEnv(t)
	before := repoService("api")
	before.ID = "svc-1"
	before.Subdomain = "api-proj"
	env.deployments.add(model.Deployment{
		ID: "dep-1", ServiceID: "svc-1", Status: model.DeploymentRunning,
		ImageURL: strPtr("registry/api"), ImageTag: strPtr("abc123"), GitCommitSHA: strPtr("abc123"),
	})
	env.deployments.add(model.Deployment{
		ID: "dep-2", ServiceID: "svc-1", Status: model.DeploymentFailed, GitCommitSHA: strPtr("def456"),
	})

	after := *before
	after.Subdomain = "api-v2"

	d, err := env.core.Orchestrator.OnServiceUpdated(context.Background(), nil, before, &after, adminID)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "abc123", *d.GitCommitSHA)

	jobs := env.queue.named(model.DeployServiceWorkflowName)
	require.Len(t, jobs, 1)
	job := jobs[0].Payload.(model.DeployJob)
	assert.Equal(t, "registry/api", job.ImageURL)
	assert.Equal(t, "abc123", job.ImageTag)
}

func TestOnServiceUpdated_RepositoryWithoutBuiltImageIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	before := repoService("api")
	before.ID = "svc-1"
	env.deployments.add(model.Deployment{
		ID: "dep-1", ServiceID: "svc-1", Status: model.DeploymentBuilding, GitCommitSHA: strPtr("abc123"),
	})
	after := *before
	after.Subdomain = "api-v2"

	d, err := env.core.Orchestrator.OnServiceUpdated(context.Background(), nil, before, &after, adminID)
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.Empty(t, env.queue.named(model.DeployServiceWorkflowName))
	assert.Len(t, env.deployments.forService("svc-1"), 1)
}
