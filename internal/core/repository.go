package core

import (
	"context"

	"github.com/kubidu/kubidu/internal/model"
)

// ServiceRepository persists services. Implementations return errs.ErrNotFound
// for missing rows and errs.ErrSubdomainTaken when the subdomain unique
// constraint fires.
type ServiceRepository interface {
	Create(ctx context.Context, svc *model.Service) error
	Update(ctx context.Context, svc *model.Service) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.Service, error)
	ListByProject(ctx context.Context, projectID string) ([]model.Service, error)
	NameExists(ctx context.Context, projectID, name, excludeID string) (bool, error)
	SubdomainExists(ctx context.Context, subdomain string) (bool, error)
}

// DeploymentRepository persists deployments. ListByService orders newest
// first. LatestWithImage returns the newest deployment that carries a built
// image.
type DeploymentRepository interface {
	Create(ctx context.Context, d *model.Deployment) error
	GetByID(ctx context.Context, id string) (*model.Deployment, error)
	ListByService(ctx context.Context, serviceID string, limit int) ([]model.Deployment, error)
	LatestWithImage(ctx context.Context, serviceID string) (*model.Deployment, error)
	UpdateStatus(ctx context.Context, u model.DeploymentStatusUpdate) error
}

type BuildQueueRepository interface {
	Create(ctx context.Context, e *model.BuildQueueEntry) error
	GetByID(ctx context.Context, id string) (*model.BuildQueueEntry, error)
	SetJobID(ctx context.Context, id, jobID string) error
	UpdateStatus(ctx context.Context, id string, status model.BuildQueueStatus, errMsg *string) error
}

// EnvVarRepository persists environment variables. FindByKey only considers
// service-level variables (no deployment).
type EnvVarRepository interface {
	FindByKey(ctx context.Context, serviceID, key string) (*model.EnvironmentVariable, error)
	GetByID(ctx context.Context, id string) (*model.EnvironmentVariable, error)
	// Upsert inserts or overwrites the service-level variable with v.Key.
	// It returns ErrForbidden when a user write targets a system variable.
	Upsert(ctx context.Context, v *model.EnvironmentVariable) error
	ListByService(ctx context.Context, serviceID string) ([]model.EnvironmentVariable, error)
	Delete(ctx context.Context, id string) error
}

type EnvVarReferenceRepository interface {
	Create(ctx context.Context, r *model.EnvVarReference) error
	GetByID(ctx context.Context, id string) (*model.EnvVarReference, error)
	Delete(ctx context.Context, id string) error
	ListBySource(ctx context.Context, serviceID string) ([]model.EnvVarReference, error)
	ListByProject(ctx context.Context, projectID string) ([]model.EnvVarReference, error)
}

type WorkspaceRepository interface {
	GetWorkspace(ctx context.Context, id string) (*model.Workspace, error)
	GetProject(ctx context.Context, id string) (*model.Project, error)
	GetMember(ctx context.Context, workspaceID, userID string) (*model.WorkspaceMember, error)
}

type InstallationRepository interface {
	GetByID(ctx context.Context, id string) (*model.GitHubInstallation, error)
}

// SourceProvider reads repositories through a source-control installation.
type SourceProvider interface {
	LatestCommit(ctx context.Context, installationID int64, repoFullName, branch string) (*model.Commit, error)
	ListRepositories(ctx context.Context, installationID int64, page, perPage int) ([]model.Repository, error)
	ListBranches(ctx context.Context, installationID int64, repoFullName string) ([]model.Branch, error)
	GetRepository(ctx context.Context, installationID int64, repoFullName string) (*model.Repository, error)
}

// JobQueue hands jobs to the asynchronous workers and returns the job ID.
type JobQueue interface {
	Enqueue(ctx context.Context, job model.Job, policy model.RetryPolicy) (string, error)
}

// Cipher encrypts variable values at rest.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
