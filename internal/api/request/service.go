package request

import (
	"github.com/kubidu/kubidu/internal/core"
	"github.com/kubidu/kubidu/internal/model"
)

// RuntimeFields are the optional runtime parameters of a service.
type RuntimeFields struct {
	Port            *int    `json:"port" validate:"omitempty,min=1,max=65535"`
	Replicas        *int    `json:"replicas" validate:"omitempty,min=0,max=50"`
	CPURequest      *string `json:"cpu_request" validate:"omitempty,max=16"`
	CPULimit        *string `json:"cpu_limit" validate:"omitempty,max=16"`
	MemoryRequest   *string `json:"memory_request" validate:"omitempty,max=16"`
	MemoryLimit     *string `json:"memory_limit" validate:"omitempty,max=16"`
	HealthCheckPath *string `json:"health_check_path" validate:"omitempty,startswith=/,max=255"`
	StartCommand    *string `json:"start_command" validate:"omitempty,max=1024"`
}

// CreateService is the body of POST /projects/{projectID}/services.
type CreateService struct {
	Name               string  `json:"name" validate:"required,min=1,max=63"`
	SourceKind         string  `json:"source_kind" validate:"required,oneof=repository image"`
	RepositoryURL      *string `json:"repository_url" validate:"omitempty,url"`
	RepositoryProvider *string `json:"repository_provider" validate:"omitempty,oneof=github"`
	Branch             *string `json:"branch" validate:"omitempty,min=1,max=255"`
	InstallationRef    *string `json:"installation_ref" validate:"omitempty,min=1"`
	RepoFullName       *string `json:"repo_full_name" validate:"omitempty,repo"`
	ImageURL           *string `json:"image_url" validate:"omitempty,min=1,max=512"`
	ImageTag           *string `json:"image_tag" validate:"omitempty,min=1,max=128"`
	Subdomain          *string `json:"subdomain" validate:"omitempty,subdomain"`
	AutoDeploy         *bool   `json:"auto_deploy"`
	CanvasX            float64 `json:"canvas_x"`
	CanvasY            float64 `json:"canvas_y"`
	RuntimeFields
}

// ToModel builds the service to create, starting from the default runtime
// parameters.
func (c CreateService) ToModel(projectID string) *model.Service {
	svc := &model.Service{
		ProjectID:          projectID,
		Name:               c.Name,
		SourceKind:         model.SourceKind(c.SourceKind),
		RepositoryURL:      c.RepositoryURL,
		RepositoryProvider: c.RepositoryProvider,
		Branch:             c.Branch,
		InstallationRef:    c.InstallationRef,
		RepoFullName:       c.RepoFullName,
		ImageURL:           c.ImageURL,
		ImageTag:           c.ImageTag,
		Defaults:           model.DefaultRuntimeParams(),
		AutoDeploy:         true,
		CanvasX:            c.CanvasX,
		CanvasY:            c.CanvasY,
	}
	if c.Subdomain != nil {
		svc.Subdomain = *c.Subdomain
	}
	if c.AutoDeploy != nil {
		svc.AutoDeploy = *c.AutoDeploy
	}
	c.RuntimeFields.apply(&svc.Defaults)
	return svc
}

func (f RuntimeFields) apply(d *model.RuntimeParams) {
	if f.Port != nil {
		d.Port = *f.Port
	}
	if f.Replicas != nil {
		d.Replicas = *f.Replicas
	}
	if f.CPURequest != nil {
		d.CPURequest = *f.CPURequest
	}
	if f.CPULimit != nil {
		d.CPULimit = *f.CPULimit
	}
	if f.MemoryRequest != nil {
		d.MemoryRequest = *f.MemoryRequest
	}
	if f.MemoryLimit != nil {
		d.MemoryLimit = *f.MemoryLimit
	}
	if f.HealthCheckPath != nil {
		d.HealthCheckPath = *f.HealthCheckPath
	}
	if f.StartCommand != nil && *f.StartCommand != "" {
		cmd := *f.StartCommand
		d.StartCommand = &cmd
	}
}

// UpdateService is the body of PATCH /services/{id}. Absent fields are left
// unchanged; an empty start_command clears it.
type UpdateService struct {
	Name       *string  `json:"name" validate:"omitempty,min=1,max=63"`
	Branch     *string  `json:"branch" validate:"omitempty,min=1,max=255"`
	ImageURL   *string  `json:"image_url" validate:"omitempty,min=1,max=512"`
	ImageTag   *string  `json:"image_tag" validate:"omitempty,min=1,max=128"`
	Subdomain  *string  `json:"subdomain" validate:"omitempty,subdomain"`
	AutoDeploy *bool    `json:"auto_deploy"`
	CanvasX    *float64 `json:"canvas_x"`
	CanvasY    *float64 `json:"canvas_y"`
	RuntimeFields
}

func (u UpdateService) ToPatch() core.ServicePatch {
	return core.ServicePatch{
		Name:            u.Name,
		Branch:          u.Branch,
		ImageURL:        u.ImageURL,
		ImageTag:        u.ImageTag,
		Port:            u.Port,
		Replicas:        u.Replicas,
		CPURequest:      u.CPURequest,
		CPULimit:        u.CPULimit,
		MemoryRequest:   u.MemoryRequest,
		MemoryLimit:     u.MemoryLimit,
		HealthCheckPath: u.HealthCheckPath,
		StartCommand:    u.StartCommand,
		Subdomain:       u.Subdomain,
		AutoDeploy:      u.AutoDeploy,
		CanvasX:         u.CanvasX,
		CanvasY:         u.CanvasY,
	}
}
