package model

import "time"

// SourceKind tells where a service's artifact comes from.
type SourceKind string

const (
	SourceRepository SourceKind = "repository"
	SourceImage      SourceKind = "image"
)

// DefaultBranch is used when a repository service does not name a branch.
const DefaultBranch = "main"

// RuntimeParams are the container parameters a deployment runs with. A service
// holds the defaults; each deployment keeps its own copy.
type RuntimeParams struct {
	Port            int     `json:"port"`
	Replicas        int     `json:"replicas"`
	CPURequest      string  `json:"cpu_request"`
	CPULimit        string  `json:"cpu_limit"`
	MemoryRequest   string  `json:"memory_request"`
	MemoryLimit     string  `json:"memory_limit"`
	HealthCheckPath string  `json:"health_check_path"`
	StartCommand    *string `json:"start_command,omitempty"`
}

// DefaultRuntimeParams returns the parameters new services start with.
func DefaultRuntimeParams() RuntimeParams {
	return RuntimeParams{
		Port:            8080,
		Replicas:        1,
		CPURequest:      "250m",
		CPULimit:        "1000m",
		MemoryRequest:   "256Mi",
		MemoryLimit:     "512Mi",
		HealthCheckPath: "/",
	}
}

// Service is a user-defined deployable unit.
type Service struct {
	ID         string     `json:"id" db:"id"`
	ProjectID  string     `json:"project_id" db:"project_id"`
	Name       string     `json:"name" db:"name"`
	SourceKind SourceKind `json:"source_kind" db:"source_kind"`

	// Repository source.
	RepositoryURL      *string `json:"repository_url,omitempty" db:"repository_url"`
	RepositoryProvider *string `json:"repository_provider,omitempty" db:"repository_provider"`
	Branch             *string `json:"branch,omitempty" db:"branch"`
	InstallationRef    *string `json:"installation_ref,omitempty" db:"installation_ref"`
	RepoFullName       *string `json:"repo_full_name,omitempty" db:"repo_full_name"`

	// Image source.
	ImageURL *string `json:"image_url,omitempty" db:"image_url"`
	ImageTag *string `json:"image_tag,omitempty" db:"image_tag"`

	Defaults   RuntimeParams `json:"defaults" db:"-"`
	Subdomain  string        `json:"subdomain" db:"subdomain"`
	PublicURL  *string       `json:"public_url,omitempty" db:"public_url"`
	AutoDeploy bool          `json:"auto_deploy" db:"auto_deploy"`
	Status     string        `json:"status" db:"status"`
	CanvasX    float64       `json:"canvas_x" db:"canvas_x"`
	CanvasY    float64       `json:"canvas_y" db:"canvas_y"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
}

// BranchOrDefault returns the configured branch or DefaultBranch.
func (s *Service) BranchOrDefault() string {
	if s.Branch != nil && *s.Branch != "" {
		return *s.Branch
	}
	return DefaultBranch
}

// HasAutoDeploySource reports whether every field needed to fetch a commit
// and queue a build is present.
func (s *Service) HasAutoDeploySource() bool {
	return s.SourceKind == SourceRepository &&
		nonEmpty(s.InstallationRef) && nonEmpty(s.RepoFullName) && nonEmpty(s.RepositoryURL)
}

func nonEmpty(p *string) bool {
	return p != nil && *p != ""
}
