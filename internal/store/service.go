package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kubidu/kubidu/internal/model"
)

const serviceColumns = `id, project_id, name, source_kind,
	repository_url, repository_provider, branch, installation_ref, repo_full_name,
	image_url, image_tag,
	port, replicas, cpu_request, cpu_limit, memory_request, memory_limit, health_check_path, start_command,
	subdomain, public_url, auto_deploy, status, canvas_x, canvas_y, created_at, updated_at`

// ServiceStore persists services.
type ServiceStore struct {
	db DB
}

func NewServiceStore(db DB) *ServiceStore {
	return &ServiceStore{db: db}
}

func scanService(row pgx.Row) (*model.Service, error) {
	var s model.Service
	var subdomain *string
	err := row.Scan(
		&s.ID, &s.ProjectID, &s.Name, &s.SourceKind,
		&s.RepositoryURL, &s.RepositoryProvider, &s.Branch, &s.InstallationRef, &s.RepoFullName,
		&s.ImageURL, &s.ImageTag,
		&s.Defaults.Port, &s.Defaults.Replicas, &s.Defaults.CPURequest, &s.Defaults.CPULimit,
		&s.Defaults.MemoryRequest, &s.Defaults.MemoryLimit, &s.Defaults.HealthCheckPath, &s.Defaults.StartCommand,
		&subdomain, &s.PublicURL, &s.AutoDeploy, &s.Status, &s.CanvasX, &s.CanvasY, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if subdomain != nil {
		s.Subdomain = *subdomain
	}
	return &s, nil
}

func (s *ServiceStore) Create(ctx context.Context, svc *model.Service) error {
	d := svc.Defaults
	_, err := s.db.Exec(ctx,
		`INSERT INTO services (`+serviceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
		         $20, $21, $22, $23, $24, $25, now(), now())`,
		svc.ID, svc.ProjectID, svc.Name, svc.SourceKind,
		svc.RepositoryURL, svc.RepositoryProvider, svc.Branch, svc.InstallationRef, svc.RepoFullName,
		svc.ImageURL, svc.ImageTag,
		d.Port, d.Replicas, d.CPURequest, d.CPULimit, d.MemoryRequest, d.MemoryLimit, d.HealthCheckPath, d.StartCommand,
		nullIfEmpty(svc.Subdomain), svc.PublicURL, svc.AutoDeploy, svc.Status, svc.CanvasX, svc.CanvasY,
	)
	if err != nil {
		return fmt.Errorf("insert service: %w", mapError(err, "service"))
	}
	return nil
}

func (s *ServiceStore) Update(ctx context.Context, svc *model.Service) error {
	d := svc.Defaults
	tag, err := s.db.Exec(ctx,
		`UPDATE services SET name = $2, repository_url = $3, repository_provider = $4, branch = $5,
		        installation_ref = $6, repo_full_name = $7, image_url = $8, image_tag = $9,
		        port = $10, replicas = $11, cpu_request = $12, cpu_limit = $13, memory_request = $14,
		        memory_limit = $15, health_check_path = $16, start_command = $17,
		        subdomain = $18, public_url = $19, auto_deploy = $20, status = $21,
		        canvas_x = $22, canvas_y = $23, updated_at = now()
		 WHERE id = $1`,
		svc.ID, svc.Name, svc.RepositoryURL, svc.RepositoryProvider, svc.Branch,
		svc.InstallationRef, svc.RepoFullName, svc.ImageURL, svc.ImageTag,
		d.Port, d.Replicas, d.CPURequest, d.CPULimit, d.MemoryRequest,
		d.MemoryLimit, d.HealthCheckPath, d.StartCommand,
		nullIfEmpty(svc.Subdomain), svc.PublicURL, svc.AutoDeploy, svc.Status,
		svc.CanvasX, svc.CanvasY,
	)
	if err != nil {
		return fmt.Errorf("update service %s: %w", svc.ID, mapError(err, "service"))
	}
	return expectOne(tag, "service "+svc.ID)
}

func (s *ServiceStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete service %s: %w", id, err)
	}
	return expectOne(tag, "service "+id)
}

func (s *ServiceStore) GetByID(ctx context.Context, id string) (*model.Service, error) {
	svc, err := scanService(s.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get service %s: %w", id, mapError(err, "service "+id))
	}
	return svc, nil
}

func (s *ServiceStore) ListByProject(ctx context.Context, projectID string) ([]model.Service, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE project_id = $1 ORDER BY created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		out = append(out, *svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return out, nil
}

// NameExists reports whether another service in the project already uses
// name. excludeID skips the service being renamed.
func (s *ServiceStore) NameExists(ctx context.Context, projectID, name, excludeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM services WHERE project_id = $1 AND name = $2 AND id <> $3)`,
		projectID, name, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check service name: %w", err)
	}
	return exists, nil
}

func (s *ServiceStore) SubdomainExists(ctx context.Context, subdomain string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM services WHERE subdomain = $1)`, subdomain,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check subdomain: %w", err)
	}
	return exists, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
