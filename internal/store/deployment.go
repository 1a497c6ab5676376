package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kubidu/kubidu/internal/model"
)

const deploymentColumns = `id, service_id, status, image_url, image_tag,
	git_commit_sha, git_commit_message, git_author,
	port, replicas, cpu_request, cpu_limit, memory_request, memory_limit, health_check_path, start_command,
	rolled_back_from, status_message, created_at, updated_at`

// DeploymentStore persists deployments. Rows are append-only apart from
// status fields.
type DeploymentStore struct {
	db DB
}

func NewDeploymentStore(db DB) *DeploymentStore {
	return &DeploymentStore{db: db}
}

func scanDeployment(row pgx.Row) (*model.Deployment, error) {
	var d model.Deployment
	r := &d.Runtime
	err := row.Scan(
		&d.ID, &d.ServiceID, &d.Status, &d.ImageURL, &d.ImageTag,
		&d.GitCommitSHA, &d.GitCommitMessage, &d.GitAuthor,
		&r.Port, &r.Replicas, &r.CPURequest, &r.CPULimit, &r.MemoryRequest, &r.MemoryLimit, &r.HealthCheckPath, &r.StartCommand,
		&d.RolledBackFrom, &d.StatusMessage, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DeploymentStore) Create(ctx context.Context, d *model.Deployment) error {
	r := d.Runtime
	err := s.db.QueryRow(ctx,
		`INSERT INTO deployments (id, service_id, status, image_url, image_tag,
		        git_commit_sha, git_commit_message, git_author,
		        port, replicas, cpu_request, cpu_limit, memory_request, memory_limit, health_check_path, start_command,
		        rolled_back_from, status_message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, now(), now())
		 RETURNING created_at, updated_at`,
		d.ID, d.ServiceID, d.Status, d.ImageURL, d.ImageTag,
		d.GitCommitSHA, d.GitCommitMessage, d.GitAuthor,
		r.Port, r.Replicas, r.CPURequest, r.CPULimit, r.MemoryRequest, r.MemoryLimit, r.HealthCheckPath, r.StartCommand,
		d.RolledBackFrom, d.StatusMessage,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert deployment: %w", mapError(err, "deployment"))
	}
	return nil
}

func (s *DeploymentStore) GetByID(ctx context.Context, id string) (*model.Deployment, error) {
	d, err := scanDeployment(s.db.QueryRow(ctx, `SELECT `+deploymentColumns+` FROM deployments WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get deployment %s: %w", id, mapError(err, "deployment "+id))
	}
	return d, nil
}

// ListByService returns deployments newest first. limit <= 0 means no limit.
func (s *DeploymentStore) ListByService(ctx context.Context, serviceID string, limit int) ([]model.Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployments WHERE service_id = $1 ORDER BY created_at DESC, id DESC`
	args := []any{serviceID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	defer rows.Close()

	var out []model.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployments: %w", err)
	}
	return out, nil
}

// Latest returns the newest deployment of a service, or ErrNotFound.
func (s *DeploymentStore) LatestWithImage(ctx context.Context, serviceID string) (*model.Deployment, error) {
	d, err := scanDeployment(s.db.QueryRow(ctx,
		`SELECT `+deploymentColumns+` FROM deployments
		 WHERE service_id = $1 AND image_url IS NOT NULL
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		serviceID))
	if err != nil {
		return nil, fmt.Errorf("latest deployment: %w", mapError(err, "deployment for service "+serviceID))
	}
	return d, nil
}

// UpdateStatus records a status change. Image fields are only overwritten
// when the update carries them.
func (s *DeploymentStore) UpdateStatus(ctx context.Context, u model.DeploymentStatusUpdate) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE deployments
		 SET status = $2, status_message = COALESCE($3, status_message),
		     image_url = COALESCE($4, image_url), image_tag = COALESCE($5, image_tag),
		     updated_at = now()
		 WHERE id = $1`,
		u.DeploymentID, u.Status, u.Message, u.ImageURL, u.ImageTag,
	)
	if err != nil {
		return fmt.Errorf("update deployment status: %w", mapError(err, "deployment"))
	}
	return expectOne(tag, "deployment "+u.DeploymentID)
}
