package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/model"
)

const envVarColumns = `id, service_id, deployment_id, key, value, is_secret, is_system, created_at, updated_at`

// EnvVarStore persists environment variables. Values are stored as given;
// encryption happens in the core.
type EnvVarStore struct {
	db DB
}

func NewEnvVarStore(db DB) *EnvVarStore {
	return &EnvVarStore{db: db}
}

func scanEnvVar(row pgx.Row) (*model.EnvironmentVariable, error) {
	var v model.EnvironmentVariable
	if err := row.Scan(&v.ID, &v.ServiceID, &v.DeploymentID, &v.Key, &v.Value,
		&v.IsSecret, &v.IsSystem, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// FindByKey returns the service-level variable (no deployment) with key.
func (s *EnvVarStore) FindByKey(ctx context.Context, serviceID, key string) (*model.EnvironmentVariable, error) {
	v, err := scanEnvVar(s.db.QueryRow(ctx,
		`SELECT `+envVarColumns+` FROM environment_variables
		 WHERE service_id = $1 AND deployment_id IS NULL AND key = $2`, serviceID, key))
	if err != nil {
		return nil, fmt.Errorf("find env var %s: %w", key, mapError(err, "env var "+key))
	}
	return v, nil
}

func (s *EnvVarStore) GetByID(ctx context.Context, id string) (*model.EnvironmentVariable, error) {
	v, err := scanEnvVar(s.db.QueryRow(ctx,
		`SELECT `+envVarColumns+` FROM environment_variables WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get env var %s: %w", id, mapError(err, "env var "+id))
	}
	return v, nil
}

// Upsert writes a service-level variable keyed by (service, key). Concurrent
// writers resolve last-write-wins. A user write never overwrites a system
// variable and reports ErrForbidden.
func (s *EnvVarStore) Upsert(ctx context.Context, v *model.EnvironmentVariable) error {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO environment_variables (`+envVarColumns+`)
		 VALUES ($1, $2, NULL, $3, $4, $5, $6, now(), now())
		 ON CONFLICT (service_id, key) WHERE deployment_id IS NULL
		 DO UPDATE SET value = EXCLUDED.value, is_secret = EXCLUDED.is_secret, updated_at = now()
		 WHERE environment_variables.is_system = EXCLUDED.is_system`,
		v.ID, v.ServiceID, v.Key, v.Value, v.IsSecret, v.IsSystem,
	)
	if err != nil {
		return fmt.Errorf("upsert env var %s: %w", v.Key, mapError(err, "env var "+v.Key))
	}
	if tag.RowsAffected() == 0 {
		return errs.Forbidden("%s is a system variable", v.Key)
	}
	return nil
}

// ListByService returns the service-level variables ordered by key.
func (s *EnvVarStore) ListByService(ctx context.Context, serviceID string) ([]model.EnvironmentVariable, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+envVarColumns+` FROM environment_variables
		 WHERE service_id = $1 AND deployment_id IS NULL ORDER BY key`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("list env vars: %w", err)
	}
	defer rows.Close()

	var out []model.EnvironmentVariable
	for rows.Next() {
		v, err := scanEnvVar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan env var: %w", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate env vars: %w", err)
	}
	return out, nil
}

func (s *EnvVarStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM environment_variables WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete env var: %w", err)
	}
	return expectOne(tag, "env var "+id)
}

// EnvVarReferenceStore persists reference edges between services.
type EnvVarReferenceStore struct {
	db DB
}

func NewEnvVarReferenceStore(db DB) *EnvVarReferenceStore {
	return &EnvVarReferenceStore{db: db}
}

const referenceColumns = `id, consuming_service_id, source_service_id, key, alias, created_at`

func (s *EnvVarReferenceStore) Create(ctx context.Context, r *model.EnvVarReference) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO env_var_references (id, consuming_service_id, source_service_id, key, alias, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 RETURNING created_at`,
		r.ID, r.ConsumingServiceID, r.SourceServiceID, r.Key, r.Alias,
	).Scan(&r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert env var reference: %w", mapError(err, "env var reference"))
	}
	return nil
}

func (s *EnvVarReferenceStore) GetByID(ctx context.Context, id string) (*model.EnvVarReference, error) {
	var r model.EnvVarReference
	err := s.db.QueryRow(ctx,
		`SELECT `+referenceColumns+` FROM env_var_references WHERE id = $1`, id,
	).Scan(&r.ID, &r.ConsumingServiceID, &r.SourceServiceID, &r.Key, &r.Alias, &r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get env var reference %s: %w", id, mapError(err, "env var reference "+id))
	}
	return &r, nil
}

func (s *EnvVarReferenceStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM env_var_references WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete env var reference: %w", err)
	}
	return expectOne(tag, "env var reference "+id)
}

// ListBySource returns the edges whose source is serviceID, i.e. the
// services consuming its variables.
func (s *EnvVarReferenceStore) ListBySource(ctx context.Context, serviceID string) ([]model.EnvVarReference, error) {
	return s.list(ctx,
		`SELECT `+referenceColumns+` FROM env_var_references WHERE source_service_id = $1 ORDER BY created_at`,
		serviceID)
}

// ListByProject returns every edge whose consumer belongs to the project.
func (s *EnvVarReferenceStore) ListByProject(ctx context.Context, projectID string) ([]model.EnvVarReference, error) {
	return s.list(ctx,
		`SELECT r.id, r.consuming_service_id, r.source_service_id, r.key, r.alias, r.created_at
		 FROM env_var_references r
		 JOIN services s ON s.id = r.consuming_service_id
		 WHERE s.project_id = $1 ORDER BY r.created_at`,
		projectID)
}

func (s *EnvVarReferenceStore) list(ctx context.Context, query string, args ...any) ([]model.EnvVarReference, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list env var references: %w", err)
	}
	defer rows.Close()

	var out []model.EnvVarReference
	for rows.Next() {
		var r model.EnvVarReference
		if err := rows.Scan(&r.ID, &r.ConsumingServiceID, &r.SourceServiceID, &r.Key, &r.Alias, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan env var reference: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate env var references: %w", err)
	}
	return out, nil
}
