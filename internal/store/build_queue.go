package store

import (
	"context"
	"fmt"

	"github.com/kubidu/kubidu/internal/model"
)

// BuildQueueStore persists build queue entries.
type BuildQueueStore struct {
	db DB
}

func NewBuildQueueStore(db DB) *BuildQueueStore {
	return &BuildQueueStore{db: db}
}

func (s *BuildQueueStore) Create(ctx context.Context, e *model.BuildQueueEntry) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO build_queue (id, service_id, deployment_id, job_id, status, error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		 RETURNING created_at, updated_at`,
		e.ID, e.ServiceID, e.DeploymentID, e.JobID, e.Status, e.Error,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert build queue entry: %w", mapError(err, "build queue entry"))
	}
	return nil
}

func (s *BuildQueueStore) GetByID(ctx context.Context, id string) (*model.BuildQueueEntry, error) {
	var e model.BuildQueueEntry
	err := s.db.QueryRow(ctx,
		`SELECT id, service_id, deployment_id, job_id, status, error, created_at, updated_at
		 FROM build_queue WHERE id = $1`, id,
	).Scan(&e.ID, &e.ServiceID, &e.DeploymentID, &e.JobID, &e.Status, &e.Error, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get build queue entry %s: %w", id, mapError(err, "build queue entry "+id))
	}
	return &e, nil
}

func (s *BuildQueueStore) SetJobID(ctx context.Context, id, jobID string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE build_queue SET job_id = $2, updated_at = now() WHERE id = $1`, id, jobID)
	if err != nil {
		return fmt.Errorf("set build job id: %w", err)
	}
	return expectOne(tag, "build queue entry "+id)
}

func (s *BuildQueueStore) UpdateStatus(ctx context.Context, id string, status model.BuildQueueStatus, errMsg *string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE build_queue SET status = $2, error = $3, updated_at = now() WHERE id = $1`,
		id, status, errMsg)
	if err != nil {
		return fmt.Errorf("update build queue status: %w", mapError(err, "build queue entry"))
	}
	return expectOne(tag, "build queue entry "+id)
}
