package model

import "time"

// BuildQueueStatus is the state of a queued build job.
type BuildQueueStatus string

const (
	BuildQueued    BuildQueueStatus = "QUEUED"
	BuildRunning   BuildQueueStatus = "RUNNING"
	BuildSucceeded BuildQueueStatus = "SUCCEEDED"
	BuildFailed    BuildQueueStatus = "FAILED"
)

// Valid reports whether s is a known build queue status.
func (s BuildQueueStatus) Valid() bool {
	switch s {
	case BuildQueued, BuildRunning, BuildSucceeded, BuildFailed:
		return true
	}
	return false
}

// Finished reports whether the build reached an outcome.
func (s BuildQueueStatus) Finished() bool {
	return s == BuildSucceeded || s == BuildFailed
}

// CanTransitionTo reports whether an entry in s may move to next. Entries
// only move forward; re-reporting the current status is allowed.
func (s BuildQueueStatus) CanTransitionTo(next BuildQueueStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case BuildQueued:
		return next == BuildRunning || next == BuildFailed
	case BuildRunning:
		return next.Finished()
	}
	return false
}

// BuildQueueEntry correlates a queued build job with the deployment it produces.
type BuildQueueEntry struct {
	ID           string           `json:"id" db:"id"`
	ServiceID    string           `json:"service_id" db:"service_id"`
	DeploymentID string           `json:"deployment_id" db:"deployment_id"`
	JobID        *string          `json:"job_id,omitempty" db:"job_id"`
	Status       BuildQueueStatus `json:"status" db:"status"`
	Error        *string          `json:"error,omitempty" db:"error"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}
