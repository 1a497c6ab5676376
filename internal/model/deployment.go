package model

import "time"

// DeploymentStatus is a state in the deployment lifecycle.
type DeploymentStatus string

const (
	DeploymentPending   DeploymentStatus = "PENDING"
	DeploymentBuilding  DeploymentStatus = "BUILDING"
	DeploymentDeploying DeploymentStatus = "DEPLOYING"
	DeploymentRunning   DeploymentStatus = "RUNNING"
	DeploymentFailed    DeploymentStatus = "FAILED"
	DeploymentCrashed   DeploymentStatus = "CRASHED"
	DeploymentStopped   DeploymentStatus = "STOPPED"
)

// deploymentTransitions lists the states reachable from each state.
//
// Two edges extend the base lifecycle on purpose. PENDING→FAILED records a job
// that never reached the executor (enqueue failure or exhausted queue
// retries), since FAILED is otherwise reachable only from
// BUILDING/DEPLOYING/RUNNING. PENDING→DEPLOYING is the deploy-only path, which
// has no build step.
var deploymentTransitions = map[DeploymentStatus][]DeploymentStatus{
	DeploymentPending:   {DeploymentBuilding, DeploymentDeploying, DeploymentFailed, DeploymentStopped},
	DeploymentBuilding:  {DeploymentDeploying, DeploymentFailed, DeploymentCrashed, DeploymentStopped},
	DeploymentDeploying: {DeploymentRunning, DeploymentFailed, DeploymentCrashed, DeploymentStopped},
	DeploymentRunning:   {DeploymentFailed, DeploymentCrashed, DeploymentStopped},
	DeploymentCrashed:   {DeploymentStopped},
}

// Valid reports whether s is a known status.
func (s DeploymentStatus) Valid() bool {
	switch s {
	case DeploymentPending, DeploymentBuilding, DeploymentDeploying, DeploymentRunning,
		DeploymentFailed, DeploymentCrashed, DeploymentStopped:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s DeploymentStatus) Terminal() bool {
	return len(deploymentTransitions[s]) == 0
}

// CanTransition reports whether a deployment may move from one status to
// another. Re-reporting the current status is accepted as a no-op.
func CanTransition(from, to DeploymentStatus) bool {
	if from == to {
		return true
	}
	for _, next := range deploymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Deployment is one immutable attempt to run a service.
type Deployment struct {
	ID               string           `json:"id" db:"id"`
	ServiceID        string           `json:"service_id" db:"service_id"`
	Status           DeploymentStatus `json:"status" db:"status"`
	ImageURL         *string          `json:"image_url,omitempty" db:"image_url"`
	ImageTag         *string          `json:"image_tag,omitempty" db:"image_tag"`
	GitCommitSHA     *string          `json:"git_commit_sha,omitempty" db:"git_commit_sha"`
	GitCommitMessage *string          `json:"git_commit_message,omitempty" db:"git_commit_message"`
	GitAuthor        *string          `json:"git_author,omitempty" db:"git_author"`
	Runtime          RuntimeParams    `json:"runtime" db:"-"`
	RolledBackFrom   *string          `json:"rolled_back_from,omitempty" db:"rolled_back_from"`
	StatusMessage    *string          `json:"status_message,omitempty" db:"status_message"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// DeploymentStatusUpdate is a status transition reported by the executor.
type DeploymentStatusUpdate struct {
	DeploymentID string           `json:"deployment_id"`
	Status       DeploymentStatus `json:"status"`
	Message      *string          `json:"message,omitempty"`
	ImageURL     *string          `json:"image_url,omitempty"`
	ImageTag     *string          `json:"image_tag,omitempty"`
}
