package model

import "time"

// Workflow names the queue workers register.
const (
	BuildServiceWorkflowName    = "BuildServiceWorkflow"
	DeployServiceWorkflowName   = "DeployServiceWorkflow"
	NotifyWorkspaceWorkflowName = "NotifyWorkspaceWorkflow"
)

// BackoffType selects how retry delays grow.
type BackoffType string

const (
	BackoffExponential BackoffType = "exponential"
	BackoffFixed       BackoffType = "fixed"
)

// Backoff describes the delay between attempts.
type Backoff struct {
	Type         BackoffType   `json:"type"`
	InitialDelay time.Duration `json:"initial_delay"`
}

// RetryPolicy is attached to every job handed to the queue.
type RetryPolicy struct {
	Attempts         int     `json:"attempts"`
	Backoff          Backoff `json:"backoff"`
	RetainOnComplete bool    `json:"retain_on_complete"`
	RetainOnFail     bool    `json:"retain_on_fail"`
}

// BuildRetryPolicy is the policy for build and deploy jobs: three attempts,
// exponential backoff from five seconds, finished jobs kept for inspection.
func BuildRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:         3,
		Backoff:          Backoff{Type: BackoffExponential, InitialDelay: 5000 * time.Millisecond},
		RetainOnComplete: true,
		RetainOnFail:     true,
	}
}

// Job is a unit of work for the queue. Name selects the worker routine, ID
// makes the submission idempotent and Payload is its single argument.
type Job struct {
	Name    string
	ID      string
	Payload any
}

// BuildJob is the payload consumed by the external build executor. The JSON
// field names are part of the executor contract.
type BuildJob struct {
	BuildQueueID    string `json:"buildQueueId"`
	ProjectID       string `json:"projectId"`
	ServiceID       string `json:"serviceId"`
	DeploymentID    string `json:"deploymentId"`
	RepositoryURL   string `json:"repositoryUrl"`
	Branch          string `json:"branch"`
	CommitSHA       string `json:"commitSha"`
	CommitMessage   string `json:"commitMessage"`
	Author          string `json:"author"`
	InstallationRef string `json:"installationRef"`
	RepoFullName    string `json:"repoFullName"`
}

// DeployJob asks the executor to run an already-built artifact.
type DeployJob struct {
	ProjectID    string        `json:"projectId"`
	ServiceID    string        `json:"serviceId"`
	DeploymentID string        `json:"deploymentId"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	ImageTag     string        `json:"imageTag,omitempty"`
	CommitSHA    string        `json:"commitSha,omitempty"`
	Subdomain    string        `json:"subdomain"`
	Runtime      RuntimeParams `json:"runtime"`
}

// NotifyRetryPolicy is used for workspace notifications. Delivery is best
// effort, so history is not retained.
func NotifyRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 5,
		Backoff:  Backoff{Type: BackoffExponential, InitialDelay: 2 * time.Second},
	}
}
