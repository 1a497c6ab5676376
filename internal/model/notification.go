package model

import "time"

// Workspace event types delivered by the notification fanout.
const (
	EventServiceCreated     = "service.created"
	EventServiceUpdated     = "service.updated"
	EventServiceDeleted     = "service.deleted"
	EventDeploymentCreated  = "deployment.created"
	EventDeploymentRollback = "deployment.rollback"
)

// WorkspaceEvent is a best-effort notification about a workspace resource.
type WorkspaceEvent struct {
	Type         string    `json:"type"`
	WorkspaceID  string    `json:"workspace_id"`
	ProjectID    string    `json:"project_id,omitempty"`
	ServiceID    string    `json:"service_id,omitempty"`
	ServiceName  string    `json:"service_name,omitempty"`
	DeploymentID string    `json:"deployment_id,omitempty"`
	ActorID      string    `json:"actor_id,omitempty"`
	Message      string    `json:"message,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
