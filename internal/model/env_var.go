package model

import "time"

// System variable keys written for every service.
const (
	EnvServiceID     = "KUBIDU_SERVICE_ID"
	EnvServiceName   = "KUBIDU_SERVICE_NAME"
	EnvPrivateDomain = "KUBIDU_PRIVATE_DOMAIN"
	EnvPublicDomain  = "KUBIDU_PUBLIC_DOMAIN"
)

// EnvironmentVariable is a key scoped to a service, or to one deployment of it.
// Value holds ciphertext when read from the store.
type EnvironmentVariable struct {
	ID           string    `json:"id" db:"id"`
	ServiceID    string    `json:"service_id" db:"service_id"`
	DeploymentID *string   `json:"deployment_id,omitempty" db:"deployment_id"`
	Key          string    `json:"key" db:"key"`
	Value        string    `json:"value" db:"value"`
	IsSecret     bool      `json:"is_secret" db:"is_secret"`
	IsSystem     bool      `json:"is_system" db:"is_system"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// EnvVarReference records that ConsumingServiceID reads Key from
// SourceServiceID's environment, optionally under Alias.
type EnvVarReference struct {
	ID                 string    `json:"id" db:"id"`
	ConsumingServiceID string    `json:"consuming_service_id" db:"consuming_service_id"`
	SourceServiceID    string    `json:"source_service_id" db:"source_service_id"`
	Key                string    `json:"key" db:"key"`
	Alias              *string   `json:"alias,omitempty" db:"alias"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// DependencyGraph is the reference graph of one project.
type DependencyGraph struct {
	Nodes []DependencyNode  `json:"nodes"`
	Edges []EnvVarReference `json:"edges"`
}

// DependencyNode is a service in a DependencyGraph.
type DependencyNode struct {
	ServiceID string  `json:"service_id"`
	Name      string  `json:"name"`
	CanvasX   float64 `json:"canvas_x"`
	CanvasY   float64 `json:"canvas_y"`
}
