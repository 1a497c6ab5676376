// Package api serves the Kubidu REST API: service lifecycle, deployments and
// rollback, environment variables and references, source browsing, and the
// executor status callbacks under /internal.
//
// Clients authenticate with "Authorization: Bearer <token>" or X-API-Key.
// The executor authenticates with the X-Executor-Token shared secret.
//
//	@title						Kubidu API
//	@version					1.0
//	@description				Deployment orchestration API for the Kubidu platform
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						X-API-Key
package api

//go:generate go tool swag init --dir ../.. --generalInfo internal/api/doc.go --output ../../docs/openapi --parseInternal --outputTypes json,yaml
