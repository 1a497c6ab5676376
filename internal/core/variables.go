package core

import (
	"context"

	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/model"
)

// VariableService exposes the EnvVarGraph to authenticated actors.
type VariableService struct {
	guard *AccessPolicyGuard
	graph *EnvVarGraph
	refs  EnvVarReferenceRepository
}

func NewVariableService(guard *AccessPolicyGuard, graph *EnvVarGraph, refs EnvVarReferenceRepository) *VariableService {
	return &VariableService{guard: guard, graph: graph, refs: refs}
}

func (s *VariableService) List(ctx context.Context, actorID, serviceID string) ([]model.EnvironmentVariable, error) {
	if _, _, err := s.guard.AuthorizeService(ctx, actorID, serviceID, ReadRoles); err != nil {
		return nil, err
	}
	return s.graph.ListVariables(ctx, serviceID)
}

func (s *VariableService) Set(ctx context.Context, actorID, serviceID, key, value string, isSecret bool) error {
	if _, _, err := s.guard.AuthorizeService(ctx, actorID, serviceID, MutateRoles); err != nil {
		return err
	}
	return s.graph.SetVariable(ctx, serviceID, key, value, isSecret)
}

func (s *VariableService) Delete(ctx context.Context, actorID, serviceID, variableID string) error {
	if _, _, err := s.guard.AuthorizeService(ctx, actorID, serviceID, MutateRoles); err != nil {
		return err
	}
	return s.graph.DeleteVariable(ctx, serviceID, variableID)
}

func (s *VariableService) AddReference(ctx context.Context, actorID, consumingServiceID, sourceServiceID, key string, alias *string) (*model.EnvVarReference, error) {
	if _, _, err := s.guard.AuthorizeService(ctx, actorID, consumingServiceID, MutateRoles); err != nil {
		return nil, err
	}
	return s.graph.AddReference(ctx, consumingServiceID, sourceServiceID, key, alias)
}

// RemoveReference deletes an edge of the consuming service.
func (s *VariableService) RemoveReference(ctx context.Context, actorID, consumingServiceID, referenceID string) error {
	if _, _, err := s.guard.AuthorizeService(ctx, actorID, consumingServiceID, MutateRoles); err != nil {
		return err
	}
	ref, err := s.refs.GetByID(ctx, referenceID)
	if err != nil {
		return err
	}
	if ref.ConsumingServiceID != consumingServiceID {
		return errs.NotFound("reference %s for service %s", referenceID, consumingServiceID)
	}
	return s.graph.RemoveReference(ctx, referenceID)
}

func (s *VariableService) Impact(ctx context.Context, actorID, serviceID string) ([]string, error) {
	if _, _, err := s.guard.AuthorizeService(ctx, actorID, serviceID, ReadRoles); err != nil {
		return nil, err
	}
	return s.graph.ImpactOf(ctx, serviceID)
}

func (s *VariableService) ProjectGraph(ctx context.Context, actorID, projectID string) (*model.DependencyGraph, error) {
	if _, err := s.guard.AuthorizeProject(ctx, actorID, projectID, ReadRoles); err != nil {
		return nil, err
	}
	return s.graph.ProjectGraph(ctx, projectID)
}
