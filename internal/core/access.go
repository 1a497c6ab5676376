package core

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/model"
)

// Role sets accepted by the guard.
var (
	MutateRoles   = []model.Role{model.RoleAdmin, model.RoleMember}
	ReadRoles     = []model.Role{model.RoleAdmin, model.RoleMember, model.RoleDeployer}
	RollbackRoles = []model.Role{model.RoleAdmin, model.RoleMember, model.RoleDeployer}
)

// CheckRole reports whether role is one of allowed.
func CheckRole(role model.Role, allowed []model.Role) bool {
	return slices.Contains(allowed, role)
}

// AccessPolicyGuard decides whether an actor may act on a workspace resource.
// It has no side effects.
type AccessPolicyGuard struct {
	workspaces WorkspaceRepository
	services   ServiceRepository
}

func NewAccessPolicyGuard(workspaces WorkspaceRepository, services ServiceRepository) *AccessPolicyGuard {
	return &AccessPolicyGuard{workspaces: workspaces, services: services}
}

// Authorize returns the actor's membership in the workspace. It fails with
// ErrNotFound when the workspace does not exist and ErrForbidden when the actor
// is not a member or holds a role outside allowed.
func (g *AccessPolicyGuard) Authorize(ctx context.Context, actorID, workspaceID string, allowed []model.Role) (*model.WorkspaceMember, error) {
	if actorID == "" {
		return nil, errs.Forbidden("no authenticated actor")
	}
	if _, err := g.workspaces.GetWorkspace(ctx, workspaceID); err != nil {
		return nil, err
	}

	member, err := g.workspaces.GetMember(ctx, workspaceID, actorID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.Forbidden("not a member of workspace %s", workspaceID)
	}
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}

	if !CheckRole(member.Role, allowed) {
		return nil, errs.Forbidden("role %s is not allowed to perform this action", member.Role)
	}
	return member, nil
}

// AuthorizeProject resolves the project's workspace and authorizes against it.
func (g *AccessPolicyGuard) AuthorizeProject(ctx context.Context, actorID, projectID string, allowed []model.Role) (*model.Project, error) {
	project, err := g.workspaces.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := g.Authorize(ctx, actorID, project.WorkspaceID, allowed); err != nil {
		return nil, err
	}
	return project, nil
}

// AuthorizeService resolves the service's project and authorizes against its
// workspace.
func (g *AccessPolicyGuard) AuthorizeService(ctx context.Context, actorID, serviceID string, allowed []model.Role) (*model.Service, *model.Project, error) {
	svc, err := g.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, nil, err
	}
	project, err := g.AuthorizeProject(ctx, actorID, svc.ProjectID, allowed)
	if err != nil {
		return nil, nil, err
	}
	return svc, project, nil
}
