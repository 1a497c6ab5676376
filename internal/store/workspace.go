package store

import (
	"context"
	"fmt"

	"github.com/kubidu/kubidu/internal/model"
)

// WorkspaceStore reads workspaces, projects and memberships. These records
// are owned by the account system; the core only reads them.
type WorkspaceStore struct {
	db DB
}

func NewWorkspaceStore(db DB) *WorkspaceStore {
	return &WorkspaceStore{db: db}
}

func (s *WorkspaceStore) GetWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	var w model.Workspace
	err := s.db.QueryRow(ctx,
		`SELECT id, name, created_at FROM workspaces WHERE id = $1`, id,
	).Scan(&w.ID, &w.Name, &w.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get workspace %s: %w", id, mapError(err, "workspace "+id))
	}
	return &w, nil
}

func (s *WorkspaceStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := s.db.QueryRow(ctx,
		`SELECT id, workspace_id, name, slug, created_at FROM projects WHERE id = $1`, id,
	).Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.Slug, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, mapError(err, "project "+id))
	}
	return &p, nil
}

func (s *WorkspaceStore) GetMember(ctx context.Context, workspaceID, userID string) (*model.WorkspaceMember, error) {
	var m model.WorkspaceMember
	err := s.db.QueryRow(ctx,
		`SELECT workspace_id, user_id, role, created_at FROM workspace_members
		 WHERE workspace_id = $1 AND user_id = $2`, workspaceID, userID,
	).Scan(&m.WorkspaceID, &m.UserID, &m.Role, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get workspace member: %w", mapError(err, "workspace member"))
	}
	return &m, nil
}

// InstallationStore reads GitHub App installations.
type InstallationStore struct {
	db DB
}

func NewInstallationStore(db DB) *InstallationStore {
	return &InstallationStore{db: db}
}

func (s *InstallationStore) GetByID(ctx context.Context, id string) (*model.GitHubInstallation, error) {
	var i model.GitHubInstallation
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, installation_id, account_login, created_at
		 FROM github_installations WHERE id = $1`, id,
	).Scan(&i.ID, &i.UserID, &i.InstallationID, &i.AccountLogin, &i.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get installation %s: %w", id, mapError(err, "installation "+id))
	}
	return &i, nil
}

// APITokenStore resolves API tokens by hash.
type APITokenStore struct {
	db DB
}

func NewAPITokenStore(db DB) *APITokenStore {
	return &APITokenStore{db: db}
}

func (s *APITokenStore) GetByHash(ctx context.Context, hash string) (*model.APIToken, error) {
	var t model.APIToken
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, name, token_hash, created_at, expires_at
		 FROM api_tokens WHERE token_hash = $1`, hash,
	).Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("get api token: %w", mapError(err, "api token"))
	}
	return &t, nil
}

// Create stores a token. Only t.TokenHash is persisted, never the secret.
func (s *APITokenStore) Create(ctx context.Context, t *model.APIToken) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO api_tokens (id, user_id, name, token_hash, expires_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		t.ID, t.UserID, t.Name, t.TokenHash, t.ExpiresAt,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert api token: %w", mapError(err, "api token"))
	}
	return nil
}
