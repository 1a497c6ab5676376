package core

import (
	"context"

	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/model"
)

// SourceService lets a user browse repositories of their own installations.
type SourceService struct {
	installations InstallationRepository
	source        SourceProvider
}

func NewSourceService(installations InstallationRepository, source SourceProvider) *SourceService {
	return &SourceService{installations: installations, source: source}
}

func (s *SourceService) installation(ctx context.Context, actorID, installationRef string) (*model.GitHubInstallation, error) {
	if s.source == nil {
		return nil, errs.WrapMsg(errs.ErrExternalDependency, "source provider is not configured", nil)
	}
	inst, err := s.installations.GetByID(ctx, installationRef)
	if err != nil {
		return nil, err
	}
	if inst.UserID != actorID {
		return nil, errs.Forbidden("installation %s belongs to another user", installationRef)
	}
	return inst, nil
}

func (s *SourceService) ListRepositories(ctx context.Context, actorID, installationRef string, page, perPage int) ([]model.Repository, error) {
	inst, err := s.installation(ctx, actorID, installationRef)
	if err != nil {
		return nil, err
	}
	return s.source.ListRepositories(ctx, inst.InstallationID, page, perPage)
}

func (s *SourceService) ListBranches(ctx context.Context, actorID, installationRef, repoFullName string) ([]model.Branch, error) {
	inst, err := s.installation(ctx, actorID, installationRef)
	if err != nil {
		return nil, err
	}
	return s.source.ListBranches(ctx, inst.InstallationID, repoFullName)
}

func (s *SourceService) GetRepository(ctx context.Context, actorID, installationRef, repoFullName string) (*model.Repository, error) {
	inst, err := s.installation(ctx, actorID, installationRef)
	if err != nil {
		return nil, err
	}
	return s.source.GetRepository(ctx, inst.InstallationID, repoFullName)
}
