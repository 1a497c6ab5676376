package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/logging"
	"github.com/kubidu/kubidu/internal/model"
	"github.com/kubidu/kubidu/internal/platform"
)

// maxSubdomainRetries bounds re-allocation when another writer claims the
// allocated subdomain before our insert.
const maxSubdomainRetries = 3

// ServicePatch holds the fields of an update. Nil fields are left unchanged.
// An empty StartCommand clears it.
type ServicePatch struct {
	Name            *string
	Branch          *string
	ImageURL        *string
	ImageTag        *string
	Port            *int
	Replicas        *int
	CPURequest      *string
	CPULimit        *string
	MemoryRequest   *string
	MemoryLimit     *string
	HealthCheckPath *string
	StartCommand    *string
	Subdomain       *string
	AutoDeploy      *bool
	CanvasX         *float64
	CanvasY         *float64
}

// ServiceService is the service lifecycle entry point. Every call passes the
// AccessPolicyGuard before touching state. Conflicts abort the call; side
// effects after the write (variables, deployments, notifications) are best
// effort.
type ServiceService struct {
	services     ServiceRepository
	guard        *AccessPolicyGuard
	allocator    *SubdomainAllocator
	graph        *EnvVarGraph
	orchestrator *DeploymentOrchestrator
	notifier     Notifier
	publicDomain string
}

func NewServiceService(
	services ServiceRepository,
	guard *AccessPolicyGuard,
	allocator *SubdomainAllocator,
	graph *EnvVarGraph,
	orchestrator *DeploymentOrchestrator,
	notifier Notifier,
	publicDomain string,
) *ServiceService {
	return &ServiceService{
		services:     services,
		guard:        guard,
		allocator:    allocator,
		graph:        graph,
		orchestrator: orchestrator,
		notifier:     notifier,
		publicDomain: publicDomain,
	}
}

func (s *ServiceService) publicURL(subdomain string) *string {
	if subdomain == "" || s.publicDomain == "" {
		return nil
	}
	u := platform.PublicURL(subdomain, s.publicDomain)
	return &u
}

func validateSource(svc *model.Service) error {
	hasRepo := svc.RepositoryURL != nil || svc.RepoFullName != nil || svc.InstallationRef != nil
	hasImage := svc.ImageURL != nil
	switch svc.SourceKind {
	case model.SourceRepository:
		if hasImage || svc.ImageTag != nil {
			return errs.Invalid("repository services cannot set image fields")
		}
		if !hasRepo {
			return errs.Invalid("repository services need a repository url or full name")
		}
	case model.SourceImage:
		if hasRepo || svc.Branch != nil {
			return errs.Invalid("image services cannot set repository fields")
		}
		if !hasImage || *svc.ImageURL == "" {
			return errs.Invalid("image services need an image url")
		}
	default:
		return errs.Invalid("unknown source kind %q", svc.SourceKind)
	}
	return nil
}

// Create registers a service in a project and starts its first deployment
// when the source allows it. A requested subdomain must be free; otherwise
// one is allocated.
func (s *ServiceService) Create(ctx context.Context, actorID string, svc *model.Service) (*model.Service, error) {
	ctx = logging.WithOperation(ctx, "create_service", "project_id", svc.ProjectID, "actor_id", actorID)

	project, err := s.guard.AuthorizeProject(ctx, actorID, svc.ProjectID, MutateRoles)
	if err != nil {
		return nil, err
	}
	if err := validateSource(svc); err != nil {
		return nil, err
	}

	exists, err := s.services.NameExists(ctx, svc.ProjectID, svc.Name, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errs.Conflict("service %q already exists in project", svc.Name)
	}

	requested := svc.Subdomain != ""
	if requested {
		if err := s.checkRequestedSubdomain(ctx, svc.Subdomain); err != nil {
			return nil, err
		}
	}

	svc.ID = platform.NewID()
	svc.Status = model.StatusActive
	for attempt := 0; ; attempt++ {
		if !requested {
			sub, err := s.allocator.Allocate(ctx, svc.Name, project.Slug)
			if err != nil {
				return nil, fmt.Errorf("allocate subdomain: %w", err)
			}
			svc.Subdomain = sub
		}
		svc.PublicURL = s.publicURL(svc.Subdomain)

		err := s.services.Create(ctx, svc)
		if err == nil {
			break
		}
		if errors.Is(err, errs.ErrSubdomainTaken) && !requested && attempt+1 < maxSubdomainRetries {
			zerolog.Ctx(ctx).Info().Str("subdomain", svc.Subdomain).Msg("subdomain claimed concurrently, reallocating")
			continue
		}
		return nil, err
	}

	ctx = logging.WithOperation(ctx, "create_service", "service_id", svc.ID)
	zerolog.Ctx(ctx).Info().Str("subdomain", svc.Subdomain).Msg("service created")

	nonFatal(ctx, "upsert_system_variables", s.graph.UpsertSystemVariables(ctx, svc.ID, svc.Name, svc.PublicURL))

	_, err = s.orchestrator.OnServiceCreated(ctx, project, svc, actorID)
	nonFatal(ctx, "initial_deployment", err)

	notify(ctx, s.notifier, model.EventServiceCreated, project, svc, "", actorID, "")
	return svc, nil
}

func (s *ServiceService) checkRequestedSubdomain(ctx context.Context, subdomain string) error {
	if !ValidSubdomain(subdomain) {
		return errs.Invalid("subdomain %q is not a valid DNS label", subdomain)
	}
	taken, err := s.services.SubdomainExists(ctx, subdomain)
	if err != nil {
		return err
	}
	if taken {
		return errs.Conflict("subdomain %q is already in use", subdomain)
	}
	return nil
}

// Update applies patch. Changing the start command or the subdomain queues
// a redeployment; other changes apply to the next deployment.
func (s *ServiceService) Update(ctx context.Context, actorID, serviceID string, patch ServicePatch) (*model.Service, error) {
	ctx = logging.WithOperation(ctx, "update_service", "service_id", serviceID, "actor_id", actorID)

	before, project, err := s.guard.AuthorizeService(ctx, actorID, serviceID, MutateRoles)
	if err != nil {
		return nil, err
	}

	after := *before
	applyPatch(&after, patch)
	if err := validateSource(&after); err != nil {
		return nil, err
	}

	if after.Name != before.Name {
		exists, err := s.services.NameExists(ctx, after.ProjectID, after.Name, after.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errs.Conflict("service %q already exists in project", after.Name)
		}
	}
	if after.Subdomain != before.Subdomain {
		if err := s.checkRequestedSubdomain(ctx, after.Subdomain); err != nil {
			return nil, err
		}
		after.PublicURL = s.publicURL(after.Subdomain)
	}

	if err := s.services.Update(ctx, &after); err != nil {
		return nil, err
	}

	if after.Name != before.Name || !equalStringPtr(after.PublicURL, before.PublicURL) {
		nonFatal(ctx, "upsert_system_variables", s.graph.UpsertSystemVariables(ctx, after.ID, after.Name, after.PublicURL))
	}

	_, err = s.orchestrator.OnServiceUpdated(ctx, project, before, &after, actorID)
	nonFatal(ctx, "redeploy", err)

	notify(ctx, s.notifier, model.EventServiceUpdated, project, &after, "", actorID, "")
	return &after, nil
}

func applyPatch(svc *model.Service, p ServicePatch) {
	if p.Name != nil {
		svc.Name = *p.Name
	}
	if p.Branch != nil {
		svc.Branch = p.Branch
	}
	if p.ImageURL != nil {
		svc.ImageURL = p.ImageURL
	}
	if p.ImageTag != nil {
		svc.ImageTag = p.ImageTag
	}
	d := &svc.Defaults
	if p.Port != nil {
		d.Port = *p.Port
	}
	if p.Replicas != nil {
		d.Replicas = *p.Replicas
	}
	if p.CPURequest != nil {
		d.CPURequest = *p.CPURequest
	}
	if p.CPULimit != nil {
		d.CPULimit = *p.CPULimit
	}
	if p.MemoryRequest != nil {
		d.MemoryRequest = *p.MemoryRequest
	}
	if p.MemoryLimit != nil {
		d.MemoryLimit = *p.MemoryLimit
	}
	if p.HealthCheckPath != nil {
		d.HealthCheckPath = *p.HealthCheckPath
	}
	if p.StartCommand != nil {
		if *p.StartCommand == "" {
			d.StartCommand = nil
		} else {
			cmd := *p.StartCommand
			d.StartCommand = &cmd
		}
	}
	if p.Subdomain != nil {
		svc.Subdomain = *p.Subdomain
	}
	if p.AutoDeploy != nil {
		svc.AutoDeploy = *p.AutoDeploy
	}
	if p.CanvasX != nil {
		svc.CanvasX = *p.CanvasX
	}
	if p.CanvasY != nil {
		svc.CanvasY = *p.CanvasY
	}
}

func (s *ServiceService) Delete(ctx context.Context, actorID, serviceID string) error {
	ctx = logging.WithOperation(ctx, "delete_service", "service_id", serviceID, "actor_id", actorID)

	svc, project, err := s.guard.AuthorizeService(ctx, actorID, serviceID, MutateRoles)
	if err != nil {
		return err
	}
	if err := s.services.Delete(ctx, serviceID); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Msg("service deleted")

	notify(ctx, s.notifier, model.EventServiceDeleted, project, svc, "", actorID, "")
	return nil
}

func (s *ServiceService) Get(ctx context.Context, actorID, serviceID string) (*model.Service, error) {
	svc, _, err := s.guard.AuthorizeService(ctx, actorID, serviceID, ReadRoles)
	return svc, err
}

func (s *ServiceService) List(ctx context.Context, actorID, projectID string) ([]model.Service, error) {
	if _, err := s.guard.AuthorizeProject(ctx, actorID, projectID, ReadRoles); err != nil {
		return nil, err
	}
	return s.services.ListByProject(ctx, projectID)
}
