package core

// Deps are the collaborators the core is built from.
type Deps struct {
	Services      ServiceRepository
	Deployments   DeploymentRepository
	BuildQueue    BuildQueueRepository
	EnvVars       EnvVarRepository
	References    EnvVarReferenceRepository
	Workspaces    WorkspaceRepository
	Installations InstallationRepository
	// Source may be nil when no source provider is configured; repository
	// auto-deploy and browsing then fail with ErrExternalDependency.
	Source       SourceProvider
	Queue        JobQueue
	Cipher       Cipher
	PublicDomain string
}

type Services struct {
	Guard        *AccessPolicyGuard
	Allocator    *SubdomainAllocator
	Graph        *EnvVarGraph
	Dispatcher   *BuildQueueDispatcher
	Orchestrator *DeploymentOrchestrator
	Notifier     *WorkspaceNotifier
	Service      *ServiceService
	Variable     *VariableService
	Source       *SourceService
}

func NewServices(d Deps) *Services {
	guard := NewAccessPolicyGuard(d.Workspaces, d.Services)
	allocator := NewSubdomainAllocator(d.Services)
	graph := NewEnvVarGraph(d.EnvVars, d.References, d.Services, d.Cipher)
	dispatcher := NewBuildQueueDispatcher(d.BuildQueue, d.Queue)
	notifier := NewWorkspaceNotifier(d.Queue)
	orchestrator := NewDeploymentOrchestrator(d.Deployments, d.Installations, d.Source, dispatcher, guard, notifier)

	return &Services{
		Guard:        guard,
		Allocator:    allocator,
		Graph:        graph,
		Dispatcher:   dispatcher,
		Orchestrator: orchestrator,
		Notifier:     notifier,
		Service:      NewServiceService(d.Services, guard, allocator, graph, orchestrator, notifier, d.PublicDomain),
		Variable:     NewVariableService(guard, graph, d.References),
		Source:       NewSourceService(d.Installations, d.Source),
	}
}
