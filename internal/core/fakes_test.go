package core

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/model"
)

// ---------- in-memory repositories ----------

type memServiceRepo struct {
	mu   sync.Mutex
	rows map[string]model.Service
}

func newMemServiceRepo() *memServiceRepo {
	return &memServiceRepo{rows: map[string]model.Service{}}
}

func (r *memServiceRepo) Create(_ context.Context, svc *model.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if svc.Subdomain != "" && s.Subdomain == svc.Subdomain {
			return errs.ErrSubdomainTaken
		}
		if s.ProjectID == svc.ProjectID && s.Name == svc.Name {
			return errs.Conflict("service name already exists in project")
		}
	}
	svc.CreatedAt = time.Now()
	r.rows[svc.ID] = *svc
	return nil
}

func (r *memServiceRepo) Update(_ context.Context, svc *model.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[svc.ID]; !ok {
		return errs.NotFound("service %s", svc.ID)
	}
	for id, s := range r.rows {
		if id != svc.ID && svc.Subdomain != "" && s.Subdomain == svc.Subdomain {
			return errs.ErrSubdomainTaken
		}
	}
	r.rows[svc.ID] = *svc
	return nil
}

func (r *memServiceRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return errs.NotFound("service %s", id)
	}
	delete(r.rows, id)
	return nil
}

func (r *memServiceRepo) GetByID(_ context.Context, id string) (*model.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, errs.NotFound("service %s", id)
	}
	return &s, nil
}

func (r *memServiceRepo) ListByProject(_ context.Context, projectID string) ([]model.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Service
	for _, s := range r.rows {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memServiceRepo) NameExists(_ context.Context, projectID, name, excludeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.rows {
		if id != excludeID && s.ProjectID == projectID && s.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *memServiceRepo) SubdomainExists(_ context.Context, subdomain string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.Subdomain == subdomain {
			return true, nil
		}
	}
	return false, nil
}

func (r *memServiceRepo) put(svc model.Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[svc.ID] = svc
}

type memDeploymentRepo struct {
	mu   sync.Mutex
	seq  int
	rows []model.Deployment
}

func (r *memDeploymentRepo) Create(_ context.Context, d *model.Deployment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	d.CreatedAt = time.Unix(int64(r.seq), 0)
	d.UpdatedAt = d.CreatedAt
	r.rows = append(r.rows, *d)
	return nil
}

func (r *memDeploymentRepo) GetByID(_ context.Context, id string) (*model.Deployment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.rows {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, errs.NotFound("deployment %s", id)
}

func (r *memDeploymentRepo) ListByService(_ context.Context, serviceID string, limit int) ([]model.Deployment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Deployment
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].ServiceID == serviceID {
			out = append(out, r.rows[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memDeploymentRepo) LatestWithImage(ctx context.Context, serviceID string) (*model.Deployment, error) {
	list, _ := r.ListByService(ctx, serviceID, 0)
	for i := range list {
		if list[i].ImageURL != nil {
			return &list[i], nil
		}
	}
	return nil, errs.NotFound("deployment with an image for service %s", serviceID)
}

func (r *memDeploymentRepo) UpdateStatus(_ context.Context, u model.DeploymentStatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == u.DeploymentID {
			r.rows[i].Status = u.Status
			if u.Message != nil {
				r.rows[i].StatusMessage = u.Message
			}
			return nil
		}
	}
	return errs.NotFound("deployment %s", u.DeploymentID)
}

func (r *memDeploymentRepo) add(d model.Deployment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	d.CreatedAt = time.Unix(int64(r.seq), 0)
	r.rows = append(r.rows, d)
}

func (r *memDeploymentRepo) forService(serviceID string) []model.Deployment {
	list, _ := r.ListByService(context.Background(), serviceID, 0)
	return list
}

func (r *memDeploymentRepo) newest(serviceID string) model.Deployment {
	return r.forService(serviceID)[0]
}

type memBuildQueueRepo struct {
	mu   sync.Mutex
	rows map[string]model.BuildQueueEntry
}

func newMemBuildQueueRepo() *memBuildQueueRepo {
	return &memBuildQueueRepo{rows: map[string]model.BuildQueueEntry{}}
}

func (r *memBuildQueueRepo) Create(_ context.Context, e *model.BuildQueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[e.ID] = *e
	return nil
}

func (r *memBuildQueueRepo) GetByID(_ context.Context, id string) (*model.BuildQueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok {
		return nil, errs.NotFound("build queue entry %s", id)
	}
	return &e, nil
}

func (r *memBuildQueueRepo) SetJobID(_ context.Context, id, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.rows[id]
	e.JobID = &jobID
	r.rows[id] = e
	return nil
}

func (r *memBuildQueueRepo) UpdateStatus(_ context.Context, id string, status model.BuildQueueStatus, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok {
		return errs.NotFound("build queue entry %s", id)
	}
	e.Status = status
	e.Error = errMsg
	r.rows[id] = e
	return nil
}

func (r *memBuildQueueRepo) forDeployment(deploymentID string) []model.BuildQueueEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.BuildQueueEntry
	for _, e := range r.rows {
		if e.DeploymentID == deploymentID {
			out = append(out, e)
		}
	}
	return out
}

type memEnvVarRepo struct {
	mu   sync.Mutex
	rows map[string]model.EnvironmentVariable
}

func newMemEnvVarRepo() *memEnvVarRepo {
	return &memEnvVarRepo{rows: map[string]model.EnvironmentVariable{}}
}

func (r *memEnvVarRepo) FindByKey(_ context.Context, serviceID, key string) (*model.EnvironmentVariable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.rows {
		if v.ServiceID == serviceID && v.DeploymentID == nil && v.Key == key {
			return &v, nil
		}
	}
	return nil, errs.NotFound("env var %s", key)
}

func (r *memEnvVarRepo) GetByID(_ context.Context, id string) (*model.EnvironmentVariable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.rows[id]
	if !ok {
		return nil, errs.NotFound("env var %s", id)
	}
	return &v, nil
}

func (r *memEnvVarRepo) Upsert(_ context.Context, v *model.EnvironmentVariable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, cur := range r.rows {
		if cur.ServiceID != v.ServiceID || cur.DeploymentID != nil || cur.Key != v.Key {
			continue
		}
		if cur.IsSystem != v.IsSystem {
			return errs.Forbidden("%s is a system variable", v.Key)
		}
		cur.Value = v.Value
		cur.IsSecret = v.IsSecret
		r.rows[id] = cur
		return nil
	}
	r.rows[v.ID] = *v
	return nil
}

func (r *memEnvVarRepo) ListByService(_ context.Context, serviceID string) ([]model.EnvironmentVariable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.EnvironmentVariable
	for _, v := range r.rows {
		if v.ServiceID == serviceID && v.DeploymentID == nil {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *memEnvVarRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

type memRefRepo struct {
	mu   sync.Mutex
	rows []model.EnvVarReference
}

func (r *memRefRepo) Create(_ context.Context, ref *model.EnvVarReference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *ref)
	return nil
}

func (r *memRefRepo) GetByID(_ context.Context, id string) (*model.EnvVarReference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range r.rows {
		if ref.ID == id {
			return &ref, nil
		}
	}
	return nil, errs.NotFound("reference %s", id)
}

func (r *memRefRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, ref := range r.rows {
		if ref.ID == id {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return errs.NotFound("reference %s", id)
}

func (r *memRefRepo) ListBySource(_ context.Context, serviceID string) ([]model.EnvVarReference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.EnvVarReference
	for _, ref := range r.rows {
		if ref.SourceServiceID == serviceID {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (r *memRefRepo) ListByProject(_ context.Context, _ string) ([]model.EnvVarReference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.EnvVarReference(nil), r.rows...), nil
}

// edge adds consumer -> source.
func (r *memRefRepo) edge(consumer, source string) {
	r.rows = append(r.rows, model.EnvVarReference{
		ID: consumer + "->" + source, ConsumingServiceID: consumer, SourceServiceID: source, Key: "URL",
	})
}

type memWorkspaceRepo struct {
	workspaces map[string]model.Workspace
	projects   map[string]model.Project
	members    map[string]model.WorkspaceMember
	err        error
}

func (r *memWorkspaceRepo) GetWorkspace(_ context.Context, id string) (*model.Workspace, error) {
	if r.err != nil {
		return nil, r.err
	}
	w, ok := r.workspaces[id]
	if !ok {
		return nil, errs.NotFound("workspace %s", id)
	}
	return &w, nil
}

func (r *memWorkspaceRepo) GetProject(_ context.Context, id string) (*model.Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return nil, errs.NotFound("project %s", id)
	}
	return &p, nil
}

func (r *memWorkspaceRepo) GetMember(_ context.Context, workspaceID, userID string) (*model.WorkspaceMember, error) {
	m, ok := r.members[workspaceID+"/"+userID]
	if !ok {
		return nil, errs.NotFound("member")
	}
	return &m, nil
}

type memInstallationRepo struct {
	rows map[string]model.GitHubInstallation
}

func (r *memInstallationRepo) GetByID(_ context.Context, id string) (*model.GitHubInstallation, error) {
	i, ok := r.rows[id]
	if !ok {
		return nil, errs.NotFound("installation %s", id)
	}
	return &i, nil
}

// ---------- collaborators ----------

// prefixCipher marks values as encrypted without real cryptography.
type prefixCipher struct{}

func (prefixCipher) Encrypt(p string) (string, error) { return "enc:" + p, nil }

func (prefixCipher) Decrypt(c string) (string, error) {
	if !strings.HasPrefix(c, "enc:") {
		return "", errors.New("not encrypted")
	}
	return strings.TrimPrefix(c, "enc:"), nil
}

// recordingQueue records every job and can be told to fail by job name.
type recordingQueue struct {
	mu   sync.Mutex
	jobs []model.Job
	fail map[string]error
}

func (q *recordingQueue) Enqueue(_ context.Context, job model.Job, _ model.RetryPolicy) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.fail[job.Name]; err != nil {
		return "", err
	}
	q.jobs = append(q.jobs, job)
	return job.ID, nil
}

func (q *recordingQueue) named(name string) []model.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []model.Job
	for _, j := range q.jobs {
		if j.Name == name {
			out = append(out, j)
		}
	}
	return out
}

type mockSource struct {
	mock.Mock
}

func (m *mockSource) LatestCommit(ctx context.Context, installationID int64, repoFullName, branch string) (*model.Commit, error) {
	args := m.Called(ctx, installationID, repoFullName, branch)
	c, _ := args.Get(0).(*model.Commit)
	return c, args.Error(1)
}

func (m *mockSource) ListRepositories(ctx context.Context, installationID int64, page, perPage int) ([]model.Repository, error) {
	args := m.Called(ctx, installationID, page, perPage)
	r, _ := args.Get(0).([]model.Repository)
	return r, args.Error(1)
}

func (m *mockSource) ListBranches(ctx context.Context, installationID int64, repoFullName string) ([]model.Branch, error) {
	args := m.Called(ctx, installationID, repoFullName)
	b, _ := args.Get(0).([]model.Branch)
	return b, args.Error(1)
}

func (m *mockSource) GetRepository(ctx context.Context, installationID int64, repoFullName string) (*model.Repository, error) {
	args := m.Called(ctx, installationID, repoFullName)
	r, _ := args.Get(0).(*model.Repository)
	return r, args.Error(1)
}

// ---------- environment ----------

const (
	testWorkspace = "ws-1"
	testProject   = "proj-1"
	adminID       = "user-admin"
	memberID      = "user-member"
	deployerID    = "user-deployer"
	strangerID    = "user-stranger"
)

type testEnv struct {
	services      *memServiceRepo
	deployments   *memDeploymentRepo
	builds        *memBuildQueueRepo
	vars          *memEnvVarRepo
	refs          *memRefRepo
	workspaces    *memWorkspaceRepo
	installations *memInstallationRepo
	source        *mockSource
	queue         *recordingQueue
	core          *Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithServices(t, newMemServiceRepo())
}

func newTestEnvWithServices(t *testing.T, services ServiceRepository) *testEnv {
	t.Helper()
	env := &testEnv{
		deployments: &memDeploymentRepo{},
		builds:      newMemBuildQueueRepo(),
		vars:        newMemEnvVarRepo(),
		refs:        &memRefRepo{},
		workspaces: &memWorkspaceRepo{
			workspaces: map[string]model.Workspace{testWorkspace: {ID: testWorkspace, Name: "Acme"}},
			projects: map[string]model.Project{
				testProject: {ID: testProject, WorkspaceID: testWorkspace, Name: "Proj", Slug: "proj"},
				"proj-2":    {ID: "proj-2", WorkspaceID: testWorkspace, Name: "Proj", Slug: "proj"},
			},
			members: map[string]model.WorkspaceMember{
				testWorkspace + "/" + adminID:    {WorkspaceID: testWorkspace, UserID: adminID, Role: model.RoleAdmin},
				testWorkspace + "/" + memberID:   {WorkspaceID: testWorkspace, UserID: memberID, Role: model.RoleMember},
				testWorkspace + "/" + deployerID: {WorkspaceID: testWorkspace, UserID: deployerID, Role: model.RoleDeployer},
			},
		},
		installations: &memInstallationRepo{rows: map[string]model.GitHubInstallation{
			"inst-1": {ID: "inst-1", UserID: adminID, InstallationID: 4242, AccountLogin: "org"},
		}},
		source: &mockSource{},
		queue:  &recordingQueue{fail: map[string]error{}},
	}
	if m, ok := services.(*memServiceRepo); ok {
		env.services = m
	}
	env.core = NewServices(Deps{
		Services:      services,
		Deployments:   env.deployments,
		BuildQueue:    env.builds,
		EnvVars:       env.vars,
		References:    env.refs,
		Workspaces:    env.workspaces,
		Installations: env.installations,
		Source:        env.source,
		Queue:         env.queue,
		Cipher:        prefixCipher{},
		PublicDomain:  "kubidu.app",
	})
	return env
}

func strPtr(s string) *string { return &s }

func imageService(name string) *model.Service {
	return &model.Service{
		ProjectID:  testProject,
		Name:       name,
		SourceKind: model.SourceImage,
		ImageURL:   strPtr("ghcr.io/acme/" + name),
		ImageTag:   strPtr("v1"),
		Defaults:   model.DefaultRuntimeParams(),
		AutoDeploy: true,
	}
}

func repoService(name string) *model.Service {
	return &model.Service{
		ProjectID:       testProject,
		Name:            name,
		SourceKind:      model.SourceRepository,
		RepositoryURL:   strPtr("https://github.com/org/repo"),
		Branch:          strPtr("main"),
		InstallationRef: strPtr("inst-1"),
		RepoFullName:    strPtr("org/repo"),
		Defaults:        model.DefaultRuntimeParams(),
		AutoDeploy:      true,
	}
}
