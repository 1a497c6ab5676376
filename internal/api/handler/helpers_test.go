package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	mw "github.com/kubidu/kubidu/internal/api/middleware"
	"github.com/kubidu/kubidu/internal/core"
	"github.com/kubidu/kubidu/internal/model"
)

const (
	testActor   = "user-1"
	testProject = "proj-1"
	testService = "svc-1"
)

// newRequest creates an authenticated request with an optional JSON body.
func newRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r.WithContext(mw.WithActor(r.Context(), testActor))
}

func newRequestRaw(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	return r.WithContext(mw.WithActor(r.Context(), testActor))
}

func withChiURLParam(r *http.Request, key, value string) *http.Request {
	return withChiURLParams(r, map[string]string{key: value})
}

func withChiURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeErrorResponse(rec *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}

type mockServices struct {
	mock.Mock
}

func (m *mockServices) Create(ctx context.Context, actorID string, svc *model.Service) (*model.Service, error) {
	args := m.Called(ctx, actorID, svc)
	if s := args.Get(0); s != nil {
		return s.(*model.Service), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockServices) Update(ctx context.Context, actorID, serviceID string, patch core.ServicePatch) (*model.Service, error) {
	args := m.Called(ctx, actorID, serviceID, patch)
	if s := args.Get(0); s != nil {
		return s.(*model.Service), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockServices) Delete(ctx context.Context, actorID, serviceID string) error {
	return m.Called(ctx, actorID, serviceID).Error(0)
}

func (m *mockServices) Get(ctx context.Context, actorID, serviceID string) (*model.Service, error) {
	args := m.Called(ctx, actorID, serviceID)
	if s := args.Get(0); s != nil {
		return s.(*model.Service), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockServices) List(ctx context.Context, actorID, projectID string) ([]model.Service, error) {
	args := m.Called(ctx, actorID, projectID)
	if s := args.Get(0); s != nil {
		return s.([]model.Service), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockDeployments struct {
	mock.Mock
}

func (m *mockDeployments) ListDeployments(ctx context.Context, actorID, serviceID string, limit int) ([]model.Deployment, error) {
	args := m.Called(ctx, actorID, serviceID, limit)
	if d := args.Get(0); d != nil {
		return d.([]model.Deployment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeployments) GetDeployment(ctx context.Context, actorID, deploymentID string) (*model.Deployment, error) {
	args := m.Called(ctx, actorID, deploymentID)
	if d := args.Get(0); d != nil {
		return d.(*model.Deployment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeployments) Rollback(ctx context.Context, actorID, serviceID, targetDeploymentID string) (*model.Deployment, error) {
	args := m.Called(ctx, actorID, serviceID, targetDeploymentID)
	if d := args.Get(0); d != nil {
		return d.(*model.Deployment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeployments) RecordStatus(ctx context.Context, u model.DeploymentStatusUpdate) error {
	return m.Called(ctx, u).Error(0)
}

type mockBuilds struct {
	mock.Mock
}

func (m *mockBuilds) RecordStatus(ctx context.Context, entryID string, status model.BuildQueueStatus, errMsg *string) error {
	return m.Called(ctx, entryID, status, errMsg).Error(0)
}

type mockVariables struct {
	mock.Mock
}

func (m *mockVariables) List(ctx context.Context, actorID, serviceID string) ([]model.EnvironmentVariable, error) {
	args := m.Called(ctx, actorID, serviceID)
	if v := args.Get(0); v != nil {
		return v.([]model.EnvironmentVariable), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVariables) Set(ctx context.Context, actorID, serviceID, key, value string, isSecret bool) error {
	return m.Called(ctx, actorID, serviceID, key, value, isSecret).Error(0)
}

func (m *mockVariables) Delete(ctx context.Context, actorID, serviceID, variableID string) error {
	return m.Called(ctx, actorID, serviceID, variableID).Error(0)
}

func (m *mockVariables) AddReference(ctx context.Context, actorID, consumingServiceID, sourceServiceID, key string, alias *string) (*model.EnvVarReference, error) {
	args := m.Called(ctx, actorID, consumingServiceID, sourceServiceID, key, alias)
	if r := args.Get(0); r != nil {
		return r.(*model.EnvVarReference), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVariables) RemoveReference(ctx context.Context, actorID, consumingServiceID, referenceID string) error {
	return m.Called(ctx, actorID, consumingServiceID, referenceID).Error(0)
}

func (m *mockVariables) Impact(ctx context.Context, actorID, serviceID string) ([]string, error) {
	args := m.Called(ctx, actorID, serviceID)
	if ids := args.Get(0); ids != nil {
		return ids.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVariables) ProjectGraph(ctx context.Context, actorID, projectID string) (*model.DependencyGraph, error) {
	args := m.Called(ctx, actorID, projectID)
	if g := args.Get(0); g != nil {
		return g.(*model.DependencyGraph), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSource struct {
	mock.Mock
}

func (m *mockSource) ListRepositories(ctx context.Context, actorID, installationRef string, page, perPage int) ([]model.Repository, error) {
	args := m.Called(ctx, actorID, installationRef, page, perPage)
	if r := args.Get(0); r != nil {
		return r.([]model.Repository), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSource) ListBranches(ctx context.Context, actorID, installationRef, repoFullName string) ([]model.Branch, error) {
	args := m.Called(ctx, actorID, installationRef, repoFullName)
	if b := args.Get(0); b != nil {
		return b.([]model.Branch), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSource) GetRepository(ctx context.Context, actorID, installationRef, repoFullName string) (*model.Repository, error) {
	args := m.Called(ctx, actorID, installationRef, repoFullName)
	if r := args.Get(0); r != nil {
		return r.(*model.Repository), args.Error(1)
	}
	return nil, args.Error(1)
}
