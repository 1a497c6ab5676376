package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mw "github.com/kubidu/kubidu/internal/api/middleware"
	"github.com/kubidu/kubidu/internal/core"
	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/metrics"
	"github.com/kubidu/kubidu/internal/model"
)

type noTokens struct{}

func (noTokens) GetByHash(context.Context, string) (*model.APIToken, error) {
	return nil, errs.NotFound("api token")
}

func newTestServer(checks ...metrics.Check) *Server {
	return NewServer(zerolog.Nop(), Options{
		Services:      core.NewServices(core.Deps{}),
		Tokens:        noTokens{},
		ExecutorToken: "exec-secret",
		Checks:        checks,
	})
}

func TestServer_Healthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_ReadyzReportsFailingCheck(t *testing.T) {
	srv := newTestServer(
		metrics.Check{Name: "core_db", Fn: func(context.Context) error { return nil }},
		metrics.Check{Name: "temporal", Fn: func(context.Context) error { return errors.New("connection refused") }},
	)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["core_db"])
	assert.Equal(t, "connection refused", body["temporal"])
}

func TestServer_APIRequiresToken(t *testing.T) {
	srv := newTestServer()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/services/svc-1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/services/svc-1", nil)
	req.Header.Set("Authorization", "Bearer unknown")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_InternalRequiresExecutorToken(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/internal/deployments/dep-1/status", strings.NewReader(`{"status":"RUNNING"}`))
	req.Header.Set(mw.ExecutorTokenHeader, "wrong")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_InternalValidatesBody(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/internal/build-queue/bq-1/status", strings.NewReader(`{"status":"DONE"}`))
	req.Header.Set(mw.ExecutorTokenHeader, "exec-secret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
