package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kubidu/kubidu/internal/api/handler"
	mw "github.com/kubidu/kubidu/internal/api/middleware"
	"github.com/kubidu/kubidu/internal/core"
	"github.com/kubidu/kubidu/internal/metrics"
)

// Options configures the API server.
type Options struct {
	Services      *core.Services
	Tokens        mw.TokenResolver
	ExecutorToken string
	// Checks run on /readyz, e.g. the database pool and Temporal.
	Checks []metrics.Check
}

type Server struct {
	router chi.Router
	logger zerolog.Logger
	opts   Options
}

func NewServer(logger zerolog.Logger, opts Options) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger,
		opts:   opts,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	svcs := s.opts.Services

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth(s.opts.Tokens))

		service := handler.NewService(svcs.Service)
		r.Get("/projects/{projectID}/services", service.ListByProject)
		r.Post("/projects/{projectID}/services", service.Create)
		r.Get("/services/{id}", service.Get)
		r.Patch("/services/{id}", service.Update)
		r.Delete("/services/{id}", service.Delete)

		deployment := handler.NewDeployment(svcs.Orchestrator)
		r.Get("/services/{id}/deployments", deployment.ListByService)
		r.Post("/services/{id}/rollback", deployment.Rollback)
		r.Get("/deployments/{id}", deployment.Get)

		variable := handler.NewVariable(svcs.Variable)
		r.Get("/services/{id}/variables", variable.List)
		r.Put("/services/{id}/variables/{key}", variable.Set)
		r.Delete("/services/{id}/variables/{variableID}", variable.Delete)
		r.Post("/services/{id}/references", variable.AddReference)
		r.Delete("/services/{id}/references/{referenceID}", variable.RemoveReference)
		r.Get("/services/{id}/impact", variable.Impact)
		r.Get("/projects/{projectID}/graph", variable.ProjectGraph)

		source := handler.NewSource(svcs.Source)
		r.Get("/installations/{installationID}/repositories", source.ListRepositories)
		r.Get("/installations/{installationID}/repositories/{owner}/{repo}", source.GetRepository)
		r.Get("/installations/{installationID}/repositories/{owner}/{repo}/branches", source.ListBranches)
	})

	s.router.Route("/internal", func(r chi.Router) {
		r.Use(mw.ExecutorAuth(s.opts.ExecutorToken))

		status := handler.NewInternalStatus(svcs.Orchestrator, svcs.Dispatcher)
		r.Post("/deployments/{id}/status", status.Deployment)
		r.Post("/build-queue/{id}/status", status.BuildQueue)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	for _, c := range s.opts.Checks {
		if err := c.Fn(ctx); err != nil {
			checks[c.Name] = err.Error()
			healthy = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
