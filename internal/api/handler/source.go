package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/kubidu/kubidu/internal/api/middleware"
	"github.com/kubidu/kubidu/internal/api/request"
	"github.com/kubidu/kubidu/internal/api/response"
	"github.com/kubidu/kubidu/internal/model"
)

// SourceBrowser lists repositories reachable through an installation.
type SourceBrowser interface {
	ListRepositories(ctx context.Context, actorID, installationRef string, page, perPage int) ([]model.Repository, error)
	ListBranches(ctx context.Context, actorID, installationRef, repoFullName string) ([]model.Branch, error)
	GetRepository(ctx context.Context, actorID, installationRef, repoFullName string) (*model.Repository, error)
}

type Source struct {
	svc SourceBrowser
}

func NewSource(svc SourceBrowser) *Source {
	return &Source{svc: svc}
}

// ListRepositories godoc
//
//	@Summary		List installation repositories
//	@Description	Lists the repositories reachable through a source provider installation owned by the caller.
//	@Tags			Source
//	@Security		ApiKeyAuth
//	@Param			installationID path string true "Installation ID"
//	@Param			page query int false "Page number" default(1)
//	@Param			limit query int false "Page size (max 100)" default(30)
//	@Success		200 {object} response.Page{items=[]model.Repository}
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		502 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/installations/{installationID}/repositories [get]
func (h *Source) ListRepositories(w http.ResponseWriter, r *http.Request) {
	instRef, err := request.RequireID(chi.URLParam(r, "installationID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	pg := request.ParsePagination(r)

	repos, err := h.svc.ListRepositories(r.Context(), mw.ActorID(r.Context()), instRef, pg.Page, pg.Limit)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	if repos == nil {
		repos = []model.Repository{}
	}
	response.WritePage(w, repos, pg.Page, len(repos) == pg.Limit)
}

// GetRepository godoc
//
//	@Summary		Get a repository
//	@Tags			Source
//	@Security		ApiKeyAuth
//	@Param			installationID path string true "Installation ID"
//	@Param			owner path string true "Repository owner"
//	@Param			repo path string true "Repository name"
//	@Success		200 {object} model.Repository
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		502 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/installations/{installationID}/repositories/{owner}/{repo} [get]
func (h *Source) GetRepository(w http.ResponseWriter, r *http.Request) {
	instRef, repo, ok := repoParams(w, r)
	if !ok {
		return
	}

	found, err := h.svc.GetRepository(r.Context(), mw.ActorID(r.Context()), instRef, repo)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, found)
}

// ListBranches godoc
//
//	@Summary		List repository branches
//	@Tags			Source
//	@Security		ApiKeyAuth
//	@Param			installationID path string true "Installation ID"
//	@Param			owner path string true "Repository owner"
//	@Param			repo path string true "Repository name"
//	@Success		200 {object} response.ItemsResponse{items=[]model.Branch}
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		502 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/installations/{installationID}/repositories/{owner}/{repo}/branches [get]
func (h *Source) ListBranches(w http.ResponseWriter, r *http.Request) {
	instRef, repo, ok := repoParams(w, r)
	if !ok {
		return
	}

	branches, err := h.svc.ListBranches(r.Context(), mw.ActorID(r.Context()), instRef, repo)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	if branches == nil {
		branches = []model.Branch{}
	}
	response.WriteItems(w, branches)
}

// repoParams reads {installationID}, {owner} and {repo} and joins the latter
// into a full repository name.
func repoParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	instRef := chi.URLParam(r, "installationID")
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "repo")
	if instRef == "" || owner == "" || name == "" {
		response.WriteError(w, http.StatusBadRequest, "missing required ID")
		return "", "", false
	}
	return instRef, owner + "/" + name, true
}
