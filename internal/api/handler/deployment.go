package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	mw "github.com/kubidu/kubidu/internal/api/middleware"
	"github.com/kubidu/kubidu/internal/api/request"
	"github.com/kubidu/kubidu/internal/api/response"
	"github.com/kubidu/kubidu/internal/model"
)

// DeploymentManager is the deployment surface used by Deployment.
type DeploymentManager interface {
	ListDeployments(ctx context.Context, actorID, serviceID string, limit int) ([]model.Deployment, error)
	GetDeployment(ctx context.Context, actorID, deploymentID string) (*model.Deployment, error)
	Rollback(ctx context.Context, actorID, serviceID, targetDeploymentID string) (*model.Deployment, error)
}

const defaultDeploymentLimit = 20

type Deployment struct {
	svc DeploymentManager
}

func NewDeployment(svc DeploymentManager) *Deployment {
	return &Deployment{svc: svc}
}

// ListByService godoc
//
//	@Summary		List deployments of a service
//	@Description	Returns the service's deployments, newest first.
//	@Tags			Deployments
//	@Security		ApiKeyAuth
//	@Param			id path string true "Service ID"
//	@Param			limit query int false "Maximum number of deployments" default(20)
//	@Success		200 {object} response.ItemsResponse{items=[]model.Deployment}
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/services/{id}/deployments [get]
func (h *Deployment) ListByService(w http.ResponseWriter, r *http.Request) {
	serviceID, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := defaultDeploymentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			response.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, request.MaxLimit)
	}

	deps, err := h.svc.ListDeployments(r.Context(), mw.ActorID(r.Context()), serviceID, limit)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	if deps == nil {
		deps = []model.Deployment{}
	}
	response.WriteItems(w, deps)
}

// Get godoc
//
//	@Summary		Get a deployment
//	@Tags			Deployments
//	@Security		ApiKeyAuth
//	@Param			id path string true "Deployment ID"
//	@Success		200 {object} model.Deployment
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/deployments/{id} [get]
func (h *Deployment) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	dep, err := h.svc.GetDeployment(r.Context(), mw.ActorID(r.Context()), id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, dep)
}

// Rollback godoc
//
//	@Summary		Roll back a service
//	@Description	Creates a PENDING deployment that reuses the target deployment's image, commit and runtime parameters. Async, returns 202 and queues a deploy job. The target must belong to the service and carry a built image.
//	@Tags			Deployments
//	@Security		ApiKeyAuth
//	@Param			id path string true "Service ID"
//	@Param			body body request.Rollback true "Target deployment"
//	@Success		202 {object} model.Deployment
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		502 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/services/{id}/rollback [post]
func (h *Deployment) Rollback(w http.ResponseWriter, r *http.Request) {
	serviceID, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.Rollback
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	dep, err := h.svc.Rollback(r.Context(), mw.ActorID(r.Context()), serviceID, req.DeploymentID)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusAccepted, dep)
}
