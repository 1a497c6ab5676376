package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/kubidu/kubidu/internal/api/middleware"
	"github.com/kubidu/kubidu/internal/api/request"
	"github.com/kubidu/kubidu/internal/api/response"
	"github.com/kubidu/kubidu/internal/core"
	"github.com/kubidu/kubidu/internal/model"
)

// ServiceManager is the service lifecycle surface used by Service.
type ServiceManager interface {
	Create(ctx context.Context, actorID string, svc *model.Service) (*model.Service, error)
	Update(ctx context.Context, actorID, serviceID string, patch core.ServicePatch) (*model.Service, error)
	Delete(ctx context.Context, actorID, serviceID string) error
	Get(ctx context.Context, actorID, serviceID string) (*model.Service, error)
	List(ctx context.Context, actorID, projectID string) ([]model.Service, error)
}

type Service struct {
	svc ServiceManager
}

func NewService(svc ServiceManager) *Service {
	return &Service{svc: svc}
}

// ListByProject godoc
//
//	@Summary		List services in a project
//	@Description	Returns every service of the project. Requires a read role in the owning workspace.
//	@Tags			Services
//	@Security		ApiKeyAuth
//	@Param			projectID path string true "Project ID"
//	@Success		200 {object} response.ItemsResponse{items=[]model.Service}
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/projects/{projectID}/services [get]
func (h *Service) ListByProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := request.RequireID(chi.URLParam(r, "projectID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	services, err := h.svc.List(r.Context(), mw.ActorID(r.Context()), projectID)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	if services == nil {
		services = []model.Service{}
	}
	response.WriteItems(w, services)
}

// Create godoc
//
//	@Summary		Create a service
//	@Description	Creates a service sourced from a container image or a repository and allocates its subdomain. Image services are deployed immediately; repository services with an installation, repository and URL queue a build of the branch head. Deployment and notification failures do not fail creation.
//	@Tags			Services
//	@Security		ApiKeyAuth
//	@Param			projectID path string true "Project ID"
//	@Param			body body request.CreateService true "Service details"
//	@Success		201 {object} model.Service
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/projects/{projectID}/services [post]
func (h *Service) Create(w http.ResponseWriter, r *http.Request) {
	projectID, err := request.RequireID(chi.URLParam(r, "projectID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.CreateService
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.svc.Create(r.Context(), mw.ActorID(r.Context()), req.ToModel(projectID))
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, created)
}

// Get godoc
//
//	@Summary		Get a service
//	@Tags			Services
//	@Security		ApiKeyAuth
//	@Param			id path string true "Service ID"
//	@Success		200 {object} model.Service
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/services/{id} [get]
func (h *Service) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	svc, err := h.svc.Get(r.Context(), mw.ActorID(r.Context()), id)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, svc)
}

// Update godoc
//
//	@Summary		Update a service
//	@Description	Applies a partial update. Changing the start command or the subdomain queues a redeployment with the current runtime parameters.
//	@Tags			Services
//	@Security		ApiKeyAuth
//	@Param			id path string true "Service ID"
//	@Param			body body request.UpdateService true "Fields to change"
//	@Success		200 {object} model.Service
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/services/{id} [patch]
func (h *Service) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateService
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.svc.Update(r.Context(), mw.ActorID(r.Context()), id, req.ToPatch())
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, updated)
}

// Delete godoc
//
//	@Summary		Delete a service
//	@Tags			Services
//	@Security		ApiKeyAuth
//	@Param			id path string true "Service ID"
//	@Success		204
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/services/{id} [delete]
func (h *Service) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), mw.ActorID(r.Context()), id); err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
