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

// VariableManager is the environment variable surface used by Variable.
type VariableManager interface {
	List(ctx context.Context, actorID, serviceID string) ([]model.EnvironmentVariable, error)
	Set(ctx context.Context, actorID, serviceID, key, value string, isSecret bool) error
	Delete(ctx context.Context, actorID, serviceID, variableID string) error
	AddReference(ctx context.Context, actorID, consumingServiceID, sourceServiceID, key string, alias *string) (*model.EnvVarReference, error)
	RemoveReference(ctx context.Context, actorID, consumingServiceID, referenceID string) error
	Impact(ctx context.Context, actorID, serviceID string) ([]string, error)
	ProjectGraph(ctx context.Context, actorID, projectID string) (*model.DependencyGraph, error)
}

// ImpactResponse lists the services that consume a service's variables,
// directly or transitively.
type ImpactResponse struct {
	ServiceID          string   `json:"service_id"`
	AffectedServiceIDs []string `json:"affected_service_ids"`
}

type Variable struct {
	svc VariableManager
}

func NewVariable(svc VariableManager) *Variable {
	return &Variable{svc: svc}
}

// List godoc
//
//	@Summary		List environment variables
//	@Description	Returns user and system variables of the service. Secret values are redacted.
//	@Tags			Variables
//	@Security		ApiKeyAuth
//	@Param			id path string true "Service ID"
//	@Success		200 {object} response.ItemsResponse{items=[]model.EnvironmentVariable}
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/services/{id}/variables [get]
func (h *Variable) List(w http.ResponseWriter, r *http.Request) {
	serviceID, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	vars, err := h.svc.List(r.Context(), mw.ActorID(r.Context()), serviceID)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	if vars == nil {
		vars = []model.EnvironmentVariable{}
	}
	response.WriteItems(w, vars)
}

// Set godoc
//
//	@Summary		Set an environment variable
//	@Description	Creates or overwrites a user variable. System variables (KUBIDU_*) cannot be set.
//	@Tags			Variables
//	@Security		ApiKeyAuth
//	@Param			id path string true "Service ID"
//	@Param			key path string true "Variable name"
//	@Param			body body request.SetVariable true "Value"
//	@Success		204
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/services/{id}/variables/{key} [put]
func (h *Variable) Set(w http.ResponseWriter, r *http.Request) {
	serviceID, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	key, err := request.RequireID(chi.URLParam(r, "key"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.SetVariable
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Set(r.Context(), mw.ActorID(r.Context()), serviceID, key, req.Value, req.IsSecret); err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete godoc
//
//	@Summary		Delete an environment variable
//	@Tags			Variables
//	@Security		ApiKeyAuth
//	@Param			id path string true "Service ID"
//	@Param			variableID path string true "Variable ID"
//	@Success		204
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/services/{id}/variables/{variableID} [delete]
func (h *Variable) Delete(w http.ResponseWriter, r *http.Request) {
	serviceID, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	variableID, err := request.RequireID(chi.URLParam(r, "variableID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), mw.ActorID(r.Context()), serviceID, variableID); err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddReference godoc
//
//	@Summary		Add a variable reference
//	@Description	Declares that the service reads a variable of another service in the same project.
//	@Tags			Variables
//	@Security		ApiKeyAuth
//	@Param			id path string true "Consuming service ID"
//	@Param			body body request.AddReference true "Reference"
//	@Success		201 {object} model.EnvVarReference
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/services/{id}/references [post]
func (h *Variable) AddReference(w http.ResponseWriter, r *http.Request) {
	serviceID, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.AddReference
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ref, err := h.svc.AddReference(r.Context(), mw.ActorID(r.Context()), serviceID, req.SourceServiceID, req.Key, req.Alias)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, ref)
}

// RemoveReference godoc
//
//	@Summary		Remove a variable reference
//	@Tags			Variables
//	@Security		ApiKeyAuth
//	@Param			id path string true "Consuming service ID"
//	@Param			referenceID path string true "Reference ID"
//	@Success		204
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/services/{id}/references/{referenceID} [delete]
func (h *Variable) RemoveReference(w http.ResponseWriter, r *http.Request) {
	serviceID, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	refID, err := request.RequireID(chi.URLParam(r, "referenceID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.RemoveReference(r.Context(), mw.ActorID(r.Context()), serviceID, refID); err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Impact godoc
//
//	@Summary		Impact of a service
//	@Description	Lists the services that consume the service's variables, transitively, up to 10 hops.
//	@Tags			Variables
//	@Security		ApiKeyAuth
//	@Param			id path string true "Service ID"
//	@Success		200 {object} ImpactResponse
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/services/{id}/impact [get]
func (h *Variable) Impact(w http.ResponseWriter, r *http.Request) {
	serviceID, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ids, err := h.svc.Impact(r.Context(), mw.ActorID(r.Context()), serviceID)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	response.WriteJSON(w, http.StatusOK, ImpactResponse{ServiceID: serviceID, AffectedServiceIDs: ids})
}

// ProjectGraph godoc
//
//	@Summary		Project dependency graph
//	@Description	Returns the project's services as nodes and its variable references as edges.
//	@Tags			Variables
//	@Security		ApiKeyAuth
//	@Param			projectID path string true "Project ID"
//	@Success		200 {object} model.DependencyGraph
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/projects/{projectID}/graph [get]
func (h *Variable) ProjectGraph(w http.ResponseWriter, r *http.Request) {
	projectID, err := request.RequireID(chi.URLParam(r, "projectID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	graph, err := h.svc.ProjectGraph(r.Context(), mw.ActorID(r.Context()), projectID)
	if err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, graph)
}
