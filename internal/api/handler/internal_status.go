package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kubidu/kubidu/internal/api/request"
	"github.com/kubidu/kubidu/internal/api/response"
	"github.com/kubidu/kubidu/internal/model"
)

// DeploymentStatusRecorder applies executor-reported deployment transitions.
type DeploymentStatusRecorder interface {
	RecordStatus(ctx context.Context, u model.DeploymentStatusUpdate) error
}

// BuildStatusRecorder applies executor-reported build queue transitions.
type BuildStatusRecorder interface {
	RecordStatus(ctx context.Context, entryID string, status model.BuildQueueStatus, errMsg *string) error
}

// InternalStatus serves the executor callbacks under /internal.
type InternalStatus struct {
	deployments DeploymentStatusRecorder
	builds      BuildStatusRecorder
}

func NewInternalStatus(deployments DeploymentStatusRecorder, builds BuildStatusRecorder) *InternalStatus {
	return &InternalStatus{deployments: deployments, builds: builds}
}

func (h *InternalStatus) Deployment(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.DeploymentStatus
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.deployments.RecordStatus(r.Context(), req.ToUpdate(id)); err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Str("deployment_id", id).Str("status", req.Status).Msg("deployment status recorded")
	w.WriteHeader(http.StatusNoContent)
}

func (h *InternalStatus) BuildQueue(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.BuildStatus
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.builds.RecordStatus(r.Context(), id, model.BuildQueueStatus(req.Status), req.Error); err != nil {
		response.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
