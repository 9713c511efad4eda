package adaptor

import (
	"net/http"

	"service-booking/internal/dto/request"
	"service-booking/internal/usecase"
	"service-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type JobHandler struct {
	service usecase.JobService
	log     *zap.Logger
}

func NewJobHandler(service usecase.JobService, log *zap.Logger) *JobHandler {
	return &JobHandler{
		service: service,
		log:     log.With(zap.String("handler", "job")),
	}
}

// AcceptReject handles PATCH /api/bookings/{id}/accept-reject (provider)
func (h *JobHandler) AcceptReject(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.AcceptRejectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.service.AcceptReject(r.Context(), actor, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, req.Action+" booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// UpdateStatus handles PATCH /api/bookings/{id}/status (provider)
func (h *JobHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.UpdateJobStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.service.UpdateStatus(r.Context(), actor, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update job status")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}
