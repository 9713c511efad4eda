package adaptor

import (
	"net/http"

	"service-booking/internal/dto/request"
	"service-booking/internal/usecase"
	"service-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	service usecase.CatalogService
	log     *zap.Logger
}

func NewCatalogHandler(service usecase.CatalogService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		log:     log.With(zap.String("handler", "catalog")),
	}
}

// GetServices handles GET /api/services (public)
func (h *CatalogHandler) GetServices(w http.ResponseWriter, r *http.Request) {
	req := &request.ListServicesRequest{Category: r.URL.Query().Get("category")}
	req.Page, req.PerPage = paginationFrom(r)

	services, err := h.service.ListServices(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.log, err, "list services")
		return
	}

	utils.ResponseSuccess(w, "success", services)
}

// GetServiceByID handles GET /api/services/{id} (public)
func (h *CatalogHandler) GetServiceByID(w http.ResponseWriter, r *http.Request) {
	service, err := h.service.GetService(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get service")
		return
	}

	utils.ResponseSuccess(w, "success", service)
}

// CreateService handles POST /api/admin/services (admin only)
func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.CreateServiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	service, err := h.service.CreateService(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create service")
		return
	}

	utils.ResponseCreated(w, "success", service)
}

// UpdatePricing handles PUT /api/admin/services/{id}/pricing (admin only)
func (h *CatalogHandler) UpdatePricing(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.UpdatePricingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	service, err := h.service.UpdatePricing(r.Context(), actor, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update pricing")
		return
	}

	utils.ResponseSuccess(w, "success", service)
}

// UpdateStatus handles PUT /api/admin/services/{id}/status
func (h *CatalogHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.UpdateServiceStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	service, err := h.service.SetStatus(r.Context(), actor, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update service status")
		return
	}

	utils.ResponseSuccess(w, "success", service)
}
