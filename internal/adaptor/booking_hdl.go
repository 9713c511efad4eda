package adaptor

import (
	"net/http"

	"service-booking/internal/dto/request"
	"service-booking/internal/usecase"
	"service-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// CreateBooking handles POST /api/bookings (customer)
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.CreateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// Validate request
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create booking")
		return
	}

	utils.ResponseCreated(w, "success", booking)
}

// GetBookings handles GET /api/bookings; what is listed depends on the caller's role
func (h *BookingHandler) GetBookings(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	req := &request.ListBookingsRequest{Status: r.URL.Query().Get("status")}
	req.Page, req.PerPage = paginationFrom(r)

	bookings, err := h.service.ListBookings(r.Context(), actor, req)
	if err != nil {
		handleServiceError(w, h.log, err, "list bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// GetBookingByID handles GET /api/bookings/{id}
func (h *BookingHandler) GetBookingByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	booking, err := h.service.GetBooking(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// CancelBooking handles PATCH /api/bookings/{id}/cancel (customer)
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	// body is optional
	var req request.CancelBookingRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.service.CancelBooking(r.Context(), actor, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "cancel booking")
		return
	}

	utils.ResponseSuccess(w, "Booking cancelled", booking)
}

// CreateAddress handles POST /api/customer/addresses
func (h *BookingHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.CreateAddressRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	address, err := h.service.CreateAddress(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create address")
		return
	}

	utils.ResponseCreated(w, "success", address)
}

// GetAddresses handles GET /api/customer/addresses
func (h *BookingHandler) GetAddresses(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	addresses, err := h.service.ListAddresses(r.Context(), actor)
	if err != nil {
		handleServiceError(w, h.log, err, "list addresses")
		return
	}

	utils.ResponseSuccess(w, "success", addresses)
}
