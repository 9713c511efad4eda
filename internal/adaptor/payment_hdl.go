package adaptor

import (
	"net/http"

	"service-booking/internal/dto/request"
	"service-booking/internal/usecase"
	"service-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// OpenOrder handles POST /api/bookings/{id}/payment-order (customer)
func (h *PaymentHandler) OpenOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	order, err := h.service.OpenOrder(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "open payment order")
		return
	}

	if order.Reused {
		utils.ResponseSuccess(w, "success", order)
		return
	}
	utils.ResponseCreated(w, "success", order)
}

// Verify handles POST /api/payments/verify. The gateway signature authenticates the call.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req request.VerifyPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Verify(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "verify payment")
		return
	}

	message := "Payment verified"
	switch {
	case result.AlreadyVerified:
		message = "Payment already verified"
	case result.BookingNoLongerPending:
		message = "Payment verified; booking is no longer pending and will be refunded"
	}
	utils.ResponseSuccess(w, message, result)
}
