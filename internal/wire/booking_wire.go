package wire

import (
	"service-booking/internal/adaptor"
	"service-booking/internal/data/entity"
	"service-booking/pkg/middleware"
	"service-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	paymentHandler *adaptor.PaymentHandler,
	jobHandler *adaptor.JobHandler,
	tokens *utils.TokenIssuer,
	log *zap.Logger,
) {
	customer := middleware.RequireRole(log, string(entity.RoleCustomer))
	provider := middleware.RequireRole(log, string(entity.RoleProvider))

	// ==================== PAYMENT CALLBACK ====================
	// authenticated by the gateway signature, not a session
	r.Post("/api/payments/verify", paymentHandler.Verify)

	// ==================== PROTECTED ROUTES (require auth) ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tokens, log))

		// visibility is decided per role in the service
		r.Get("/api/bookings", bookingHandler.GetBookings)
		r.Get("/api/bookings/{id}", bookingHandler.GetBookingByID)

		// Customer
		r.With(customer).Post("/api/bookings", bookingHandler.CreateBooking)
		r.With(customer).Patch("/api/bookings/{id}/cancel", bookingHandler.CancelBooking)
		r.With(customer).Post("/api/bookings/{id}/payment-order", paymentHandler.OpenOrder)
		r.With(customer).Route("/api/customer/addresses", func(r chi.Router) {
			r.Get("/", bookingHandler.GetAddresses)
			r.Post("/", bookingHandler.CreateAddress)
		})

		// Provider
		r.With(provider).Patch("/api/bookings/{id}/accept-reject", jobHandler.AcceptReject)
		r.With(provider).Patch("/api/bookings/{id}/status", jobHandler.UpdateStatus)
	})
}
