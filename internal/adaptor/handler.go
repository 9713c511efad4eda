package adaptor

import (
	"service-booking/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Auth    *AuthHandler
	Catalog *CatalogHandler
	Booking *BookingHandler
	Payment *PaymentHandler
	Job     *JobHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(service.Auth, log),
		Catalog: NewCatalogHandler(service.Catalog, log),
		Booking: NewBookingHandler(service.Booking, log),
		Payment: NewPaymentHandler(service.Payment, log),
		Job:     NewJobHandler(service.Job, log),
	}
}
