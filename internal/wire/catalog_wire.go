package wire

import (
	"service-booking/internal/adaptor"
	"service-booking/internal/data/entity"
	"service-booking/pkg/middleware"
	"service-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireCatalog(
	r chi.Router,
	catalogHandler *adaptor.CatalogHandler,
	tokens *utils.TokenIssuer,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	r.Get("/api/services", catalogHandler.GetServices)
	r.Get("/api/services/{id}", catalogHandler.GetServiceByID)

	// ==================== ADMIN ROUTES ====================
	r.With(
		middleware.Auth(tokens, log),
		middleware.RequireRole(log, string(entity.RoleAdmin)),
	).Route("/api/admin/services", func(r chi.Router) {
		r.Post("/", catalogHandler.CreateService)
		r.Put("/{id}/pricing", catalogHandler.UpdatePricing) // existing bookings keep their price
		r.Put("/{id}/status", catalogHandler.UpdateStatus)
	})
}
