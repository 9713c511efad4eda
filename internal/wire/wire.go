// internal/wire/wire.go
package wire

import (
	"net/http"

	"service-booking/internal/adaptor"
	"service-booking/internal/data/repository"
	"service-booking/internal/usecase"
	"service-booking/pkg/middleware"
	"service-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the wired router and the services behind it
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds services and handlers and mounts every route
func Wiring(repo *repository.Repository, config *utils.Config, deps usecase.Deps, logger *zap.Logger) *App {
	service := usecase.NewService(repo, config, deps, logger)
	handler := adaptor.NewHandler(service, logger)

	router := setupRouter(handler, deps.Tokens, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

// setupRouter configures the chi router
func setupRouter(handler *adaptor.Handler, tokens *utils.TokenIssuer, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	// Apply routes
	wireAuth(r, handler.Auth, tokens, logger)
	wireCatalog(r, handler.Catalog, tokens, logger)
	wireBooking(r, handler.Booking, handler.Payment, handler.Job, tokens, logger)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}
