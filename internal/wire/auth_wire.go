package wire

import (
	"service-booking/internal/adaptor"
	"service-booking/pkg/middleware"
	"service-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAuth(
	r chi.Router,
	authHandler *adaptor.AuthHandler,
	tokens *utils.TokenIssuer,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/send-otp", authHandler.SendOTP)
		r.Post("/verify-otp", authHandler.VerifyOTP)
		r.Post("/reset-password", authHandler.ResetPassword)
	})

	// ==================== PROTECTED ROUTES ====================
	r.With(middleware.Auth(tokens, log)).Get("/api/user/profile", authHandler.GetProfile)
}
