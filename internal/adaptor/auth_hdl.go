package adaptor

import (
	"net/http"

	"service-booking/internal/dto/request"
	"service-booking/internal/usecase"
	"service-booking/pkg/utils"

	"go.uber.org/zap"
)

type AuthHandler struct {
	service usecase.AuthService
	log     *zap.Logger
}

func NewAuthHandler(service usecase.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		log:     log.With(zap.String("handler", "auth")),
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// Validate request
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	response, err := h.service.Register(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "register")
		return
	}

	utils.ResponseCreated(w, "Registration successful. Check logs for OTP.", response)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	response, err := h.service.Login(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "login")
		return
	}

	utils.ResponseSuccess(w, "Login successful", response)
}

// SendOTP handles POST /api/auth/send-otp
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req request.SendOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.SendOTP(r.Context(), &req); err != nil {
		handleServiceError(w, h.log, err, "send OTP")
		return
	}

	utils.ResponseSuccess(w, "OTP sent successfully (check console/logs)", nil)
}

// VerifyOTP handles POST /api/auth/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req request.VerifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.VerifyOTP(r.Context(), &req); err != nil {
		handleServiceError(w, h.log, err, "verify OTP")
		return
	}

	utils.ResponseSuccess(w, "Code verified successfully", nil)
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req request.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), &req); err != nil {
		handleServiceError(w, h.log, err, "reset password")
		return
	}

	utils.ResponseSuccess(w, "Password updated successfully", nil)
}

// GetProfile handles GET /api/user/profile (protected)
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	profile, err := h.service.Profile(r.Context(), actor)
	if err != nil {
		handleServiceError(w, h.log, err, "get profile")
		return
	}

	utils.ResponseSuccess(w, "success", profile)
}
