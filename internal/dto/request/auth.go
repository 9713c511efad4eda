package request

type RegisterRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=100"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,min=10,max=15"`
	Role     string  `json:"role" validate:"omitempty,oneof=customer provider"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SendOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,oneof=email_verification password_reset"`
}

// VerifyOTPRequest redeems an email verification code; reset codes go through ResetPasswordRequest.
type VerifyOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,oneof=email_verification"`
	Code    string `json:"code" validate:"required,numeric,min=4,max=10"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,numeric,min=4,max=10"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}
