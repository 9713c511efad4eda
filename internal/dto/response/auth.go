package response

import (
	"time"

	"service-booking/internal/data/entity"
)

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

type UserResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Phone      *string         `json:"phone,omitempty"`
	Role       entity.UserRole `json:"role"`
	IsVerified bool            `json:"is_verified"`
	CreatedAt  time.Time       `json:"created_at"`
}

func UserToResponse(user *entity.User) UserResponse {
	return UserResponse{
		ID:         user.ID.String(),
		Name:       user.Name,
		Email:      user.Email,
		Phone:      user.Phone,
		Role:       user.Role,
		IsVerified: user.EmailVerified,
		CreatedAt:  user.CreatedAt,
	}
}
