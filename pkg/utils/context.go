package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RoleKey   contextKey = "role"
)

// Actor is the authenticated caller supplied by the identity layer.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok && role != ""
}

// GetActorFromContext returns the caller identity set by the auth middleware.
func GetActorFromContext(ctx context.Context) (Actor, bool) {
	userID, ok := GetUserIDFromContext(ctx)
	if !ok {
		return Actor{}, false
	}
	role, ok := GetRoleFromContext(ctx)
	if !ok {
		return Actor{}, false
	}
	return Actor{UserID: userID, Role: role}, true
}

func SetUserContext(ctx context.Context, userID uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, RoleKey, role)
	return ctx
}
