package middleware

import (
	"net/http"
	"strings"

	"service-booking/pkg/utils"

	"go.uber.org/zap"
)

// Auth validates the bearer token and puts the caller's id and role into the request context.
func Auth(tokens *utils.TokenIssuer, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}

			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			actor, err := tokens.Parse(token)
			if err != nil {
				logger.Warn("Invalid or expired token",
					zap.Error(err),
					zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := utils.SetUserContext(r.Context(), actor.UserID, actor.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets the request through only when the caller's role is one of roles. Must run after Auth.
func RequireRole(logger *zap.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := utils.GetActorFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("Role check: access denied",
				zap.String("user_id", actor.UserID.String()),
				zap.String("role", actor.Role),
				zap.String("path", r.URL.Path))
			utils.ResponseForbidden(w, strings.Join(roles, " or ")+" access required")
		})
	}
}
