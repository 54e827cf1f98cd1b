package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// RequireAdmin middleware ensures the authenticated user has the admin flag
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			isAdmin, ok := IsAdmin(r.Context())
			if !ok {
				logger.Warn("Admin flag not found in context")
				respondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			if !isAdmin {
				username, _ := GetUsername(r.Context())
				logger.Warn("Non-admin user attempted to access admin endpoint",
					zap.String("username", username),
				)
				respondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
