package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mcoot/wsgate/internal/api/apierr"
	"github.com/mcoot/wsgate/internal/middleware"
)

// Recovery turns handler panics into a JSON 500
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}

// AdminToken guards operator endpoints with a shared bearer token.
// With an empty token the endpoints are disabled.
func AdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				apierr.WriteError(w, apierr.NewForbiddenError("Admin API is disabled"))
				return
			}

			got := extractToken(r)
			if got == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				apierr.WriteError(w, apierr.NewForbiddenError("Invalid admin token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractToken extracts the bearer token from the request
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
