package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/rswarnkar/converse/internal/services"
)

type contextKey string

const claimsKey contextKey = "claims"

// RequireAuth rejects requests without a valid bearer token and stashes the
// verified claims in the request context.
func RequireAuth(auth *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := auth.VerifyToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func claimsFromContext(ctx context.Context) *services.TokenClaims {
	claims, _ := ctx.Value(claimsKey).(*services.TokenClaims)
	return claims
}
