package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

type contextKey string

const principalKey contextKey = "auth_principal"

// WithPrincipal stores p in ctx
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated principal, or nil
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// RequireOwner rejects requests without a valid owner token
func RequireOwner(a *Authenticator, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := a.Authenticate(r.Header.Get("Authorization"))
			if err != nil {
				logger.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected request without valid token")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"error": map[string]string{
						"kind":    "auth",
						"message": "invalid or expired token",
					},
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
