package middleware

import (
	"context"
	"errors"
	"net/http"

	"beerzone-pos/internal/model"
	"beerzone-pos/internal/service"
	"beerzone-pos/pkg/apierror"
)

// IdentityKey is the key for storing the signed-in user in request context.
const IdentityKey contextKey = "identity"

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// Verifier checks bearer tokens. Nil disables authentication.
	Verifier *service.IdentityVerifier
}

// publicPaths never require a signed-in user.
var publicPaths = map[string]bool{
	"/api/v1/health": true,
	"/api/v1/ready":  true,
	"/api/status":    true,
	"/metrics":       true,
}

// NewAuthMiddleware creates an authentication middleware with injected dependencies.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Verifier == nil || publicPaths[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := cfg.Verifier.Verify(r.Header.Get("Authorization"))
			if err != nil {
				switch {
				case errors.Is(err, service.ErrMissingToken):
					writeError(w, apierror.Unauthorized("Authentication required. Send a bearer token."))
				case errors.Is(err, service.ErrExpiredToken):
					writeError(w, apierror.Unauthorized("Token has expired"))
				default:
					writeError(w, apierror.Unauthorized("Invalid token"))
				}
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}

// GetIdentity retrieves the signed-in user from request context.
func GetIdentity(ctx context.Context) *model.Identity {
	if id, ok := ctx.Value(IdentityKey).(*model.Identity); ok {
		return id
	}
	return nil
}
