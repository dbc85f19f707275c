package api

import (
	"context"
	"net/http"
	"strings"

	"carpool/internal/auth"
	"carpool/internal/trip"
)

type identityCtxKey struct{}

func identityFromContext(ctx context.Context) (trip.Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(trip.Identity)
	return id, ok
}

// tokenMiddleware resolves the bearer token into an Identity on the request
// context. Without a token manager configured, requests pass through
// anonymously.
func tokenMiddleware(tokens *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokens == nil {
				next.ServeHTTP(w, r)
				return
			}
			token := parseToken(r)
			if token == "" {
				respondError(w, http.StatusUnauthorized, "missing token")
				return
			}
			claims, err := tokens.ParseToken(token)
			if err != nil {
				respondError(w, http.StatusForbidden, "invalid token")
				return
			}
			identity := trip.Identity{UserID: claims.UserID, Role: claims.Role}
			ctx := context.WithValue(r.Context(), identityCtxKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireRole gates a route on the caller's role. It runs after
// tokenMiddleware; an anonymous request (no manager configured) passes.
func requireRole(allowed ...trip.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identityFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			for _, role := range allowed {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondError(w, http.StatusForbidden, "forbidden")
		})
	}
}

func parseToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	return ""
}
