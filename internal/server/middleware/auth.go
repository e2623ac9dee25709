package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/anibalssilva/tech-challenge-books-api/internal/auth"
	"github.com/anibalssilva/tech-challenge-books-api/internal/model"
)

type contextKeyAuth string

// CurrentUserKey is the context key for the authenticated identity.
const CurrentUserKey contextKeyAuth = "current_user"

// Authenticate returns an HTTP middleware that resolves the request's
// Authorization Bearer token to an identity. The identity lookup hits the
// credential store on every request, so a disabled account loses access on
// its very next call regardless of token expiry.
//
// Missing, invalid, and expired tokens all produce a 401 with a
// WWW-Authenticate: Bearer challenge; the expired case carries a distinct
// detail so clients know to refresh.
func Authenticate(authSvc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeChallenge(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")

			user, err := authSvc.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					writeChallenge(w, http.StatusUnauthorized, "Token expired")
					return
				}
				writeChallenge(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}

			ctx := context.WithValue(r.Context(), CurrentUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActive returns an HTTP middleware that rejects disabled identities.
// It must run after Authenticate and before RequireAdmin, so a disabled
// admin is refused for being disabled, not for lacking privilege.
func RequireActive() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetCurrentUser(r.Context())
			if user == nil {
				writeChallenge(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if user.Disabled {
				writeAuthError(w, http.StatusForbidden, "Inactive user")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin returns an HTTP middleware that enforces admin-level access.
// It must be used after Authenticate and RequireActive in the chain.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetCurrentUser(r.Context())
			if user == nil || !user.Admin {
				writeAuthError(w, http.StatusForbidden, "Admin privileges required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetCurrentUser extracts the authenticated identity from the context.
// Returns nil for an unauthenticated request.
func GetCurrentUser(ctx context.Context) *model.User {
	if u, ok := ctx.Value(CurrentUserKey).(*model.User); ok {
		return u
	}
	return nil
}

func writeChallenge(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeAuthError(w, status, detail)
}

func writeAuthError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Detail: detail})
}
