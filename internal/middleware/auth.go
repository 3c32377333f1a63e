package middleware

import (
	"context"
	"net/http"

	"github.com/ayush/docmind/backend/internal/auth"
)

// SessionLookup resolves a session ID to a user ID, "" when unknown.
type SessionLookup interface {
	Get(ctx context.Context, sessionID string) (string, error)
}

// RequireAuth is middleware that validates the session cookie and
// injects the owner's user ID into the request context.
func RequireAuth(sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil {
				http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
				return
			}

			userID, err := sessions.Get(r.Context(), cookie.Value)
			if err != nil || userID == "" {
				http.Error(w, `{"error":"session expired"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}
