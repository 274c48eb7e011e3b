package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// SessionCookie is the cookie carrying the opaque session token.
const SessionCookie = "ideadesk_session"

type contextKey string

const userKey contextKey = "user"

// Authenticator resolves a session token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.User, error)
}

// Auth returns middleware that requires a valid session on every request.
// The token comes from the session cookie or an Authorization bearer header;
// the resolved user is stored on the request context.
func Auth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.Authenticate(r.Context(), extractToken(r))
			if err != nil {
				writeUnauthorized(w, "authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
		})
	}
}

// UserFrom returns the authenticated user stored on the context, if any.
func UserFrom(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userKey).(domain.User)
	return u, ok
}

// extractToken looks for the session token in the session cookie, then in
// the Authorization header (Bearer scheme).
func extractToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
