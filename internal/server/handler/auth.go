package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ideadesk/ideadesk/internal/server/middleware"
	"github.com/ideadesk/ideadesk/internal/service"
)

// AuthHandler serves account setup, login, and session endpoints.
type AuthHandler struct {
	auth       *service.AuthService
	sessionTTL time.Duration
	secure     bool
	logger     *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secure controls the session
// cookie's Secure flag; it should be true behind TLS.
func NewAuthHandler(auth *service.AuthService, sessionTTL time.Duration, secure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, sessionTTL: sessionTTL, secure: secure, logger: logger}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SetupStatus reports whether first-time setup is still pending.
// GET /api/auth/setup
func (h *AuthHandler) SetupStatus(w http.ResponseWriter, r *http.Request) {
	required, err := h.auth.SetupRequired(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"setup_required": required})
}

// Setup creates the single account. 409 once an account exists.
// POST /api/auth/setup
func (h *AuthHandler) Setup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.auth.Setup(r.Context(), req.Username, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": u.ID, "username": u.Username})
}

// Login verifies credentials and sets the session cookie.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(token, h.sessionTTL))
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Logout invalidates the current session and clears the cookie.
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(middleware.SessionCookie); err == nil {
		if err := h.auth.Logout(r.Context(), c.Value); err != nil {
			h.logger.Warn("logout failed", "error", err)
		}
	}
	http.SetCookie(w, h.sessionCookie("", -time.Hour))
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user.
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"last_login": u.LastLogin,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword rotates the account password.
// POST /api/auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.auth.ChangePassword(r.Context(), u.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) sessionCookie(token string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
