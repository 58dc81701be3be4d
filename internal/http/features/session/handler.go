package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/haulware/dispatch-core/internal/http/middleware"
	"github.com/haulware/dispatch-core/internal/httputil"
	"github.com/haulware/dispatch-core/pkg/auth"
	"github.com/haulware/dispatch-core/pkg/domain"
)

// Handler handles session refresh and revocation.
type Handler struct {
	logger   *slog.Logger
	sessions *auth.SessionService
	cookies  httputil.CookieConfig
}

// NewHandler creates a new session handler.
func NewHandler(logger *slog.Logger, sessions *auth.SessionService, cookies httputil.CookieConfig) *Handler {
	return &Handler{logger: logger, sessions: sessions, cookies: cookies}
}

// RefreshRequest carries the refresh token for API clients. Browser
// clients send it in the cookie instead.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse is returned on successful refresh.
type RefreshResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Refresh exchanges a valid refresh token for a new access token.
// POST /v1/auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken, fromCookie := h.refreshToken(r)
	if refreshToken == "" {
		httputil.Error(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	pair, err := h.sessions.RefreshSession(r.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound),
			errors.Is(err, domain.ErrSessionExpired),
			errors.Is(err, domain.ErrSessionRevoked):
			if fromCookie {
				httputil.ClearAuthCookies(w, h.cookies)
			}
			httputil.Error(w, http.StatusUnauthorized, "invalid or expired session")
		default:
			h.logger.Error("refresh failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "refresh failed")
		}
		return
	}

	resp := RefreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
		ExpiresAt:    pair.ExpiresAt,
	}

	if fromCookie {
		httputil.SetAuthCookies(w, pair.AccessToken, pair.RefreshToken,
			h.sessions.AccessTokenTTL(), h.sessions.RefreshTokenTTL(), h.cookies)
		resp.RefreshToken = ""
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// Logout revokes the current session. Revocation is idempotent: logging
// out an already-dead session still succeeds and clears cookies.
// POST /v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	refreshToken, fromCookie := h.refreshToken(r)

	if refreshToken != "" {
		if err := h.sessions.RevokeSession(r.Context(), refreshToken); err != nil &&
			!errors.Is(err, domain.ErrSessionNotFound) {
			h.logger.Error("logout failed", "error", err)
		}
	}

	if fromCookie || !httputil.IsAPIClient(r) {
		httputil.ClearAuthCookies(w, h.cookies)
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// LogoutAll revokes every session of the authenticated user.
// POST /v1/auth/logout/all
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.sessions.RevokeAllSessions(r.Context(), userID); err != nil {
		h.logger.Error("logout-all failed", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "logout failed")
		return
	}

	if !httputil.IsAPIClient(r) {
		httputil.ClearAuthCookies(w, h.cookies)
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "all sessions revoked"})
}

func (h *Handler) refreshToken(r *http.Request) (token string, fromCookie bool) {
	if token, ok := httputil.GetRefreshTokenFromCookie(r); ok && token != "" {
		return token, true
	}
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		return req.RefreshToken, false
	}
	return "", false
}
