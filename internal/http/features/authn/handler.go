package authn

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/haulware/dispatch-core/internal/httputil"
	"github.com/haulware/dispatch-core/pkg/auth"
	"github.com/haulware/dispatch-core/pkg/domain"
)

// Handler handles password login.
type Handler struct {
	logger    *slog.Logger
	passwords *auth.PasswordService
	sessions  *auth.SessionService
	cookies   httputil.CookieConfig
}

// NewHandler creates a new login handler.
func NewHandler(logger *slog.Logger, passwords *auth.PasswordService, sessions *auth.SessionService, cookies httputil.CookieConfig) *Handler {
	return &Handler{
		logger:    logger,
		passwords: passwords,
		sessions:  sessions,
		cookies:   cookies,
	}
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned on successful authentication. Browser clients
// get the same tokens as HttpOnly cookies on the shared base domain, so
// the session carries across every tenant subdomain.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Login authenticates a user by email and password and issues a session.
// POST /v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.passwords.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			httputil.Error(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.logger.Error("login failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "login failed")
		return
	}

	pair, err := h.sessions.IssueSession(r.Context(), user.ID, auth.IssueSessionOpts{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.logger.Error("session issuance failed", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "login failed")
		return
	}

	resp := TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
		ExpiresAt:    pair.ExpiresAt,
	}

	if !httputil.IsAPIClient(r) {
		httputil.SetAuthCookies(w, pair.AccessToken, pair.RefreshToken,
			h.sessions.AccessTokenTTL(), h.sessions.RefreshTokenTTL(), h.cookies)
		// Browser clients hold the refresh token in the cookie only.
		resp.RefreshToken = ""
	}

	httputil.JSON(w, http.StatusOK, resp)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
