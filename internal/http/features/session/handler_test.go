package session

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/haulware/dispatch-core/internal/httputil"
)

func testHandler() *Handler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewHandler(logger, nil, httputil.NewCookieConfig("dispatch.example.com", false))
}

func TestRefresh_MissingToken(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "empty body",
			body: `{}`,
		},
		{
			name: "empty refresh_token",
			body: `{"refresh_token": ""}`,
		},
		{
			name: "invalid json",
			body: `{invalid}`,
		},
	}

	handler := testHandler()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Client-Type", "api")
			rec := httptest.NewRecorder()

			handler.Refresh(rec, req)

			// Token resolution fails before the session service is touched.
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}

			var resp map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp["error"] == "" {
				t.Error("expected error message in response")
			}
		})
	}
}

func TestLogout_NoSessionStillClearsCookies(t *testing.T) {
	handler := testHandler()

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()

	handler.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	cleared := 0
	for _, c := range rec.Result().Cookies() {
		if (c.Name == "access_token" || c.Name == "refresh_token") && c.MaxAge < 0 {
			cleared++
		}
	}
	if cleared != 2 {
		t.Errorf("cleared %d auth cookies, want 2", cleared)
	}
}
