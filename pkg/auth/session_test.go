package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/haulware/dispatch-core/pkg/domain"
)

func testSessionService(secret string) *SessionService {
	return NewSessionService(SessionConfig{
		JWTSecret: []byte(secret),
		Issuer:    "dispatch-core-test",
	}, nil, nil)
}

func signTestToken(t *testing.T, svc *SessionService, now time.Time) (string, *domain.User, uuid.UUID) {
	t.Helper()
	name := "Test Driver"
	user := &domain.User{
		ID:    uuid.New(),
		Email: "driver@example.com",
		Name:  &name,
	}
	sessionID := uuid.New()
	pair, err := svc.signAccessToken(user, sessionID, "refresh-token", now)
	if err != nil {
		t.Fatalf("signAccessToken: %v", err)
	}
	return pair.AccessToken, user, sessionID
}

func TestValidateAccessToken(t *testing.T) {
	svc := testSessionService("test-secret-key")
	token, user, sessionID := signTestToken(t, svc, time.Now())

	claims, err := svc.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}

	if claims.Subject != user.ID.String() {
		t.Errorf("subject = %q, want %q", claims.Subject, user.ID)
	}
	if claims.ID != sessionID.String() {
		t.Errorf("session id = %q, want %q", claims.ID, sessionID)
	}
	if claims.Email != user.Email {
		t.Errorf("email = %q, want %q", claims.Email, user.Email)
	}
	if claims.Issuer != "dispatch-core-test" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestValidateAccessTokenRejectsWrongSecret(t *testing.T) {
	svc := testSessionService("test-secret-key")
	token, _, _ := signTestToken(t, svc, time.Now())

	other := testSessionService("different-secret")
	if _, err := other.ValidateAccessToken(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("wrong secret error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateAccessTokenRejectsExpired(t *testing.T) {
	svc := testSessionService("test-secret-key")
	token, _, _ := signTestToken(t, svc, time.Now().Add(-time.Hour))

	if _, err := svc.ValidateAccessToken(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expired token error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateAccessTokenRejectsGarbage(t *testing.T) {
	svc := testSessionService("test-secret-key")
	if _, err := svc.ValidateAccessToken("not.a.jwt"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("garbage token error = %v, want ErrInvalidToken", err)
	}
}

func TestSessionValidity(t *testing.T) {
	now := time.Now()
	revoked := now.Add(-time.Minute)

	tests := []struct {
		name    string
		session domain.Session
		want    bool
	}{
		{
			name:    "live session",
			session: domain.Session{ExpiresAt: now.Add(time.Hour)},
			want:    true,
		},
		{
			name:    "expired session",
			session: domain.Session{ExpiresAt: now.Add(-time.Hour)},
			want:    false,
		},
		{
			name:    "revoked session",
			session: domain.Session{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}
