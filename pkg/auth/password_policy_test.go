package auth

import (
	"errors"
	"testing"

	"github.com/haulware/dispatch-core/pkg/domain"
)

func TestValidatePassword(t *testing.T) {
	strict := &PasswordPolicy{
		MinLength:        10,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumber:    true,
	}

	tests := []struct {
		name     string
		policy   *PasswordPolicy
		password string
		wantErr  bool
	}{
		{
			name:     "default policy accepts 8 chars",
			policy:   DefaultPasswordPolicy(),
			password: "12345678",
		},
		{
			name:     "default policy rejects 7 chars",
			policy:   DefaultPasswordPolicy(),
			password: "1234567",
			wantErr:  true,
		},
		{
			name:     "strict policy full match",
			policy:   strict,
			password: "Sup3rSecret!",
		},
		{
			name:     "strict policy missing uppercase",
			policy:   strict,
			password: "sup3rsecret!",
			wantErr:  true,
		},
		{
			name:     "strict policy missing lowercase",
			policy:   strict,
			password: "SUP3RSECRET!",
			wantErr:  true,
		},
		{
			name:     "strict policy missing number",
			policy:   strict,
			password: "SuperSecret!",
			wantErr:  true,
		},
		{
			name:     "strict policy too short",
			policy:   strict,
			password: "Sup3r!",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.ValidatePassword(tt.password)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrWeakPassword) {
					t.Errorf("ValidatePassword(%q) = %v, want ErrWeakPassword", tt.password, err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidatePassword(%q) unexpected error: %v", tt.password, err)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	email, err := NormalizeEmail("  Driver@Example.COM ")
	if err != nil {
		t.Fatalf("NormalizeEmail: %v", err)
	}
	if email != "driver@example.com" {
		t.Errorf("NormalizeEmail = %q, want driver@example.com", email)
	}

	if _, err := NormalizeEmail("not-an-email"); !errors.Is(err, domain.ErrInvalidEmail) {
		t.Errorf("invalid email error = %v, want ErrInvalidEmail", err)
	}
}
