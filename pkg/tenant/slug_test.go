package tenant

import (
	"errors"
	"strings"
	"testing"

	"github.com/haulware/dispatch-core/pkg/domain"
)

func TestValidateCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{
			name: "simple slug",
			code: "acme",
		},
		{
			name: "with digits",
			code: "acme42",
		},
		{
			name: "with hyphens",
			code: "acme-west-2",
		},
		{
			name: "minimum length",
			code: "abc",
		},
		{
			name: "maximum length",
			code: strings.Repeat("a", 63),
		},
		{
			name:    "too short",
			code:    "ab",
			wantErr: true,
		},
		{
			name:    "too long",
			code:    strings.Repeat("a", 64),
			wantErr: true,
		},
		{
			name:    "uppercase rejected",
			code:    "Acme",
			wantErr: true,
		},
		{
			name:    "leading hyphen",
			code:    "-acme",
			wantErr: true,
		},
		{
			name:    "trailing hyphen",
			code:    "acme-",
			wantErr: true,
		},
		{
			name:    "underscore",
			code:    "acme_co",
			wantErr: true,
		},
		{
			name:    "dot",
			code:    "acme.co",
			wantErr: true,
		},
		{
			name:    "space",
			code:    "acme co",
			wantErr: true,
		},
		{
			name:    "empty",
			code:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCode(tt.code)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidTenantCode) {
					t.Errorf("ValidateCode(%q) = %v, want ErrInvalidTenantCode", tt.code, err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateCode(%q) unexpected error: %v", tt.code, err)
			}
		})
	}
}
