package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/haulware/dispatch-core/pkg/domain"
	"github.com/haulware/dispatch-core/pkg/tenant"
)

type stubTenantStore struct {
	tenant *domain.Tenant
}

func (s *stubTenantStore) GetByCode(_ context.Context, code string) (*domain.Tenant, error) {
	if s.tenant != nil && s.tenant.Code == code {
		return s.tenant, nil
	}
	return nil, domain.ErrTenantNotFound
}

func TestResolveTenant(t *testing.T) {
	acme := &domain.Tenant{ID: uuid.New(), Code: "acme", Name: "Acme Logistics", Active: true}
	resolver := tenant.NewResolver(
		[]string{"dispatch.example.com"},
		[]string{"app", "www"},
		&stubTenantStore{tenant: acme},
	)

	var gotTenant *domain.Tenant
	var hadTenant bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant, hadTenant = GetTenant(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := ResolveTenant(resolver)(next)

	tests := []struct {
		name       string
		host       string
		wantStatus int
		wantTenant bool
	}{
		{
			name:       "tenant subdomain resolves",
			host:       "acme.dispatch.example.com",
			wantStatus: http.StatusOK,
			wantTenant: true,
		},
		{
			name:       "bare base domain is platform context",
			host:       "dispatch.example.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "reserved label is platform context",
			host:       "app.dispatch.example.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown subdomain is 404",
			host:       "nosuch.dispatch.example.com",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotTenant, hadTenant = nil, false

			req := httptest.NewRequest("GET", "/v1/trips", nil)
			req.Host = tt.host
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if hadTenant != tt.wantTenant {
				t.Fatalf("tenant in context = %v, want %v", hadTenant, tt.wantTenant)
			}
			if tt.wantTenant && gotTenant.ID != acme.ID {
				t.Errorf("tenant = %+v, want acme", gotTenant)
			}
		})
	}
}

func TestRequireTenant(t *testing.T) {
	handler := RequireTenant()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// No tenant in context: tenant-scoped routes 404.
	req := httptest.NewRequest("GET", "/v1/trips", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status without tenant = %d, want 404", w.Code)
	}

	// Tenant present: passes through.
	acme := &domain.Tenant{ID: uuid.New(), Code: "acme", Active: true}
	ctx := context.WithValue(req.Context(), TenantKey, acme)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req.WithContext(ctx))
	if w.Code != http.StatusOK {
		t.Errorf("status with tenant = %d, want 200", w.Code)
	}
}
