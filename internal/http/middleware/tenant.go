package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/haulware/dispatch-core/internal/httputil"
	"github.com/haulware/dispatch-core/pkg/domain"
	"github.com/haulware/dispatch-core/pkg/tenant"
)

const (
	// TenantKey is the context key for the resolved tenant.
	TenantKey contextKey = "tenant"
)

// ResolveTenant creates middleware that resolves the request host to a
// tenant. Platform-level hosts (reserved labels, bare base domain) pass
// through with no tenant in context; an unknown subdomain is a 404.
// Resolution runs on every request so a deactivated tenant locks out
// immediately.
func ResolveTenant(resolver *tenant.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t, err := resolver.Resolve(r.Context(), r.Host)
			if err != nil {
				if errors.Is(err, domain.ErrTenantNotFound) || errors.Is(err, domain.ErrTenantInactive) {
					httputil.Error(w, http.StatusNotFound, "unknown tenant")
					return
				}
				httputil.Error(w, http.StatusInternalServerError, "tenant resolution failed")
				return
			}

			if t != nil {
				r = r.WithContext(context.WithValue(r.Context(), TenantKey, t))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireTenant creates middleware that rejects requests without tenant
// context. Placed after ResolveTenant on tenant-scoped routes.
func RequireTenant() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetTenant(r.Context()); !ok {
				httputil.Error(w, http.StatusNotFound, "no tenant context")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetTenant extracts the resolved tenant from the request context.
func GetTenant(ctx context.Context) (*domain.Tenant, bool) {
	t, ok := ctx.Value(TenantKey).(*domain.Tenant)
	return t, ok
}
