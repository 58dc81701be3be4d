package tenant

import (
	"context"
	"net"
	"strings"

	"github.com/haulware/dispatch-core/pkg/domain"
)

// TenantStore is the lookup the resolver needs.
type TenantStore interface {
	GetByCode(ctx context.Context, code string) (*domain.Tenant, error)
}

// Resolver maps a request origin to a tenant. Resolution is a pure lookup:
// the hostname label is normalized and matched exactly against tenant
// codes, never fuzzily.
type Resolver struct {
	baseDomains []string
	reserved    map[string]struct{}
	tenants     TenantStore
}

// NewResolver creates a resolver for the given base domains. Reserved
// labels (app, www, demo, ...) resolve to platform context instead of a
// tenant.
func NewResolver(baseDomains, reserved []string, tenants TenantStore) *Resolver {
	r := &Resolver{
		tenants:  tenants,
		reserved: make(map[string]struct{}, len(reserved)),
	}
	for _, d := range baseDomains {
		r.baseDomains = append(r.baseDomains, strings.ToLower(strings.TrimSpace(d)))
	}
	for _, label := range reserved {
		r.reserved[strings.ToLower(strings.TrimSpace(label))] = struct{}{}
	}
	return r
}

// Resolve maps a request host to its tenant. The bare base domain, a
// reserved label, and hosts outside the base domains all resolve to
// platform context, returned as (nil, nil). An unknown label is
// ErrTenantNotFound; a deactivated tenant is ErrTenantInactive.
func (r *Resolver) Resolve(ctx context.Context, host string) (*domain.Tenant, error) {
	label, ok := r.tenantLabel(host)
	if !ok {
		return nil, nil
	}
	return r.ResolveCode(ctx, label)
}

// ResolveCode resolves an explicit tenant code. Casing differences must
// resolve identically, so the code is lowercased before the exact lookup.
func (r *Resolver) ResolveCode(ctx context.Context, code string) (*domain.Tenant, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.ErrTenantNotFound
	}

	tenant, err := r.tenants.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !tenant.Active {
		return nil, domain.ErrTenantInactive
	}
	return tenant, nil
}

// IsReserved reports whether a label is in the reserved default set.
func (r *Resolver) IsReserved(label string) bool {
	_, ok := r.reserved[strings.ToLower(label)]
	return ok
}

// tenantLabel strips the base domain off a host and returns the candidate
// tenant code, or ok=false for platform-level hosts.
func (r *Resolver) tenantLabel(host string) (string, bool) {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	for _, base := range r.baseDomains {
		if host == base {
			return "", false
		}
		label, found := strings.CutSuffix(host, "."+base)
		if !found {
			continue
		}
		if _, reserved := r.reserved[label]; reserved {
			return "", false
		}
		return label, true
	}

	// Hosts outside every base domain (load balancer health probes, raw
	// IPs) carry no tenant context.
	return "", false
}
