package authz

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/haulware/dispatch-core/pkg/domain"
)

// MembershipStore is the lookup the authorizer needs.
type MembershipStore interface {
	GetByUserAndTenant(ctx context.Context, userID, tenantID uuid.UUID) (*domain.Membership, error)
}

// Authorizer decides whether an identity may act within a tenant. It is
// evaluated fresh on every request, with no caching beyond the session
// credential itself, so a revoked membership takes effect immediately.
type Authorizer struct {
	memberships MembershipStore
}

// NewAuthorizer creates a new authorizer.
func NewAuthorizer(memberships MembershipStore) *Authorizer {
	return &Authorizer{memberships: memberships}
}

// Authorize returns the actor's membership in the tenant when its role
// satisfies required. A missing or inactive membership is ErrNotAMember; a
// present membership below the required role is ErrInsufficientRole.
func (a *Authorizer) Authorize(ctx context.Context, userID, tenantID uuid.UUID, required domain.Role) (*domain.Membership, error) {
	membership, err := a.memberships.GetByUserAndTenant(ctx, userID, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrMembershipNotFound) {
			return nil, domain.ErrNotAMember
		}
		return nil, err
	}

	if !membership.IsActive() {
		return nil, domain.ErrNotAMember
	}

	if !membership.Role.AtLeast(required) {
		return nil, domain.ErrInsufficientRole
	}

	return membership, nil
}
