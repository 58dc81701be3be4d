package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is a tenant-scoped role carried by a membership. Roles form a chain
// for read-style checks (admin covers dispatcher covers driver covers
// viewer); self-scoped driver actions additionally require the actor to be
// the bound driver, which is checked separately.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleDriver     Role = "driver"
	RoleDispatcher Role = "dispatcher"
	RoleAdmin      Role = "admin"
)

var roleRank = map[Role]int{
	RoleViewer:     0,
	RoleDriver:     1,
	RoleDispatcher: 2,
	RoleAdmin:      3,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r satisfies the required role in the role chain.
func (r Role) AtLeast(required Role) bool {
	rr, ok := roleRank[r]
	if !ok {
		return false
	}
	qr, ok := roleRank[required]
	if !ok {
		return false
	}
	return rr >= qr
}

// MembershipStatus represents the state of a user's membership.
type MembershipStatus string

const (
	MembershipStatusInvited   MembershipStatus = "invited"
	MembershipStatusActive    MembershipStatus = "active"
	MembershipStatusSuspended MembershipStatus = "suspended"
)

// Membership links one identity to one tenant with a tenant-scoped role.
// At most one membership exists per (user, tenant) pair.
type Membership struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Role      Role
	Status    MembershipStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// IsActive returns true if the membership is active.
func (m *Membership) IsActive() bool {
	return m.Status == MembershipStatusActive && m.DeletedAt == nil
}
