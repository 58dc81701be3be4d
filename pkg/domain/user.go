package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents an identity. Platform users and tenant workers (drivers,
// dispatchers) share the same table; tenant access comes exclusively from
// memberships.
type User struct {
	ID         uuid.UUID
	Email      string
	Name       *string
	Phone      *string
	GlobalRole *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}

// GlobalRolePlatformAdmin marks operators of the platform itself, outside
// any tenant.
const GlobalRolePlatformAdmin = "platform_admin"

// UserPassword stores password credentials separately from user profile.
type UserPassword struct {
	UserID            uuid.UUID
	PasswordHash      string
	PasswordUpdatedAt time.Time
}
