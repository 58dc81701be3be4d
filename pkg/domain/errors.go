package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Authentication errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrSessionRevoked     = errors.New("session revoked")
	ErrInvalidToken       = errors.New("invalid token")
)

// Tenancy errors
var (
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrTenantInactive      = errors.New("tenant is deactivated")
	ErrTenantCodeTaken     = errors.New("tenant code already taken")
	ErrInvalidTenantCode   = errors.New("invalid tenant code")
	ErrMembershipNotFound  = errors.New("membership not found")
	ErrMembershipExists    = errors.New("membership already exists")
	ErrNotAMember          = errors.New("identity is not a member of this tenant")
	ErrInsufficientRole    = errors.New("membership role does not permit this action")
	ErrNotAssignee         = errors.New("actor is not the driver bound to this trip")
)

// Trip and resource errors
var (
	ErrTripNotFound        = errors.New("trip not found")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidResourceKind = errors.New("invalid resource kind")
	ErrResourceNotFound    = errors.New("resource not found")
	ErrResourceNotInTenant = errors.New("resource belongs to a different tenant")
	ErrResourceUnavailable = errors.New("resource is not available")
	ErrResourceAlreadyBusy = errors.New("resource is bound to another in-flight trip")
	ErrAssignmentIncomplete = errors.New("trip needs both a vehicle and a driver bound")
	ErrConflict            = errors.New("concurrent update conflict, re-fetch and retry")
)

// Validation errors
var (
	ErrInvalidEmail  = errors.New("invalid email address")
	ErrWeakPassword  = errors.New("password does not meet requirements")
)

// InvalidTransitionError reports an attempted status change that is not a
// row of the transition table. It carries both statuses so the caller can
// refresh and show the real state.
type InvalidTransitionError struct {
	TripID uuid.UUID
	From   TripStatus
	To     TripStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s for trip %s", e.From, e.To, e.TripID)
}
