package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResourceKind distinguishes the three assignable resource types.
type ResourceKind string

const (
	ResourceKindVehicle ResourceKind = "vehicle"
	ResourceKindDriver  ResourceKind = "driver"
	ResourceKindTrailer ResourceKind = "trailer"
)

// ParseResourceKind validates a raw resource kind string.
func ParseResourceKind(s string) (ResourceKind, error) {
	switch kind := ResourceKind(s); kind {
	case ResourceKindVehicle, ResourceKindDriver, ResourceKindTrailer:
		return kind, nil
	}
	return "", ErrInvalidResourceKind
}

// ResourceStatus is a resource's availability.
type ResourceStatus string

const (
	ResourceStatusActive   ResourceStatus = "ACTIVE"
	ResourceStatusInactive ResourceStatus = "INACTIVE"
)

// Resource is a vehicle, driver, or trailer owned by a tenant. Driver
// resources carry the user ID of the member behind the wheel so the state
// machine can tell the bound driver from other drivers in the tenant.
type Resource struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Kind      ResourceKind
	Name      string
	UserID    *uuid.UUID
	Status    ResourceStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}
