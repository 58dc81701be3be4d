package trip

import (
	"context"

	"github.com/google/uuid"
	"github.com/haulware/dispatch-core/pkg/domain"
)

// TripStore is the persistence the state machine needs. ApplyTransition
// must commit the status change and its audit record atomically, gated by
// the version the caller read, returning domain.ErrConflict when another
// writer got there first. The service checks availability before writing,
// but that check races with writes to other trips: UpdateAssignment and
// ApplyTransition must themselves reject a write that would leave a driver
// or vehicle bound to two in-flight trips, returning
// domain.ErrResourceAlreadyBusy.
type TripStore interface {
	Create(ctx context.Context, trip *domain.Trip) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error)
	UpdateAssignment(ctx context.Context, trip *domain.Trip) error
	ApplyTransition(ctx context.Context, trip *domain.Trip, to domain.TripStatus, record *domain.StatusTransition) error
	ResourceInUse(ctx context.Context, kind domain.ResourceKind, resourceID, excludeTripID uuid.UUID) (bool, error)
}

// ResourceStore resolves resource references during assignment validation.
type ResourceStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error)
}
