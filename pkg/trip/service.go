package trip

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/haulware/dispatch-core/pkg/authz"
	"github.com/haulware/dispatch-core/pkg/domain"
)

// Service is the trip lifecycle state machine and assignment validator.
// Every status change in the system funnels through Transition, so no two
// call sites can disagree on what a legal move is.
type Service struct {
	trips      TripStore
	resources  ResourceStore
	authorizer *authz.Authorizer
}

// NewService creates a new trip service.
func NewService(trips TripStore, resources ResourceStore, authorizer *authz.Authorizer) *Service {
	return &Service{
		trips:      trips,
		resources:  resources,
		authorizer: authorizer,
	}
}

// Optional is a tri-state PATCH field: unspecified (leave unchanged),
// null (clear), or a value.
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

// CreateInput holds the fields of a new trip. Resource references are
// optional at creation; whatever is provided is validated before binding.
type CreateInput struct {
	TenantID      uuid.UUID
	CustomerName  *string
	PickupSite    *string
	DeliverySite  *string
	FreightCharge int64
	DriverPayment int64
	VehicleID     *uuid.UUID
	DriverID      *uuid.UUID
	TrailerID     *uuid.UUID
}

// Create creates a trip in status NEW. The actor needs dispatcher role in
// the tenant.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, in CreateInput) (*domain.Trip, error) {
	if _, err := s.authorizer.Authorize(ctx, actorID, in.TenantID, domain.RoleDispatcher); err != nil {
		return nil, err
	}

	now := time.Now()
	trip := &domain.Trip{
		ID:            uuid.New(),
		TenantID:      in.TenantID,
		CustomerName:  in.CustomerName,
		PickupSite:    in.PickupSite,
		DeliverySite:  in.DeliverySite,
		Status:        domain.TripStatusNew,
		PaymentStatus: domain.PaymentStatusUnpaid,
		FreightCharge: in.FreightCharge,
		DriverPayment: in.DriverPayment,
		VehicleID:     in.VehicleID,
		DriverID:      in.DriverID,
		TrailerID:     in.TrailerID,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.validateAssignment(ctx, trip, trip.VehicleID, trip.DriverID, trip.TrailerID); err != nil {
		return nil, err
	}

	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// AssignmentPatch carries the resource references of a PATCH. Unspecified
// fields keep their binding; null fields release it.
type AssignmentPatch struct {
	VehicleID Optional[uuid.UUID]
	DriverID  Optional[uuid.UUID]
	TrailerID Optional[uuid.UUID]
}

func (p AssignmentPatch) apply(current *uuid.UUID, field Optional[uuid.UUID]) *uuid.UUID {
	if !field.IsSpecified() {
		return current
	}
	if field.IsNull() {
		return nil
	}
	v := field.Value()
	return &v
}

// Assign binds or releases vehicle/driver/trailer references on a trip.
// Partial assignment is allowed; every change re-validates all proposed
// references. The write is version-checked: a racing assignment on the same
// trip loses with domain.ErrConflict, and one racing a binding of the same
// driver or vehicle on another in-flight trip loses with
// domain.ErrResourceAlreadyBusy at the store.
func (s *Service) Assign(ctx context.Context, actorID, tripID uuid.UUID, patch AssignmentPatch) (*domain.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if _, err := s.authorizer.Authorize(ctx, actorID, trip.TenantID, domain.RoleDispatcher); err != nil {
		return nil, err
	}

	vehicleID := patch.apply(trip.VehicleID, patch.VehicleID)
	driverID := patch.apply(trip.DriverID, patch.DriverID)
	trailerID := patch.apply(trip.TrailerID, patch.TrailerID)

	if err := s.validateAssignment(ctx, trip, vehicleID, driverID, trailerID); err != nil {
		return nil, err
	}

	trip.VehicleID = vehicleID
	trip.DriverID = driverID
	trip.TrailerID = trailerID

	if err := s.trips.UpdateAssignment(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// Transition moves a trip to the target status on behalf of the actor. It
// authorizes the actor against the trip's own tenant, checks the move
// against the lifecycle table, enforces assignee restrictions, re-validates
// the assignment where the table demands it, and commits the new status
// atomically with its audit record. Racing transitions on the same trip
// resolve to one winner; the loser gets domain.ErrConflict.
func (s *Service) Transition(ctx context.Context, actorID, tripID uuid.UUID, target domain.TripStatus, reason string) (*domain.Trip, error) {
	return s.transition(ctx, actorID, tripID, target, reason, false)
}

// Decline is the bound driver rejecting an offered trip. It shares the
// NEW -> CANCELLED table row but is restricted to the assignee and tagged
// in the audit trail for reporting.
func (s *Service) Decline(ctx context.Context, actorID, tripID uuid.UUID) (*domain.Trip, error) {
	return s.transition(ctx, actorID, tripID, domain.TripStatusCancelled, domain.TransitionReasonDeclined, true)
}

func (s *Service) transition(ctx context.Context, actorID, tripID uuid.UUID, target domain.TripStatus, reason string, requireAssignee bool) (*domain.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	// Membership in the trip's tenant is the floor; the rule decides the
	// rest.
	membership, err := s.authorizer.Authorize(ctx, actorID, trip.TenantID, domain.RoleViewer)
	if err != nil {
		return nil, err
	}

	rule, ok := transitionTable[trip.Status][target]
	if !ok {
		return nil, &domain.InvalidTransitionError{TripID: trip.ID, From: trip.Status, To: target}
	}

	if err := s.checkActor(ctx, trip, membership, rule, requireAssignee); err != nil {
		return nil, err
	}

	if rule.needsAssignment && !trip.AssignmentComplete() {
		return nil, domain.ErrAssignmentIncomplete
	}
	if rule.needsValidation {
		if err := s.validateAssignment(ctx, trip, trip.VehicleID, trip.DriverID, trip.TrailerID); err != nil {
			return nil, err
		}
	}

	record := &domain.StatusTransition{
		ID:         uuid.New(),
		TripID:     trip.ID,
		FromStatus: trip.Status,
		ToStatus:   target,
		ActorID:    actorID,
		Reason:     reason,
		CreatedAt:  time.Now(),
	}

	if err := s.trips.ApplyTransition(ctx, trip, target, record); err != nil {
		return nil, err
	}
	return trip, nil
}

// checkActor enforces the role and assignee requirements of a rule.
func (s *Service) checkActor(ctx context.Context, trip *domain.Trip, membership *domain.Membership, rule transitionRule, requireAssignee bool) error {
	assignee, err := s.isAssignee(ctx, trip, membership)
	if err != nil {
		return err
	}

	if requireAssignee || rule.assigneeOnly {
		if !assignee {
			return domain.ErrNotAssignee
		}
		return nil
	}

	if rule.minRole != "" && membership.Role.AtLeast(rule.minRole) {
		return nil
	}
	if rule.assigneeAllowed && assignee {
		return nil
	}
	return domain.ErrInsufficientRole
}

// isAssignee reports whether the actor is the driver bound to the trip.
// Being any driver in the tenant is not enough: the bound driver resource
// must point at this identity, and the membership must hold the driver
// role exactly for self-scoped actions.
func (s *Service) isAssignee(ctx context.Context, trip *domain.Trip, membership *domain.Membership) (bool, error) {
	if trip.DriverID == nil {
		return false, nil
	}
	if membership.Role != domain.RoleDriver {
		return false, nil
	}
	res, err := s.resources.GetByID(ctx, *trip.DriverID)
	if err != nil {
		// A dangling driver reference means nobody is the assignee.
		return false, nil
	}
	return res.UserID != nil && *res.UserID == membership.UserID, nil
}

// validateAssignment checks the proposed resource references of a trip:
// each must exist, belong to the trip's tenant, be the right kind, and be
// ACTIVE. Drivers and vehicles must not be bound to another in-flight
// trip; trailers may be shared.
func (s *Service) validateAssignment(ctx context.Context, trip *domain.Trip, vehicleID, driverID, trailerID *uuid.UUID) error {
	check := func(id *uuid.UUID, kind domain.ResourceKind, guardBusy bool) error {
		if id == nil {
			return nil
		}
		res, err := s.resources.GetByID(ctx, *id)
		if err != nil {
			return err
		}
		if res.TenantID != trip.TenantID {
			return domain.ErrResourceNotInTenant
		}
		if res.Kind != kind {
			return domain.ErrResourceNotFound
		}
		if res.Status != domain.ResourceStatusActive {
			return domain.ErrResourceUnavailable
		}
		if guardBusy {
			busy, err := s.trips.ResourceInUse(ctx, kind, *id, trip.ID)
			if err != nil {
				return err
			}
			if busy {
				return domain.ErrResourceAlreadyBusy
			}
		}
		return nil
	}

	if err := check(vehicleID, domain.ResourceKindVehicle, true); err != nil {
		return err
	}
	if err := check(driverID, domain.ResourceKindDriver, true); err != nil {
		return err
	}
	return check(trailerID, domain.ResourceKindTrailer, false)
}
