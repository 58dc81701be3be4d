package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/haulware/dispatch-core/pkg/domain"
	"github.com/lib/pq"
)

// TripsRepository handles trip persistence. Status changes go through
// ApplyTransition, which is the single commit point for the state machine:
// the new status and its audit record land in one transaction gated by an
// optimistic version check.
type TripsRepository struct {
	db *sql.DB
}

// NewTripsRepository creates a new trips repository.
func NewTripsRepository(db *sql.DB) *TripsRepository {
	return &TripsRepository{db: db}
}

const tripColumns = `id, tenant_id, customer_name, pickup_site, delivery_site, status, payment_status,
	freight_charge, driver_payment, vehicle_id, driver_id, trailer_id, version, created_at, updated_at`

func scanTrip(sc interface{ Scan(...any) error }) (*domain.Trip, error) {
	var t domain.Trip
	err := sc.Scan(
		&t.ID, &t.TenantID, &t.CustomerName, &t.PickupSite, &t.DeliverySite,
		&t.Status, &t.PaymentStatus, &t.FreightCharge, &t.DriverPayment,
		&t.VehicleID, &t.DriverID, &t.TrailerID, &t.Version,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create creates a new trip.
func (r *TripsRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (id, tenant_id, customer_name, pickup_site, delivery_site, status, payment_status,
			freight_charge, driver_payment, vehicle_id, driver_id, trailer_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.ExecContext(ctx, query,
		trip.ID, trip.TenantID, trip.CustomerName, trip.PickupSite, trip.DeliverySite,
		trip.Status, trip.PaymentStatus, trip.FreightCharge, trip.DriverPayment,
		trip.VehicleID, trip.DriverID, trip.TrailerID, trip.Version,
		trip.CreatedAt, trip.UpdatedAt,
	)
	return err
}

// GetByID retrieves a trip by ID. Tenant scoping is the caller's
// responsibility: the state machine authorizes the actor against the trip's
// own tenant.
func (r *TripsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	t, err := scanTrip(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTripNotFound
	}
	return t, err
}

// ListByTenant retrieves all trips of a tenant, newest first.
func (r *TripsRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Trip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// UpdateDetails updates customer, site, and monetary fields.
func (r *TripsRepository) UpdateDetails(ctx context.Context, trip *domain.Trip) error {
	query := `
		UPDATE trips
		SET customer_name = $1, pickup_site = $2, delivery_site = $3,
			freight_charge = $4, driver_payment = $5, updated_at = NOW()
		WHERE id = $6
	`
	result, err := r.db.ExecContext(ctx, query,
		trip.CustomerName, trip.PickupSite, trip.DeliverySite,
		trip.FreightCharge, trip.DriverPayment, trip.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTripNotFound
	}
	return nil
}

// UpdatePaymentStatus updates the payment status, which moves independently
// of the lifecycle status.
func (r *TripsRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	query := `UPDATE trips SET payment_status = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTripNotFound
	}
	return nil
}

// isBusyViolation reports whether err is a unique violation on one of the
// partial indexes that keep a driver or vehicle on at most one in-flight
// trip. The application checks availability before writing, but two
// concurrent writes can both pass that check; the index catches the loser.
func isBusyViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return false
	}
	return pqErr.Constraint == "trips_active_driver_idx" ||
		pqErr.Constraint == "trips_active_vehicle_idx"
}

// UpdateAssignment writes the resource references of a trip, gated by the
// version the caller read. A racing assignment on the same trip loses with
// ErrConflict; one that would double-book a driver or vehicle across trips
// loses with ErrResourceAlreadyBusy.
func (r *TripsRepository) UpdateAssignment(ctx context.Context, trip *domain.Trip) error {
	query := `
		UPDATE trips
		SET vehicle_id = $1, driver_id = $2, trailer_id = $3, version = version + 1, updated_at = NOW()
		WHERE id = $4 AND version = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		trip.VehicleID, trip.DriverID, trip.TrailerID, trip.ID, trip.Version,
	)
	if err != nil {
		if isBusyViolation(err) {
			return domain.ErrResourceAlreadyBusy
		}
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrConflict
	}
	trip.Version++
	return nil
}

// ApplyTransition commits a status change and its audit record atomically.
// The version check serializes racing transitions on the same trip: exactly
// one of two concurrent callers commits, the other gets ErrConflict and
// must re-fetch. A transition that would carry a double-booked driver or
// vehicle into an in-flight status loses with ErrResourceAlreadyBusy.
func (r *TripsRepository) ApplyTransition(ctx context.Context, trip *domain.Trip, to domain.TripStatus, record *domain.StatusTransition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE trips
		SET status = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
	`, to, time.Now(), trip.ID, trip.Version)
	if err != nil {
		if isBusyViolation(err) {
			return domain.ErrResourceAlreadyBusy
		}
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO status_transitions (id, trip_id, from_status, to_status, actor_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, record.ID, record.TripID, record.FromStatus, record.ToStatus,
		record.ActorID, record.Reason, record.CreatedAt)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	trip.Status = to
	trip.Version++
	return nil
}

// ResourceInUse reports whether a driver or vehicle is already bound to an
// in-flight trip other than the one being edited.
func (r *TripsRepository) ResourceInUse(ctx context.Context, kind domain.ResourceKind, resourceID, excludeTripID uuid.UUID) (bool, error) {
	var column string
	switch kind {
	case domain.ResourceKindVehicle:
		column = "vehicle_id"
	case domain.ResourceKindDriver:
		column = "driver_id"
	case domain.ResourceKindTrailer:
		column = "trailer_id"
	default:
		return false, domain.ErrInvalidResourceKind
	}

	query := `
		SELECT EXISTS(
			SELECT 1 FROM trips
			WHERE ` + column + ` = $1
				AND id <> $2
				AND status IN ('ACCEPTED', 'ASSIGNED', 'IN_TRANSIT')
		)
	`
	var busy bool
	err := r.db.QueryRowContext(ctx, query, resourceID, excludeTripID).Scan(&busy)
	return busy, err
}
