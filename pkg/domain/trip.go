package domain

import (
	"time"

	"github.com/google/uuid"
)

// TripStatus is the lifecycle status of a trip. The only legal moves
// between statuses are the rows of the transition table in pkg/trip.
type TripStatus string

const (
	TripStatusNew       TripStatus = "NEW"
	TripStatusAccepted  TripStatus = "ACCEPTED"
	TripStatusAssigned  TripStatus = "ASSIGNED"
	TripStatusInTransit TripStatus = "IN_TRANSIT"
	TripStatusDelivered TripStatus = "DELIVERED"
	TripStatusCompleted TripStatus = "COMPLETED"
	TripStatusCancelled TripStatus = "CANCELLED"
)

var tripStatuses = map[TripStatus]bool{
	TripStatusNew:       true,
	TripStatusAccepted:  true,
	TripStatusAssigned:  true,
	TripStatusInTransit: true,
	TripStatusDelivered: true,
	TripStatusCompleted: true,
	TripStatusCancelled: true,
}

// ParseTripStatus validates a raw status string.
func ParseTripStatus(s string) (TripStatus, error) {
	status := TripStatus(s)
	if !tripStatuses[status] {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// PaymentStatus tracks payment for a trip, independent of lifecycle status.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// ParsePaymentStatus validates a raw payment status string.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch status := PaymentStatus(s); status {
	case PaymentStatusUnpaid, PaymentStatusPartial, PaymentStatusPaid:
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Trip is the unit of work. Monetary amounts are in the tenant currency's
// minor unit. Version increments on every status change and is the
// optimistic-concurrency token: two racing transitions can only commit one.
type Trip struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	CustomerName  *string
	PickupSite    *string
	DeliverySite  *string
	Status        TripStatus
	PaymentStatus PaymentStatus
	FreightCharge int64
	DriverPayment int64
	VehicleID     *uuid.UUID
	DriverID      *uuid.UUID
	TrailerID     *uuid.UUID
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AssignmentComplete reports whether both vehicle and driver are bound.
func (t *Trip) AssignmentComplete() bool {
	return t.VehicleID != nil && t.DriverID != nil
}
