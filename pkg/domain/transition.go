package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transition reasons recorded in the audit trail. A driver declining an
// offered trip lands on the same NEW -> CANCELLED row as a dispatcher
// cancel; the reason is what tells them apart in reporting.
const (
	TransitionReasonDeclined = "declined"
)

// StatusTransition is an immutable audit record of one accepted status
// change. It is written in the same transaction as the status update and
// never mutated or deleted.
type StatusTransition struct {
	ID         uuid.UUID
	TripID     uuid.UUID
	FromStatus TripStatus
	ToStatus   TripStatus
	ActorID    uuid.UUID
	Reason     string
	CreatedAt  time.Time
}
