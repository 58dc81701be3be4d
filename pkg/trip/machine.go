package trip

import (
	"github.com/haulware/dispatch-core/pkg/domain"
)

// transitionRule is one row of the lifecycle table. minRole is the weakest
// membership role that may perform the move through the role path;
// assigneeAllowed additionally admits the bound driver, and assigneeOnly
// restricts the move to the bound driver with no role path at all.
type transitionRule struct {
	minRole         domain.Role
	assigneeAllowed bool
	assigneeOnly    bool
	needsValidation bool
	needsAssignment bool
}

// transitionTable is the single authoritative lifecycle table. Every
// status-changing endpoint goes through it; no handler carries its own
// idea of what a legal move is.
var transitionTable = map[domain.TripStatus]map[domain.TripStatus]transitionRule{
	domain.TripStatusNew: {
		domain.TripStatusAccepted:  {minRole: domain.RoleDispatcher, assigneeAllowed: true},
		domain.TripStatusCancelled: {minRole: domain.RoleDispatcher, assigneeAllowed: true},
	},
	domain.TripStatusAccepted: {
		domain.TripStatusAssigned:  {minRole: domain.RoleDispatcher, needsValidation: true, needsAssignment: true},
		domain.TripStatusCancelled: {minRole: domain.RoleDispatcher, assigneeAllowed: true},
	},
	domain.TripStatusAssigned: {
		domain.TripStatusInTransit: {assigneeOnly: true, needsAssignment: true},
		domain.TripStatusCancelled: {minRole: domain.RoleDispatcher},
	},
	domain.TripStatusInTransit: {
		domain.TripStatusDelivered: {assigneeOnly: true},
		domain.TripStatusCancelled: {minRole: domain.RoleDispatcher},
	},
	domain.TripStatusDelivered: {
		domain.TripStatusCompleted: {minRole: domain.RoleDispatcher},
		domain.TripStatusCancelled: {minRole: domain.RoleDispatcher},
	},
	// COMPLETED and CANCELLED are terminal.
}

// AllowedTransitions returns the statuses reachable from a given status.
func AllowedTransitions(from domain.TripStatus) []domain.TripStatus {
	rules := transitionTable[from]
	targets := make([]domain.TripStatus, 0, len(rules))
	for to := range rules {
		targets = append(targets, to)
	}
	return targets
}
