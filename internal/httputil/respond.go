package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/haulware/dispatch-core/pkg/domain"
)

// JSON writes v as a JSON response.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// DomainError maps a domain error onto the response contract:
// 401 broker rejection, 403 authorizer rejection, 404 unknown entity,
// 409 illegal transition / lost race / busy resource, 422 malformed input.
func DomainError(w http.ResponseWriter, err error) {
	var invalid *domain.InvalidTransitionError
	if errors.As(err, &invalid) {
		JSON(w, http.StatusConflict, map[string]any{
			"error": "invalid transition",
			"from":  invalid.From,
			"to":    invalid.To,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrSessionExpired),
		errors.Is(err, domain.ErrSessionRevoked):
		Error(w, http.StatusUnauthorized, err.Error())

	case errors.Is(err, domain.ErrNotAMember),
		errors.Is(err, domain.ErrInsufficientRole),
		errors.Is(err, domain.ErrNotAssignee):
		Error(w, http.StatusForbidden, err.Error())

	case errors.Is(err, domain.ErrTenantNotFound),
		errors.Is(err, domain.ErrTenantInactive),
		errors.Is(err, domain.ErrTripNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrMembershipNotFound),
		errors.Is(err, domain.ErrResourceNotFound),
		// A resource in another tenant does not exist from this
		// tenant's point of view.
		errors.Is(err, domain.ErrResourceNotInTenant):
		Error(w, http.StatusNotFound, err.Error())

	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrResourceAlreadyBusy),
		errors.Is(err, domain.ErrResourceUnavailable),
		errors.Is(err, domain.ErrAssignmentIncomplete),
		errors.Is(err, domain.ErrTenantCodeTaken),
		errors.Is(err, domain.ErrMembershipExists):
		Error(w, http.StatusConflict, err.Error())

	case errors.Is(err, domain.ErrInvalidTenantCode),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidResourceKind),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrWeakPassword):
		Error(w, http.StatusUnprocessableEntity, err.Error())

	default:
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
