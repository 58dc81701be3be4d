package trips

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/haulware/dispatch-core/internal/http/middleware"
	"github.com/haulware/dispatch-core/internal/httputil"
	"github.com/haulware/dispatch-core/pkg/authz"
	"github.com/haulware/dispatch-core/pkg/domain"
	"github.com/haulware/dispatch-core/pkg/repository"
	"github.com/haulware/dispatch-core/pkg/trip"
)

// Handler exposes the trip lifecycle over HTTP. Reads are tenant-scoped by
// host; writes go through the trip service, which authorizes against the
// trip's own tenant.
type Handler struct {
	logger      *slog.Logger
	service     *trip.Service
	trips       *repository.TripsRepository
	transitions *repository.TransitionsRepository
	authorizer  *authz.Authorizer
}

// NewHandler creates a new trips handler.
func NewHandler(logger *slog.Logger, service *trip.Service, trips *repository.TripsRepository, transitions *repository.TransitionsRepository, authorizer *authz.Authorizer) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		trips:       trips,
		transitions: transitions,
		authorizer:  authorizer,
	}
}

// TripResponse is the wire form of a trip.
type TripResponse struct {
	ID            uuid.UUID  `json:"id"`
	CustomerName  *string    `json:"customer_name,omitempty"`
	PickupSite    *string    `json:"pickup_site,omitempty"`
	DeliverySite  *string    `json:"delivery_site,omitempty"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	FreightCharge int64      `json:"freight_charge"`
	DriverPayment int64      `json:"driver_payment"`
	VehicleID     *uuid.UUID `json:"vehicle_id,omitempty"`
	DriverID      *uuid.UUID `json:"driver_id,omitempty"`
	TrailerID     *uuid.UUID `json:"trailer_id,omitempty"`
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toResponse(t *domain.Trip) TripResponse {
	return TripResponse{
		ID:            t.ID,
		CustomerName:  t.CustomerName,
		PickupSite:    t.PickupSite,
		DeliverySite:  t.DeliverySite,
		Status:        string(t.Status),
		PaymentStatus: string(t.PaymentStatus),
		FreightCharge: t.FreightCharge,
		DriverPayment: t.DriverPayment,
		VehicleID:     t.VehicleID,
		DriverID:      t.DriverID,
		TrailerID:     t.TrailerID,
		Version:       t.Version,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// List returns the current tenant's trips, newest first.
// GET /v1/trips
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, ok := h.actor(w, r)
	if !ok {
		return
	}

	if _, err := h.authorizer.Authorize(r.Context(), actor, tenantID, domain.RoleViewer); err != nil {
		httputil.DomainError(w, err)
		return
	}

	list, err := h.trips.ListByTenant(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to list trips", "error", err, "tenant_id", tenantID)
		httputil.Error(w, http.StatusInternalServerError, "failed to list trips")
		return
	}

	resp := make([]TripResponse, 0, len(list))
	for _, t := range list {
		resp = append(resp, toResponse(t))
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// Get returns a single trip. A trip belonging to another tenant is a plain
// 404 from this host.
// GET /v1/trips/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, ok := h.actor(w, r)
	if !ok {
		return
	}

	if _, err := h.authorizer.Authorize(r.Context(), actor, tenantID, domain.RoleViewer); err != nil {
		httputil.DomainError(w, err)
		return
	}

	t, ok := h.tenantTrip(w, r, tenantID)
	if !ok {
		return
	}

	httputil.JSON(w, http.StatusOK, toResponse(t))
}

// CreateRequest is the new-trip payload. Resource references are optional;
// whatever is given is validated before binding.
type CreateRequest struct {
	CustomerName  *string    `json:"customer_name,omitempty"`
	PickupSite    *string    `json:"pickup_site,omitempty"`
	DeliverySite  *string    `json:"delivery_site,omitempty"`
	FreightCharge int64      `json:"freight_charge"`
	DriverPayment int64      `json:"driver_payment"`
	VehicleID     *uuid.UUID `json:"vehicle_id,omitempty"`
	DriverID      *uuid.UUID `json:"driver_id,omitempty"`
	TrailerID     *uuid.UUID `json:"trailer_id,omitempty"`
}

// Create creates a trip in status NEW.
// POST /v1/trips
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.service.Create(r.Context(), actor, trip.CreateInput{
		TenantID:      tenantID,
		CustomerName:  req.CustomerName,
		PickupSite:    req.PickupSite,
		DeliverySite:  req.DeliverySite,
		FreightCharge: req.FreightCharge,
		DriverPayment: req.DriverPayment,
		VehicleID:     req.VehicleID,
		DriverID:      req.DriverID,
		TrailerID:     req.TrailerID,
	})
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, toResponse(t))
}

// Patch updates trip details and resource bindings. Resource reference
// fields are tri-state: absent leaves the binding, null releases it, a
// value rebinds. The raw body is inspected for key presence because Go's
// zero values cannot tell "absent" from "null".
// PATCH /v1/trips/{id}
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, ok := h.actor(w, r)
	if !ok {
		return
	}

	t, ok := h.tenantTrip(w, r, tenantID)
	if !ok {
		return
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch, hasAssignment, err := assignmentPatch(fields)
	if err != nil {
		httputil.Error(w, http.StatusUnprocessableEntity, "invalid resource reference")
		return
	}

	if hasAssignment {
		t, err = h.service.Assign(r.Context(), actor, t.ID, patch)
		if err != nil {
			httputil.DomainError(w, err)
			return
		}
	}

	if hasDetails(fields) {
		if _, err := h.authorizer.Authorize(r.Context(), actor, tenantID, domain.RoleDispatcher); err != nil {
			httputil.DomainError(w, err)
			return
		}
		if err := applyDetails(t, fields); err != nil {
			httputil.Error(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err := h.trips.UpdateDetails(r.Context(), t); err != nil {
			httputil.DomainError(w, err)
			return
		}
	}

	httputil.JSON(w, http.StatusOK, toResponse(t))
}

var assignmentKeys = map[string]func(*trip.AssignmentPatch) *trip.Optional[uuid.UUID]{
	"vehicle_id": func(p *trip.AssignmentPatch) *trip.Optional[uuid.UUID] { return &p.VehicleID },
	"driver_id":  func(p *trip.AssignmentPatch) *trip.Optional[uuid.UUID] { return &p.DriverID },
	"trailer_id": func(p *trip.AssignmentPatch) *trip.Optional[uuid.UUID] { return &p.TrailerID },
}

func assignmentPatch(fields map[string]json.RawMessage) (trip.AssignmentPatch, bool, error) {
	var patch trip.AssignmentPatch
	present := false
	for key, target := range assignmentKeys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		present = true
		if string(raw) == "null" {
			*target(&patch) = trip.Null[uuid.UUID]()
			continue
		}
		var id uuid.UUID
		if err := json.Unmarshal(raw, &id); err != nil {
			return patch, present, err
		}
		*target(&patch) = trip.Some(id)
	}
	return patch, present, nil
}

func hasDetails(fields map[string]json.RawMessage) bool {
	for _, key := range []string{"customer_name", "pickup_site", "delivery_site", "freight_charge", "driver_payment"} {
		if _, ok := fields[key]; ok {
			return true
		}
	}
	return false
}

func applyDetails(t *domain.Trip, fields map[string]json.RawMessage) error {
	strField := func(key string, dst **string) error {
		raw, ok := fields[key]
		if !ok {
			return nil
		}
		if string(raw) == "null" {
			*dst = nil
			return nil
		}
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		*dst = &v
		return nil
	}
	intField := func(key string, dst *int64) error {
		raw, ok := fields[key]
		if !ok {
			return nil
		}
		return json.Unmarshal(raw, dst)
	}

	if err := strField("customer_name", &t.CustomerName); err != nil {
		return err
	}
	if err := strField("pickup_site", &t.PickupSite); err != nil {
		return err
	}
	if err := strField("delivery_site", &t.DeliverySite); err != nil {
		return err
	}
	if err := intField("freight_charge", &t.FreightCharge); err != nil {
		return err
	}
	return intField("driver_payment", &t.DriverPayment)
}

// PaymentRequest updates the payment status, which moves independently of
// the lifecycle status.
type PaymentRequest struct {
	PaymentStatus string `json:"payment_status"`
}

// Payment updates a trip's payment status.
// PATCH /v1/trips/{id}/payment
func (h *Handler) Payment(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, ok := h.actor(w, r)
	if !ok {
		return
	}

	if _, err := h.authorizer.Authorize(r.Context(), actor, tenantID, domain.RoleDispatcher); err != nil {
		httputil.DomainError(w, err)
		return
	}

	t, ok := h.tenantTrip(w, r, tenantID)
	if !ok {
		return
	}

	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := domain.ParsePaymentStatus(req.PaymentStatus)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	if err := h.trips.UpdatePaymentStatus(r.Context(), t.ID, status); err != nil {
		httputil.DomainError(w, err)
		return
	}

	t.PaymentStatus = status
	httputil.JSON(w, http.StatusOK, toResponse(t))
}

// TransitionRecord is one audit trail entry.
type TransitionRecord struct {
	ID         uuid.UUID `json:"id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    uuid.UUID `json:"actor_id"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Transitions returns a trip's status history, oldest first.
// GET /v1/trips/{id}/transitions
func (h *Handler) Transitions(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, ok := h.actor(w, r)
	if !ok {
		return
	}

	if _, err := h.authorizer.Authorize(r.Context(), actor, tenantID, domain.RoleViewer); err != nil {
		httputil.DomainError(w, err)
		return
	}

	t, ok := h.tenantTrip(w, r, tenantID)
	if !ok {
		return
	}

	records, err := h.transitions.ListByTripID(r.Context(), t.ID)
	if err != nil {
		h.logger.Error("failed to list transitions", "error", err, "trip_id", t.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to list transitions")
		return
	}

	resp := make([]TransitionRecord, 0, len(records))
	for _, rec := range records {
		resp = append(resp, TransitionRecord{
			ID:         rec.ID,
			FromStatus: string(rec.FromStatus),
			ToStatus:   string(rec.ToStatus),
			ActorID:    rec.ActorID,
			Reason:     rec.Reason,
			CreatedAt:  rec.CreatedAt,
		})
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// actionTargets maps dispatcher order actions to target statuses. Decline
// is absent: it routes through the service's assignee-restricted path.
var actionTargets = map[string]domain.TripStatus{
	"accept":   domain.TripStatusAccepted,
	"start":    domain.TripStatusInTransit,
	"deliver":  domain.TripStatusDelivered,
	"complete": domain.TripStatusCompleted,
	"cancel":   domain.TripStatusCancelled,
}

// ActionRequest carries an optional reason for the audit trail.
type ActionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Action executes a named lifecycle action on an order.
// POST /v1/dispatcher-orders/{id}/{action}
func (h *Handler) Action(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusUnprocessableEntity, "invalid order id")
		return
	}

	var req ActionRequest
	if r.Body != nil {
		// Body is optional for actions; a missing or empty one is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	action := chi.URLParam(r, "action")

	var t *domain.Trip
	if action == "decline" {
		t, err = h.service.Decline(r.Context(), userID, tripID)
	} else {
		target, ok := actionTargets[action]
		if !ok {
			httputil.Error(w, http.StatusNotFound, "unknown action")
			return
		}
		t, err = h.service.Transition(r.Context(), userID, tripID, target, req.Reason)
	}
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	h.logger.Info("order transition",
		"trip_id", t.ID,
		"status", t.Status,
		"action", action,
		"actor_id", userID,
	)

	httputil.JSON(w, http.StatusOK, toResponse(t))
}

// StatusRequest names a target status directly.
type StatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// UpdateStatus moves an order to an explicit target status. Same state
// machine as the named actions, just addressed by status value.
// PATCH /v1/worker-tenant/orders/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusUnprocessableEntity, "invalid order id")
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target, err := domain.ParseTripStatus(req.Status)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	t, err := h.service.Transition(r.Context(), userID, tripID, target, req.Reason)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "not authenticated")
		return uuid.Nil, uuid.Nil, false
	}
	t, ok := middleware.GetTenant(r.Context())
	if !ok {
		httputil.Error(w, http.StatusNotFound, "no tenant context")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, t.ID, true
}

func (h *Handler) tenantTrip(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID) (*domain.Trip, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusUnprocessableEntity, "invalid trip id")
		return nil, false
	}

	t, err := h.trips.GetByID(r.Context(), id)
	if err != nil {
		httputil.DomainError(w, err)
		return nil, false
	}
	if t.TenantID != tenantID {
		httputil.Error(w, http.StatusNotFound, "trip not found")
		return nil, false
	}
	return t, true
}
