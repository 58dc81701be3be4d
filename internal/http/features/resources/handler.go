package resources

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
)

// Handler manages a tenant's fleet resources (vehicles, drivers,
// trailers).
type Handler struct {
	logger      *slog.Logger
	resources   *repository.ResourcesRepository
	memberships *repository.MembershipsRepository
	authorizer  *authz.Authorizer
}

// NewHandler creates a new resources handler.
func NewHandler(logger *slog.Logger, resources *repository.ResourcesRepository, memberships *repository.MembershipsRepository, authorizer *authz.Authorizer) *Handler {
	return &Handler{
		logger:      logger,
		resources:   resources,
		memberships: memberships,
		authorizer:  authorizer,
	}
}

// ResourceResponse is the wire form of a resource.
type ResourceResponse struct {
	ID        uuid.UUID  `json:"id"`
	Kind      string     `json:"kind"`
	Name      string     `json:"name"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

func toResponse(res *domain.Resource) ResourceResponse {
	return ResourceResponse{
		ID:        res.ID,
		Kind:      string(res.Kind),
		Name:      res.Name,
		UserID:    res.UserID,
		Status:    string(res.Status),
		CreatedAt: res.CreatedAt,
	}
}

// List returns the tenant's resources, optionally filtered by ?kind=.
// GET /v1/resources
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, ok := h.actor(w, r)
	if !ok {
		return
	}

	if _, err := h.authorizer.Authorize(r.Context(), actor, tenantID, domain.RoleViewer); err != nil {
		httputil.DomainError(w, err)
		return
	}

	var kind *domain.ResourceKind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k, err := domain.ParseResourceKind(raw)
		if err != nil {
			httputil.DomainError(w, err)
			return
		}
		kind = &k
	}

	list, err := h.resources.ListByTenant(r.Context(), tenantID, kind)
	if err != nil {
		h.logger.Error("failed to list resources", "error", err, "tenant_id", tenantID)
		httputil.Error(w, http.StatusInternalServerError, "failed to list resources")
		return
	}

	resp := make([]ResourceResponse, 0, len(list))
	for _, res := range list {
		resp = append(resp, toResponse(res))
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// CreateRequest registers a resource. Driver resources link to the user
// who operates as that driver; that link is what assignee checks key on.
type CreateRequest struct {
	Kind   string     `json:"kind"`
	Name   string     `json:"name"`
	UserID *uuid.UUID `json:"user_id,omitempty"`
}

// Create registers a resource in the tenant.
// POST /v1/resources
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, ok := h.actor(w, r)
	if !ok {
		return
	}

	if _, err := h.authorizer.Authorize(r.Context(), actor, tenantID, domain.RoleDispatcher); err != nil {
		httputil.DomainError(w, err)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind, err := domain.ParseResourceKind(req.Kind)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	if req.Name == "" {
		httputil.Error(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	if kind == domain.ResourceKindDriver {
		if req.UserID == nil {
			httputil.Error(w, http.StatusUnprocessableEntity, "driver resources require user_id")
			return
		}
		// The linked user must hold a membership in this tenant.
		if _, err := h.memberships.GetByUserAndTenant(r.Context(), *req.UserID, tenantID); err != nil {
			httputil.DomainError(w, err)
			return
		}
	} else if req.UserID != nil {
		httputil.Error(w, http.StatusUnprocessableEntity, "only driver resources link to a user")
		return
	}

	now := time.Now()
	res := &domain.Resource{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Kind:      kind,
		Name:      req.Name,
		UserID:    req.UserID,
		Status:    domain.ResourceStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.resources.Create(r.Context(), res); err != nil {
		h.logger.Error("failed to create resource", "error", err, "tenant_id", tenantID)
		httputil.Error(w, http.StatusInternalServerError, "failed to create resource")
		return
	}

	httputil.JSON(w, http.StatusCreated, toResponse(res))
}

// UpdateStatusRequest changes a resource's availability.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus activates or deactivates a resource. Deactivation does not
// touch trips it is already assigned to; it only blocks new assignments.
// PATCH /v1/resources/{id}
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, ok := h.actor(w, r)
	if !ok {
		return
	}

	if _, err := h.authorizer.Authorize(r.Context(), actor, tenantID, domain.RoleDispatcher); err != nil {
		httputil.DomainError(w, err)
		return
	}

	res, ok := h.tenantResource(w, r, tenantID)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := domain.ResourceStatus(req.Status)
	if status != domain.ResourceStatusActive && status != domain.ResourceStatusInactive {
		httputil.Error(w, http.StatusUnprocessableEntity, "invalid status")
		return
	}

	if err := h.resources.UpdateStatus(r.Context(), res.ID, status); err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Delete soft deletes a resource.
// DELETE /v1/resources/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, ok := h.actor(w, r)
	if !ok {
		return
	}

	if _, err := h.authorizer.Authorize(r.Context(), actor, tenantID, domain.RoleDispatcher); err != nil {
		httputil.DomainError(w, err)
		return
	}

	res, ok := h.tenantResource(w, r, tenantID)
	if !ok {
		return
	}

	if err := h.resources.SoftDelete(r.Context(), res.ID); err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
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

func (h *Handler) tenantResource(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID) (*domain.Resource, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusUnprocessableEntity, "invalid resource id")
		return nil, false
	}

	res, err := h.resources.GetByID(r.Context(), id)
	if err != nil {
		httputil.DomainError(w, err)
		return nil, false
	}
	if res.TenantID != tenantID {
		httputil.Error(w, http.StatusNotFound, "resource not found")
		return nil, false
	}
	return res, true
}
