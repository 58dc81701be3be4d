package members

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/haulware/dispatch-core/internal/http/middleware"
	"github.com/haulware/dispatch-core/internal/httputil"
	"github.com/haulware/dispatch-core/pkg/auth"
	"github.com/haulware/dispatch-core/pkg/authz"
	"github.com/haulware/dispatch-core/pkg/domain"
	"github.com/haulware/dispatch-core/pkg/repository"
)

// Handler manages tenant memberships. Every operation requires an admin
// membership in the tenant resolved from the host.
type Handler struct {
	logger      *slog.Logger
	memberships *repository.MembershipsRepository
	users       *repository.UsersRepository
	authorizer  *authz.Authorizer
}

// NewHandler creates a new members handler.
func NewHandler(logger *slog.Logger, memberships *repository.MembershipsRepository, users *repository.UsersRepository, authorizer *authz.Authorizer) *Handler {
	return &Handler{
		logger:      logger,
		memberships: memberships,
		users:       users,
		authorizer:  authorizer,
	}
}

// MemberResponse is a membership joined with its user profile.
type MemberResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns the members of the current tenant.
// GET /v1/members
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, ok := h.actor(w, r)
	if !ok {
		return
	}

	if _, err := h.authorizer.Authorize(r.Context(), actor, tenantID, domain.RoleAdmin); err != nil {
		httputil.DomainError(w, err)
		return
	}

	memberships, err := h.memberships.GetByTenantID(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to list members", "error", err, "tenant_id", tenantID)
		httputil.Error(w, http.StatusInternalServerError, "failed to list members")
		return
	}

	resp := make([]MemberResponse, 0, len(memberships))
	for _, m := range memberships {
		member := MemberResponse{
			ID:        m.ID,
			UserID:    m.UserID,
			Role:      string(m.Role),
			Status:    string(m.Status),
			CreatedAt: m.CreatedAt,
		}
		if user, err := h.users.GetByID(r.Context(), m.UserID); err == nil {
			member.Email = user.Email
			member.Name = user.Name
		}
		resp = append(resp, member)
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// CreateRequest adds a user to the tenant. An unknown email creates an
// invited user record without credentials; they set a password on first
// login elsewhere.
type CreateRequest struct {
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
	Role  string  `json:"role"`
}

// Create adds a member to the current tenant.
// POST /v1/members
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, ok := h.actor(w, r)
	if !ok {
		return
	}

	if _, err := h.authorizer.Authorize(r.Context(), actor, tenantID, domain.RoleAdmin); err != nil {
		httputil.DomainError(w, err)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role := domain.Role(req.Role)
	if !role.Valid() {
		httputil.Error(w, http.StatusUnprocessableEntity, "invalid role")
		return
	}

	email, err := auth.NormalizeEmail(req.Email)
	if err != nil {
		httputil.Error(w, http.StatusUnprocessableEntity, "invalid email")
		return
	}

	now := time.Now()
	status := domain.MembershipStatusInvited

	user, err := h.users.GetByEmail(r.Context(), email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		user = &domain.User{
			ID:        uuid.New(),
			Email:     email,
			Name:      req.Name,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := h.users.Create(r.Context(), user); err != nil {
			h.logger.Error("failed to create invited user", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "failed to add member")
			return
		}
	case err != nil:
		httputil.Error(w, http.StatusInternalServerError, "failed to add member")
		return
	default:
		// Existing users with credentials are active immediately.
		status = domain.MembershipStatusActive
	}

	if existing, err := h.memberships.GetByUserAndTenant(r.Context(), user.ID, tenantID); err == nil && existing != nil {
		httputil.DomainError(w, domain.ErrMembershipExists)
		return
	}

	membership := &domain.Membership{
		ID:        uuid.New(),
		TenantID:  tenantID,
		UserID:    user.ID,
		Role:      role,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.memberships.Create(r.Context(), membership); err != nil {
		h.logger.Error("failed to create membership", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to add member")
		return
	}

	httputil.JSON(w, http.StatusCreated, MemberResponse{
		ID:        membership.ID,
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      string(membership.Role),
		Status:    string(membership.Status),
		CreatedAt: membership.CreatedAt,
	})
}

// UpdateRoleRequest changes a member's role.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRole changes a member's role in the current tenant.
// PATCH /v1/members/{id}
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, ok := h.actor(w, r)
	if !ok {
		return
	}

	if _, err := h.authorizer.Authorize(r.Context(), actor, tenantID, domain.RoleAdmin); err != nil {
		httputil.DomainError(w, err)
		return
	}

	membership, ok := h.tenantMembership(w, r, tenantID)
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role := domain.Role(req.Role)
	if !role.Valid() {
		httputil.Error(w, http.StatusUnprocessableEntity, "invalid role")
		return
	}

	if err := h.memberships.UpdateRole(r.Context(), membership.ID, role); err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Revoke removes a member from the current tenant. The user record
// survives; only the membership is revoked, and it takes effect on the
// member's next request.
// DELETE /v1/members/{id}
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, ok := h.actor(w, r)
	if !ok {
		return
	}

	if _, err := h.authorizer.Authorize(r.Context(), actor, tenantID, domain.RoleAdmin); err != nil {
		httputil.DomainError(w, err)
		return
	}

	membership, ok := h.tenantMembership(w, r, tenantID)
	if !ok {
		return
	}

	if err := h.memberships.SoftDelete(r.Context(), membership.ID); err != nil {
		httputil.DomainError(w, err)
		return
	}

	h.logger.Info("membership revoked",
		"membership_id", membership.ID,
		"tenant_id", tenantID,
		"revoked_by", actor,
	)

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "revoked"})
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

// tenantMembership loads the membership in the path and verifies it
// belongs to the current tenant; foreign memberships are a plain 404.
func (h *Handler) tenantMembership(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID) (*domain.Membership, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusUnprocessableEntity, "invalid membership id")
		return nil, false
	}

	membership, err := h.memberships.GetByID(r.Context(), id)
	if err != nil {
		httputil.DomainError(w, err)
		return nil, false
	}
	if membership.TenantID != tenantID {
		httputil.Error(w, http.StatusNotFound, "membership not found")
		return nil, false
	}
	return membership, true
}
