package tenantreg

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/haulware/dispatch-core/internal/httputil"
	"github.com/haulware/dispatch-core/pkg/domain"
	"github.com/haulware/dispatch-core/pkg/tenant"
)

// Handler handles tenant registration and public tenant info.
type Handler struct {
	logger       *slog.Logger
	registration *tenant.RegistrationService
	resolver     *tenant.Resolver
	baseDomain   string
}

// NewHandler creates a new tenant registration handler.
func NewHandler(logger *slog.Logger, registration *tenant.RegistrationService, resolver *tenant.Resolver, baseDomain string) *Handler {
	return &Handler{
		logger:       logger,
		registration: registration,
		resolver:     resolver,
		baseDomain:   baseDomain,
	}
}

// CheckSubdomainResponse reports subdomain availability.
type CheckSubdomainResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// CheckSubdomain checks whether a tenant code can still be registered.
// GET /v1/tenant/check-subdomain/{code}
func (h *Handler) CheckSubdomain(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	available, err := h.registration.CheckCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTenantCode) {
			httputil.JSON(w, http.StatusUnprocessableEntity, CheckSubdomainResponse{
				Available: false,
				Message:   "subdomain must be 3-63 lowercase letters, digits, or hyphens",
			})
			return
		}
		httputil.Error(w, http.StatusInternalServerError, "failed to check subdomain")
		return
	}

	resp := CheckSubdomainResponse{Available: available, Message: "subdomain is available"}
	if !available {
		resp.Message = "subdomain is already taken"
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// RegisterRequest is the tenant registration payload.
type RegisterRequest struct {
	Subdomain     string `json:"subdomain"`
	CompanyName   string `json:"company_name"`
	CompanyType   string `json:"company_type"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`
	AdminName     string `json:"admin_name"`
}

// RegisterResponse is returned on successful registration.
type RegisterResponse struct {
	Subdomain string `json:"subdomain"`
	LoginURL  string `json:"login_url"`
}

// Register creates a tenant with its first admin membership.
// POST /v1/tenant/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.registration.Register(r.Context(), tenant.RegisterInput{
		Code:          req.Subdomain,
		CompanyName:   req.CompanyName,
		CompanyType:   req.CompanyType,
		AdminEmail:    req.AdminEmail,
		AdminPassword: req.AdminPassword,
		AdminName:     req.AdminName,
	})
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	h.logger.Info("tenant registered",
		"tenant_id", result.Tenant.ID,
		"code", result.Tenant.Code,
	)

	httputil.JSON(w, http.StatusCreated, RegisterResponse{
		Subdomain: result.Tenant.Code,
		LoginURL:  fmt.Sprintf("https://%s.%s/auth/login", result.Tenant.Code, h.baseDomain),
	})
}

// PublicTenantResponse is the non-sensitive branding info of a tenant.
type PublicTenantResponse struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	CompanyType string  `json:"company_type"`
	LogoURL     *string `json:"logo_url,omitempty"`
	BrandColor  *string `json:"brand_color,omitempty"`
}

// Public returns tenant branding info. An unknown code is a plain 404, not
// worth logging.
// GET /v1/tenant/public/{code}
func (h *Handler) Public(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	t, err := h.resolver.ResolveCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) || errors.Is(err, domain.ErrTenantInactive) {
			httputil.Error(w, http.StatusNotFound, "tenant not found")
			return
		}
		httputil.Error(w, http.StatusInternalServerError, "failed to load tenant")
		return
	}

	httputil.JSON(w, http.StatusOK, PublicTenantResponse{
		Code:        t.Code,
		Name:        t.Name,
		CompanyType: t.CompanyType,
		LogoURL:     t.LogoURL,
		BrandColor:  t.BrandColor,
	})
}
