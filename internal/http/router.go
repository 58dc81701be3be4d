package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/haulware/dispatch-core/internal/config"
	"github.com/haulware/dispatch-core/internal/http/features/authn"
	"github.com/haulware/dispatch-core/internal/http/features/members"
	"github.com/haulware/dispatch-core/internal/http/features/resources"
	"github.com/haulware/dispatch-core/internal/http/features/session"
	"github.com/haulware/dispatch-core/internal/http/features/tenantreg"
	"github.com/haulware/dispatch-core/internal/http/features/trips"
	"github.com/haulware/dispatch-core/internal/http/middleware"
	"github.com/haulware/dispatch-core/internal/httputil"
	"github.com/haulware/dispatch-core/pkg/auth"
	"github.com/haulware/dispatch-core/pkg/tenant"
)

// Deps holds everything the router wires together.
type Deps struct {
	Config   *config.Config
	Logger   *slog.Logger
	Resolver *tenant.Resolver
	Sessions *auth.SessionService

	Authn     *authn.Handler
	Session   *session.Handler
	Tenants   *tenantreg.Handler
	Members   *members.Handler
	Resources *resources.Handler
	Trips     *trips.Handler
}

// NewRouter assembles the HTTP surface. Tenant resolution runs on every
// request; authentication is per-group. Tenant-scoped groups additionally
// require a tenant in context, so the same path 404s on the bare base
// domain.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recover(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.SecurityHeaders(deps.Config.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(deps.Config.MaxRequestBodySize))
	r.Use(middleware.ResolveTenant(deps.Resolver))

	limiters := middleware.CreateRateLimiters(deps.Config.RateLimit, deps.Logger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		// Public: registration and branding, reachable on any host.
		r.Route("/tenant", func(r chi.Router) {
			r.Get("/check-subdomain/{code}", deps.Tenants.CheckSubdomain)
			r.With(limiters["auth"]).Post("/register", deps.Tenants.Register)
			r.Get("/public/{code}", deps.Tenants.Public)
		})

		// Public: authentication.
		r.Route("/auth", func(r chi.Router) {
			r.With(limiters["auth"]).Post("/login", deps.Authn.Login)
			r.With(limiters["refresh"]).Post("/refresh", deps.Session.Refresh)
			r.Post("/logout", deps.Session.Logout)
			r.With(middleware.Auth(deps.Sessions)).Post("/logout/all", deps.Session.LogoutAll)
		})

		// Authenticated, tenant-scoped.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Sessions))
			r.Use(middleware.RequireTenant())

			r.Route("/members", func(r chi.Router) {
				r.Get("/", deps.Members.List)
				r.Post("/", deps.Members.Create)
				r.Patch("/{id}", deps.Members.UpdateRole)
				r.Delete("/{id}", deps.Members.Revoke)
			})

			r.Route("/resources", func(r chi.Router) {
				r.Get("/", deps.Resources.List)
				r.Post("/", deps.Resources.Create)
				r.Patch("/{id}", deps.Resources.UpdateStatus)
				r.Delete("/{id}", deps.Resources.Delete)
			})

			r.Route("/trips", func(r chi.Router) {
				r.Get("/", deps.Trips.List)
				r.Post("/", deps.Trips.Create)
				r.Get("/{id}", deps.Trips.Get)
				r.Patch("/{id}", deps.Trips.Patch)
				r.Patch("/{id}/payment", deps.Trips.Payment)
				r.Get("/{id}/transitions", deps.Trips.Transitions)
			})
		})

		// Authenticated lifecycle actions. Not gated on host tenant: the
		// state machine authorizes against the trip's own tenant, so a
		// cross-tenant attempt fails on membership, not on routing.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Sessions))

			r.Post("/dispatcher-orders/{id}/{action}", deps.Trips.Action)
			r.Patch("/worker-tenant/orders/{id}/status", deps.Trips.UpdateStatus)
		})
	})

	return r
}
