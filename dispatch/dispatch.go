// Package dispatch provides an embeddable multi-tenant dispatch core:
// subdomain tenant resolution, session-based authentication, per-request
// membership authorization, and the trip lifecycle state machine.
//
// Setup:
//
//  1. Run migrations from migrations/ folder using your preferred tool
//  2. Create a Core instance and mount its router
//
// Basic usage:
//
//	db, _ := sql.Open("postgres", "postgres://localhost/myapp?sslmode=disable")
//
//	core, err := dispatch.New(dispatch.Config{
//	    DB:         db,
//	    JWTSecret:  "your-secret-key-at-least-32-chars",
//	    BaseDomain: "dispatch.example.com",
//	})
//	if err != nil {
//	    log.Fatal(err) // Will fail if migrations haven't been run
//	}
//
//	http.ListenAndServe(":8080", core.Router())
package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/haulware/dispatch-core/internal/config"
	httpserver "github.com/haulware/dispatch-core/internal/http"
	"github.com/haulware/dispatch-core/internal/http/features/authn"
	"github.com/haulware/dispatch-core/internal/http/features/members"
	"github.com/haulware/dispatch-core/internal/http/features/resources"
	"github.com/haulware/dispatch-core/internal/http/features/session"
	"github.com/haulware/dispatch-core/internal/http/features/tenantreg"
	"github.com/haulware/dispatch-core/internal/http/features/trips"
	"github.com/haulware/dispatch-core/internal/http/middleware"
	"github.com/haulware/dispatch-core/internal/httputil"
	"github.com/haulware/dispatch-core/pkg/auth"
	"github.com/haulware/dispatch-core/pkg/authz"
	"github.com/haulware/dispatch-core/pkg/repository"
	"github.com/haulware/dispatch-core/pkg/tenant"
	"github.com/haulware/dispatch-core/pkg/trip"
)

// Config holds the configuration for the dispatch core.
type Config struct {
	// DB is the database connection (required).
	DB *sql.DB

	// JWTSecret is the secret key for signing JWT tokens (required, min 32 chars).
	JWTSecret string

	// BaseDomain is the shared domain tenant subdomains hang off (required).
	BaseDomain string

	// ReservedSubdomains are labels that never resolve to a tenant
	// (default: app, www, demo, api, admin).
	ReservedSubdomains []string

	// JWTIssuer is the issuer claim in JWT tokens (default: "dispatch-core").
	JWTIssuer string

	// AccessTokenTTL is the lifetime of access tokens (default: 15 minutes).
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the lifetime of refresh tokens (default: 7 days).
	RefreshTokenTTL time.Duration

	// CookieSecure marks auth cookies Secure (default: false, for local dev).
	CookieSecure bool

	// Logger is the structured logger (default: JSON to stdout).
	Logger *slog.Logger
}

// Core is the embeddable dispatch instance.
type Core struct {
	config          Config
	db              *sql.DB
	tenantsRepo     *repository.TenantsRepository
	usersRepo       *repository.UsersRepository
	membershipsRepo *repository.MembershipsRepository
	sessionsRepo    *repository.SessionsRepository
	tripsRepo       *repository.TripsRepository
	resourcesRepo   *repository.ResourcesRepository
	transitionsRepo *repository.TransitionsRepository
	passwordService *auth.PasswordService
	sessionService  *auth.SessionService
	resolver        *tenant.Resolver
	registration    *tenant.RegistrationService
	authorizer      *authz.Authorizer
	tripService     *trip.Service
	cookies         httputil.CookieConfig
}

// New creates a dispatch core with the given configuration. Returns an
// error if required database tables don't exist. Run migrations first -
// see migrations/ folder for SQL files.
func New(cfg Config) (*Core, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validateSchema(cfg.DB); err != nil {
		return nil, err
	}

	tenantsRepo := repository.NewTenantsRepository(cfg.DB)
	usersRepo := repository.NewUsersRepository(cfg.DB)
	membershipsRepo := repository.NewMembershipsRepository(cfg.DB)
	sessionsRepo := repository.NewSessionsRepository(cfg.DB)
	tripsRepo := repository.NewTripsRepository(cfg.DB)
	resourcesRepo := repository.NewResourcesRepository(cfg.DB)
	transitionsRepo := repository.NewTransitionsRepository(cfg.DB)

	passwordPolicy := auth.DefaultPasswordPolicy()
	passwordService := auth.NewPasswordService(usersRepo, passwordPolicy)
	sessionService := auth.NewSessionService(auth.SessionConfig{
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		JWTSecret:       []byte(cfg.JWTSecret),
		Issuer:          cfg.JWTIssuer,
	}, sessionsRepo, usersRepo)

	resolver := tenant.NewResolver([]string{cfg.BaseDomain}, cfg.ReservedSubdomains, tenantsRepo)
	registration := tenant.NewRegistrationService(cfg.DB, tenantsRepo, usersRepo, membershipsRepo, resolver, passwordPolicy)
	authorizer := authz.NewAuthorizer(membershipsRepo)
	tripService := trip.NewService(tripsRepo, resourcesRepo, authorizer)

	return &Core{
		config:          cfg,
		db:              cfg.DB,
		tenantsRepo:     tenantsRepo,
		usersRepo:       usersRepo,
		membershipsRepo: membershipsRepo,
		sessionsRepo:    sessionsRepo,
		tripsRepo:       tripsRepo,
		resourcesRepo:   resourcesRepo,
		transitionsRepo: transitionsRepo,
		passwordService: passwordService,
		sessionService:  sessionService,
		resolver:        resolver,
		registration:    registration,
		authorizer:      authorizer,
		tripService:     tripService,
		cookies:         httputil.NewCookieConfig(cfg.BaseDomain, cfg.CookieSecure),
	}, nil
}

// Router returns a chi router with the full HTTP surface: tenant
// registration, auth, members, resources, and the trip lifecycle.
func (c *Core) Router() chi.Router {
	logger := c.config.Logger

	return httpserver.NewRouter(httpserver.Deps{
		Config: &config.Config{
			BaseDomain:         c.config.BaseDomain,
			ReservedSubdomains: c.config.ReservedSubdomains,
			MaxRequestBodySize: 1 << 20,
			RateLimit:          config.RateLimitConfig{Enabled: false},
			SecurityHeaders:    config.SecurityHeadersConfig{Enabled: false},
		},
		Logger:   logger,
		Resolver: c.resolver,
		Sessions: c.sessionService,

		Authn:     authn.NewHandler(logger, c.passwordService, c.sessionService, c.cookies),
		Session:   session.NewHandler(logger, c.sessionService, c.cookies),
		Tenants:   tenantreg.NewHandler(logger, c.registration, c.resolver, c.config.BaseDomain),
		Members:   members.NewHandler(logger, c.membershipsRepo, c.usersRepo, c.authorizer),
		Resources: resources.NewHandler(logger, c.resourcesRepo, c.membershipsRepo, c.authorizer),
		Trips:     trips.NewHandler(logger, c.tripService, c.tripsRepo, c.transitionsRepo, c.authorizer),
	})
}

// SessionService returns the session broker for advanced usage.
func (c *Core) SessionService() *auth.SessionService {
	return c.sessionService
}

// TripService returns the trip state machine for advanced usage.
func (c *Core) TripService() *trip.Service {
	return c.tripService
}

// AuthMiddleware returns middleware that validates access tokens.
// Use this to protect your own routes:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(core.AuthMiddleware())
//	    r.Get("/protected", handler)
//	})
func (c *Core) AuthMiddleware() func(http.Handler) http.Handler {
	return middleware.Auth(c.sessionService)
}

// TenantMiddleware returns middleware that resolves the request host to a
// tenant. Pair with GetTenantFromContext on your own routes.
func (c *Core) TenantMiddleware() func(http.Handler) http.Handler {
	return middleware.ResolveTenant(c.resolver)
}

// GetUserIDFromContext extracts the authenticated user ID from a context.
// Use after AuthMiddleware.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	return middleware.GetUserID(ctx)
}

// HealthHandler returns a simple health check handler.
func (c *Core) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func validateConfig(cfg *Config) error {
	if cfg.DB == nil {
		return errors.New("dispatch: DB is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("dispatch: JWTSecret is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("dispatch: JWTSecret must be at least 32 characters")
	}
	if cfg.BaseDomain == "" {
		return errors.New("dispatch: BaseDomain is required")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.ReservedSubdomains) == 0 {
		cfg.ReservedSubdomains = []string{"app", "www", "demo", "api", "admin"}
	}
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "dispatch-core"
	}
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
}

// validateSchema checks that required database tables exist.
func validateSchema(db *sql.DB) error {
	requiredTables := []string{
		"tenants", "users", "user_passwords", "memberships",
		"sessions", "trips", "resources", "status_transitions",
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	`

	for _, table := range requiredTables {
		var name string
		err := db.QueryRow(query, table).Scan(&name)
		if err == sql.ErrNoRows {
			return fmt.Errorf("dispatch: missing table '%s' - run migrations first (see migrations/ folder)", table)
		}
		if err != nil {
			return fmt.Errorf("dispatch: failed to check schema: %w", err)
		}
	}

	return nil
}
