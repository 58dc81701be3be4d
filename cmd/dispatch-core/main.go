package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/haulware/dispatch-core/internal/config"
	httpserver "github.com/haulware/dispatch-core/internal/http"
	"github.com/haulware/dispatch-core/internal/http/features/authn"
	"github.com/haulware/dispatch-core/internal/http/features/members"
	"github.com/haulware/dispatch-core/internal/http/features/resources"
	"github.com/haulware/dispatch-core/internal/http/features/session"
	"github.com/haulware/dispatch-core/internal/http/features/tenantreg"
	"github.com/haulware/dispatch-core/internal/http/features/trips"
	"github.com/haulware/dispatch-core/internal/httputil"
	"github.com/haulware/dispatch-core/pkg/auth"
	"github.com/haulware/dispatch-core/pkg/authz"
	"github.com/haulware/dispatch-core/pkg/repository"
	"github.com/haulware/dispatch-core/pkg/tenant"
	"github.com/haulware/dispatch-core/pkg/trip"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	// Initialize repositories
	tenantsRepo := repository.NewTenantsRepository(db)
	usersRepo := repository.NewUsersRepository(db)
	membershipsRepo := repository.NewMembershipsRepository(db)
	sessionsRepo := repository.NewSessionsRepository(db)
	tripsRepo := repository.NewTripsRepository(db)
	resourcesRepo := repository.NewResourcesRepository(db)
	transitionsRepo := repository.NewTransitionsRepository(db)

	// Initialize services
	passwordPolicy := auth.DefaultPasswordPolicy()
	passwordService := auth.NewPasswordService(usersRepo, passwordPolicy)
	sessionService := auth.NewSessionService(auth.SessionConfig{
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		JWTSecret:       []byte(cfg.JWTSecret),
		Issuer:          cfg.JWTIssuer,
	}, sessionsRepo, usersRepo)

	resolver := tenant.NewResolver([]string{cfg.BaseDomain}, cfg.ReservedSubdomains, tenantsRepo)
	registration := tenant.NewRegistrationService(db, tenantsRepo, usersRepo, membershipsRepo, resolver, passwordPolicy)
	authorizer := authz.NewAuthorizer(membershipsRepo)
	tripService := trip.NewService(tripsRepo, resourcesRepo, authorizer)

	cookies := httputil.NewCookieConfig(cfg.BaseDomain, cfg.CookieSecure)

	// Create router
	router := httpserver.NewRouter(httpserver.Deps{
		Config:   cfg,
		Logger:   logger,
		Resolver: resolver,
		Sessions: sessionService,

		Authn:     authn.NewHandler(logger, passwordService, sessionService, cookies),
		Session:   session.NewHandler(logger, sessionService, cookies),
		Tenants:   tenantreg.NewHandler(logger, registration, resolver, cfg.BaseDomain),
		Members:   members.NewHandler(logger, membershipsRepo, usersRepo, authorizer),
		Resources: resources.NewHandler(logger, resourcesRepo, membershipsRepo, authorizer),
		Trips:     trips.NewHandler(logger, tripService, tripsRepo, transitionsRepo, authorizer),
	})

	// Periodic cleanup of long-expired sessions
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				if n, err := sessionsRepo.DeleteExpired(cleanupCtx, cfg.RefreshTokenTTL); err != nil {
					logger.Error("session cleanup failed", "error", err)
				} else if n > 0 {
					logger.Info("expired sessions deleted", "count", n)
				}
			}
		}
	}()

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr, "base_domain", cfg.BaseDomain)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
