// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

// Package api assembles the FitGate HTTP surface: health probes, the
// session lifecycle endpoints, the guarded SPA page routes, and the /api
// reverse proxy to the FitTrack API.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/openfit/fitgate/internal/guard"
	"github.com/openfit/fitgate/internal/platform/config"
	"github.com/openfit/fitgate/internal/platform/constants"
	"github.com/openfit/fitgate/internal/platform/middleware"
	"github.com/openfit/fitgate/internal/session"
)

// Server wires configuration, the session registry and the upstream proxy
// into one http.Server.
type Server struct {
	cfg      *config.Config
	log      *slog.Logger
	redis    *redis.Client
	registry *session.Registry
	http     *http.Server
}

// NewServer builds the server and its full routing table.
func NewServer(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	redisClient *redis.Client,
	registry *session.Registry,
) (*Server, error) {
	server := &Server{
		cfg:      cfg,
		log:      logger,
		redis:    redisClient,
		registry: registry,
	}

	proxy, err := NewProxy(cfg.IdentityBaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("api: invalid upstream base url: %w", err)
	}

	router := chi.NewRouter()

	// ── 1. Ambient middleware, outermost first ──────────────────────────
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(logger))
	router.Use(middleware.PanicRecovery(logger))
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.RateLimit(ctx))

	// ── 2. Probes, outside the session layer ────────────────────────────
	router.Get("/health/live", server.liveness)
	router.Get("/health/ready", server.readiness)

	// ── 3. Everything else runs with a resolved session ─────────────────
	router.Group(func(app chi.Router) {
		app.Use(session.Middleware(registry))

		sessions := session.NewHandler()
		app.Mount("/auth", sessions.AuthRoutes(middleware.SignInRateLimit(ctx)))
		app.Mount("/users", sessions.UserRoutes())

		app.Handle("/api/*", proxy)

		server.mountPages(app, guard.New(cfg, logger))
	})

	server.http = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadTimeout:       constants.DefaultReadTimeout,
		ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		WriteTimeout:      constants.DefaultWriteTimeout,
		IdleTimeout:       constants.DefaultIdleTimeout,
	}
	return server, nil
}

// mountPages registers the SPA page routes behind their role guards. The
// route table mirrors the FitTrack navigation contract: customer areas admit
// any signed-in user, /coach admits coaches and admins, /admin admits admins
// only, and the public pages render for everyone.
func (server *Server) mountPages(router chi.Router, pageGuard *guard.Guard) {
	router.Get("/", server.page)
	router.Get(server.cfg.SignInPath, server.page)
	router.Get("/register", server.page)

	router.Group(func(authed chi.Router) {
		authed.Use(pageGuard.Protect())
		authed.Get(server.cfg.DefaultLandingPath, server.page)
		authed.Get("/workouts", server.page)
		authed.Get("/workouts/*", server.page)
		authed.Get("/progress", server.page)
		authed.Get("/profile", server.page)
	})

	router.Group(func(coach chi.Router) {
		coach.Use(pageGuard.Protect(session.RoleCoach, session.RoleAdmin))
		coach.Get("/coach", server.page)
		coach.Get("/coach/*", server.page)
	})

	router.Group(func(admin chi.Router) {
		admin.Use(pageGuard.Protect(session.RoleAdmin))
		admin.Get("/admin", server.page)
		admin.Get("/admin/*", server.page)
	})
}

// Start begins serving and blocks until the listener stops.
func (server *Server) Start() error {
	server.log.Info("gateway listening", "addr", server.http.Addr)
	if err := server.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: server stopped: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests, then stops every session's refresh
// scheduler.
func (server *Server) Shutdown(ctx context.Context) error {
	err := server.http.Shutdown(ctx)
	server.registry.Shutdown(ctx)
	return err
}

// Handler exposes the routing table for tests.
func (server *Server) Handler() http.Handler {
	return server.http.Handler
}
