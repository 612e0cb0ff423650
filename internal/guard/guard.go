// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

// Package guard provides the role-gated route authorizer for SPA page
// routes. Anonymous visitors are redirected to the sign-in page with the
// originally requested URL preserved; signed-in users lacking a required
// role are silently redirected to the default landing page.
package guard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/openfit/fitgate/internal/platform/config"
	"github.com/openfit/fitgate/internal/platform/constants"
	"github.com/openfit/fitgate/internal/platform/respond"
	"github.com/openfit/fitgate/internal/session"
)

// Guard gates page routes on authentication and role membership.
type Guard struct {
	signInPath  string
	landingPath string
	log         *slog.Logger
}

// New builds a guard using the configured sign-in and landing paths.
func New(cfg *config.Config, logger *slog.Logger) *Guard {
	return &Guard{
		signInPath:  cfg.SignInPath,
		landingPath: cfg.DefaultLandingPath,
		log:         logger,
	}
}

// Protect returns a middleware admitting only signed-in users holding at
// least one of the allowed roles. An empty allowed set admits any signed-in
// user.
//
// Every admitted request also triggers a background profile re-fetch, so
// role changes made elsewhere take effect on the next navigation without
// blocking this one.
func (guard *Guard) Protect(allowed ...session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			active := session.FromContext(request.Context())

			if active == nil || !active.IsAuthenticated() {
				respond.RedirectToSignIn(writer, request, guard.signInPath)
				return
			}

			if !active.HasAnyRole(allowed...) {
				guard.log.Debug("role check failed, redirecting to landing page",
					"path", request.URL.Path,
					"session_id", active.ID(),
				)
				http.Redirect(writer, request, guard.landingPath, http.StatusFound)
				return
			}

			go guard.refreshProfile(active)

			next.ServeHTTP(writer, request)
		})
	}
}

func (guard *Guard) refreshProfile(active *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.UpstreamTimeout)
	defer cancel()

	if err := active.RefreshUserData(ctx); err != nil {
		guard.log.Debug("background profile refresh failed",
			"session_id", active.ID(),
			"error", err,
		)
	}
}
