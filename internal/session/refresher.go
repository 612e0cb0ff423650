// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package session

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/openfit/fitgate/internal/identity"
)

// RefreshExchanger is the slice of the identity client the refresher needs:
// trade a refresh token for a fresh token pair.
type RefreshExchanger interface {
	RefreshToken(ctx context.Context, refreshToken string) (*identity.TokenPair, error)
}

// Refresher coordinates token refresh for one session. Concurrent callers
// collapse onto a single in-flight exchange and all observe its outcome; the
// in-flight slot is released on every exit path, so a later call after
// completion starts a fresh exchange.
//
// A failed exchange is terminal for the session: the provider rejected the
// refresh token, so the refresher invokes the exhaustion callback (full
// logout) rather than leaving the session half-alive.
type Refresher struct {
	credentials *Credentials
	exchange    RefreshExchanger
	onExhausted func(ctx context.Context)
	group       singleflight.Group
	log         *slog.Logger
}

// NewRefresher wires a refresher over the given credential store and
// exchange client. The exchange client must not route through the session's
// intercepted transport, or a refresh could recursively trigger itself.
func NewRefresher(credentials *Credentials, exchange RefreshExchanger, logger *slog.Logger) *Refresher {
	return &Refresher{
		credentials: credentials,
		exchange:    exchange,
		log:         logger,
	}
}

// OnExhausted registers the callback invoked when a refresh exchange fails
// terminally. The registry points it at the session's Logout.
func (refresher *Refresher) OnExhausted(callback func(ctx context.Context)) {
	refresher.onExhausted = callback
}

// Refresh obtains a fresh access token, reusing an exchange already in
// flight when one exists. It returns true when the session ends up holding a
// newly installed token, false when the session cannot be refreshed (no
// refresh token, terminal provider rejection, or a logout raced the
// exchange).
func (refresher *Refresher) Refresh(ctx context.Context) bool {
	if refresher.credentials.RefreshToken() == "" {
		return false
	}

	result, _, _ := refresher.group.Do("refresh", func() (any, error) {
		return refresher.exchangeOnce(ctx), nil
	})

	refreshed, _ := result.(bool)
	return refreshed
}

func (refresher *Refresher) exchangeOnce(ctx context.Context) bool {
	// Capture the fence before the network round trip. A logout during the
	// exchange bumps it and the result below is thrown away.
	epoch := refresher.credentials.Epoch()

	refreshToken := refresher.credentials.RefreshToken()
	if refreshToken == "" {
		return false
	}

	pair, err := refresher.exchange.RefreshToken(ctx, refreshToken)
	if err != nil {
		refresher.log.Warn("token refresh rejected, ending session", "error", err)
		if refresher.onExhausted != nil {
			refresher.onExhausted(ctx)
		}
		return false
	}

	if !refresher.credentials.InstallIfCurrent(ctx, epoch, pair.Token, pair.RefreshToken, pair.ExpiresIn) {
		refresher.log.Info("discarding refresh result, session ended while exchange was in flight")
		return false
	}
	return true
}
