// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/openfit/fitgate/internal/platform/constants"
)

// Credentials is the per-session token store. Reads are served from memory;
// every mutation writes through to the durable KV so a gateway restart
// rehydrates the same tokens. KV write failures are logged and absorbed: the
// in-memory copy stays authoritative for the life of the process.
//
// The epoch counter fences logout against in-flight refreshes. RemoveTokens
// bumps it; a refresh that resolved against an older epoch is discarded by
// InstallIfCurrent instead of resurrecting the session.
type Credentials struct {
	mu        sync.RWMutex
	access    string
	refresh   string
	expiresAt time.Time
	epoch     uint64

	kv         KV
	keyAccess  string
	keyRefresh string
	keyExpiry  string
	threshold  time.Duration
	now        func() time.Time
	log        *slog.Logger
}

// NewCredentials builds an empty credential store for one browser session.
// Call Hydrate to pull any previously persisted tokens before first use.
func NewCredentials(kv KV, sessionID string, threshold time.Duration, logger *slog.Logger) *Credentials {
	prefix := constants.KeyPrefixCredentials + sessionID
	return &Credentials{
		kv:         kv,
		keyAccess:  prefix + ":access",
		keyRefresh: prefix + ":refresh",
		keyExpiry:  prefix + ":expiry",
		threshold:  threshold,
		now:        time.Now,
		log:        logger,
	}
}

// Hydrate loads persisted tokens from the KV. Read failures and malformed
// expiry timestamps degrade to empty values rather than aborting session
// setup.
func (credentials *Credentials) Hydrate(ctx context.Context) {
	access, err := credentials.kv.Get(ctx, credentials.keyAccess)
	if err != nil {
		credentials.log.Warn("credential hydration failed", "key", credentials.keyAccess, "error", err)
	}
	refresh, err := credentials.kv.Get(ctx, credentials.keyRefresh)
	if err != nil {
		credentials.log.Warn("credential hydration failed", "key", credentials.keyRefresh, "error", err)
	}

	var expiresAt time.Time
	if raw, err := credentials.kv.Get(ctx, credentials.keyExpiry); err != nil {
		credentials.log.Warn("credential hydration failed", "key", credentials.keyExpiry, "error", err)
	} else if raw != "" {
		parsed, parseErr := time.Parse(time.RFC3339Nano, raw)
		if parseErr != nil {
			credentials.log.Warn("discarding unparsable persisted expiry", "value", raw)
		} else {
			expiresAt = parsed
		}
	}

	credentials.mu.Lock()
	defer credentials.mu.Unlock()
	credentials.access = access
	credentials.refresh = refresh
	credentials.expiresAt = expiresAt
}

// Token returns the current access token, or "" when signed out.
func (credentials *Credentials) Token() string {
	credentials.mu.RLock()
	defer credentials.mu.RUnlock()
	return credentials.access
}

// RefreshToken returns the current refresh token, or "" when none is held.
func (credentials *Credentials) RefreshToken() string {
	credentials.mu.RLock()
	defer credentials.mu.RUnlock()
	return credentials.refresh
}

// ExpiresAt reports the tracked access token expiry. known is false when the
// provider never gave a usable lifetime for the current token.
func (credentials *Credentials) ExpiresAt() (expiresAt time.Time, known bool) {
	credentials.mu.RLock()
	defer credentials.mu.RUnlock()
	return credentials.expiresAt, !credentials.expiresAt.IsZero()
}

// Epoch returns the current logout fence value. Capture it before starting a
// refresh exchange and pass it to InstallIfCurrent afterwards.
func (credentials *Credentials) Epoch() uint64 {
	credentials.mu.RLock()
	defer credentials.mu.RUnlock()
	return credentials.epoch
}

// SetToken installs a new access token together with its lifetime code
// ("15m", "7d"). A malformed code falls back to the token's own exp claim;
// if that is also unusable the expiry is recorded as unknown.
func (credentials *Credentials) SetToken(ctx context.Context, token, expiresIn string) {
	expiresAt := credentials.resolveExpiry(token, expiresIn)

	credentials.mu.Lock()
	credentials.access = token
	credentials.expiresAt = expiresAt
	credentials.mu.Unlock()

	credentials.persist(ctx, credentials.keyAccess, token)
	credentials.persistExpiry(ctx, expiresAt)
}

// SetRefreshToken installs a new refresh token and writes it through.
func (credentials *Credentials) SetRefreshToken(ctx context.Context, token string) {
	credentials.mu.Lock()
	credentials.refresh = token
	credentials.mu.Unlock()

	credentials.persist(ctx, credentials.keyRefresh, token)
}

// InstallIfCurrent atomically installs a refresh exchange result, but only
// when the session epoch still matches the one captured before the exchange
// started. It returns false, installing nothing, when a logout raced the
// exchange. An empty refreshToken keeps the existing one (providers that do
// not rotate refresh tokens omit it).
func (credentials *Credentials) InstallIfCurrent(ctx context.Context, epoch uint64, token, refreshToken, expiresIn string) bool {
	expiresAt := credentials.resolveExpiry(token, expiresIn)

	credentials.mu.Lock()
	if credentials.epoch != epoch {
		credentials.mu.Unlock()
		return false
	}
	credentials.access = token
	credentials.expiresAt = expiresAt
	rotated := refreshToken != ""
	if rotated {
		credentials.refresh = refreshToken
	}
	credentials.mu.Unlock()

	credentials.persist(ctx, credentials.keyAccess, token)
	credentials.persistExpiry(ctx, expiresAt)
	if rotated {
		credentials.persist(ctx, credentials.keyRefresh, refreshToken)
	}
	return true
}

// RemoveTokens clears both tokens and the tracked expiry, bumps the logout
// epoch, and deletes the persisted copies. Safe to call repeatedly.
func (credentials *Credentials) RemoveTokens(ctx context.Context) {
	credentials.mu.Lock()
	credentials.epoch++
	credentials.access = ""
	credentials.refresh = ""
	credentials.expiresAt = time.Time{}
	credentials.mu.Unlock()

	if err := credentials.kv.Del(ctx, credentials.keyAccess, credentials.keyRefresh, credentials.keyExpiry); err != nil {
		credentials.log.Warn("credential deletion failed", "error", err)
	}
}

// IsExpiringSoon reports whether the access token expires within the
// configured threshold. An unknown expiry is never "expiring soon": the
// reactive 401 path catches those tokens instead.
func (credentials *Credentials) IsExpiringSoon() bool {
	credentials.mu.RLock()
	defer credentials.mu.RUnlock()

	if credentials.expiresAt.IsZero() {
		return false
	}
	return credentials.expiresAt.Sub(credentials.now()) < credentials.threshold
}

func (credentials *Credentials) resolveExpiry(token, expiresIn string) time.Time {
	if expiresAt, ok := ComputeExpiry(credentials.now(), expiresIn); ok {
		return expiresAt
	}
	if expiresAt, ok := expiryFromToken(token); ok {
		return expiresAt
	}
	return time.Time{}
}

func (credentials *Credentials) persist(ctx context.Context, key, value string) {
	if err := credentials.kv.Set(ctx, key, value, constants.SessionTTL); err != nil {
		credentials.log.Warn("credential persistence failed", "key", key, "error", err)
	}
}

func (credentials *Credentials) persistExpiry(ctx context.Context, expiresAt time.Time) {
	if expiresAt.IsZero() {
		if err := credentials.kv.Del(ctx, credentials.keyExpiry); err != nil {
			credentials.log.Warn("credential persistence failed", "key", credentials.keyExpiry, "error", err)
		}
		return
	}
	credentials.persist(ctx, credentials.keyExpiry, expiresAt.Format(time.RFC3339Nano))
}
