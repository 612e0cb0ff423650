// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

/*
Package constants provides centralized, immutable values for the entire gateway.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Session Lifecycle: Refresh thresholds, scheduler cadence, storage key prefixes.
  - Rate Limiting: Burst capacities and IP tracking TTLs.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "fitgate"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of
	// the response. It must exceed UpstreamTimeout so a slow proxied call can
	// still complete its response.
	DefaultWriteTimeout = 20 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// UpstreamTimeout bounds every call the gateway makes to the identity
	// provider and the FitTrack API. The refresh coordinator relies on this
	// transport-level deadline instead of carrying its own timeout.
	UpstreamTimeout = 15 * time.Second
)

// # Session Lifecycle

const (
	// DefaultRefreshThreshold is how close to expiry an access token may get
	// before it is considered "expiring soon" and refreshed ahead of time.
	DefaultRefreshThreshold = 5 * time.Minute

	// DefaultRefreshCheckInterval is the cadence of the proactive refresh
	// scheduler tick.
	DefaultRefreshCheckInterval = 60 * time.Second

	// SessionTTL is how long a gateway session (credentials + snapshot)
	// survives in durable storage without being touched. It mirrors the
	// validity window the identity provider grants refresh tokens.
	SessionTTL = 30 * 24 * time.Hour

	// SessionSweepInterval is how often the registry evicts idle in-memory
	// sessions. Durable state is untouched by the sweep; an evicted session
	// hydrates back from storage on its next request.
	SessionSweepInterval = 10 * time.Minute

	// SessionIdleTTL is how long an in-memory session may stay untouched
	// before the sweep releases it (and stops its refresh scheduler).
	SessionIdleTTL = 30 * time.Minute
)

// # Storage Keys

const (
	// KeyPrefixCredentials namespaces the per-session credential keys
	// (access token, refresh token, expiry instant) in durable storage.
	// Namespacing keeps them clear of unrelated persisted state.
	KeyPrefixCredentials = "fitgate:cred:"

	// KeyPrefixSnapshot namespaces the serialized session snapshot
	// ({isAuthenticated, user, token}) in durable storage.
	KeyPrefixSnapshot = "fitgate:sess:"
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// SignInRateLimitRPS throttles the credential-accepting endpoints
	// (login, register) far below the global limit.
	SignInRateLimitRPS = 1.0

	// SignInRateLimitBurst is the burst allowance for sign-in attempts.
	SignInRateLimitBurst = 5

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Cookies & Headers

const (
	// SessionCookieName is the browser cookie carrying the opaque gateway
	// session ID. The browser never sees an access or refresh token.
	SessionCookieName = "fitgate_sid"

	// SessionCookiePath scopes the session cookie to the whole gateway.
	SessionCookiePath = "/"

	// HeaderXRequestID is the correlation ID header.
	HeaderXRequestID = "X-Request-ID"

	// HeaderAuthorization carries the bearer token on upstream calls.
	HeaderAuthorization = "Authorization"

	// HeaderOrigin is the CORS origin header.
	HeaderOrigin = "Origin"

	// HeaderXRealIP is the proxy-supplied client address header.
	HeaderXRealIP = "X-Real-IP"

	// HeaderXForwardedFor is the standard forwarded-client header.
	HeaderXForwardedFor = "X-Forwarded-For"
)

// # Response Fields

const (
	// FieldError is the JSON key for the human-readable error message.
	FieldError = "error"

	// FieldCode is the JSON key for the machine-readable error code.
	FieldCode = "code"
)

// # Navigation

const (
	// ReturnURLParam is the query parameter the sign-in view receives so a
	// successful re-authentication can resume the original navigation.
	ReturnURLParam = "returnUrl"
)
