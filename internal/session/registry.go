// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package session

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openfit/fitgate/internal/identity"
	"github.com/openfit/fitgate/internal/platform/config"
	"github.com/openfit/fitgate/internal/platform/constants"
)

// Registry owns every live Session in the process, keyed by the browser's
// opaque session cookie. Resolving an unknown identifier builds a fresh
// session and hydrates it from the durable KV, which is how sessions survive
// gateway restarts. A background sweep evicts sessions idle past the
// configured TTL; their durable state stays in the KV, so the next request
// from that browser simply rehydrates.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	kv       KV
	cfg      *config.Config
	base     http.RoundTripper
	log      *slog.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

// NewRegistry builds the registry and launches its idle sweep.
func NewRegistry(kv KV, cfg *config.Config, logger *slog.Logger) *Registry {
	registry := &Registry{
		sessions: make(map[string]*Session),
		kv:       kv,
		cfg:      cfg,
		base:     http.DefaultTransport,
		log:      logger,
		stop:     make(chan struct{}),
	}
	go registry.sweep()
	return registry
}

// NewSessionID mints an identifier for a browser that arrived without one.
func NewSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Resolve returns the live session for the given identifier, building and
// hydrating one on first sight. The returned session is never nil.
func (registry *Registry) Resolve(ctx context.Context, sessionID string) *Session {
	registry.mu.RLock()
	existing := registry.sessions[sessionID]
	registry.mu.RUnlock()

	if existing != nil {
		existing.touch()
		return existing
	}

	built := registry.build(sessionID)
	built.hydrate(ctx)

	registry.mu.Lock()
	// A concurrent request for the same cookie may have won the race.
	if racer, ok := registry.sessions[sessionID]; ok {
		registry.mu.Unlock()
		built.scheduler.Stop()
		racer.touch()
		return racer
	}
	registry.sessions[sessionID] = built
	registry.mu.Unlock()

	built.touch()
	return built
}

// Shutdown stops the sweep and every session's refresh scheduler. Durable
// state is left in place for the next process.
func (registry *Registry) Shutdown(_ context.Context) {
	registry.stopOnce.Do(func() { close(registry.stop) })

	registry.mu.Lock()
	defer registry.mu.Unlock()
	for _, active := range registry.sessions {
		active.scheduler.Stop()
	}
	registry.sessions = make(map[string]*Session)
}

// build assembles the full per-session stack.
//
// # Architecture
//
//	Credentials ── durable token store (epoch-fenced)
//	  └── Refresher ── single-flight exchange over a PLAIN http client
//	        └── Transport ── bearer injection + 401 retry, wraps base
//	              └── identity.Client ── everything except the refresh call
//
// The refresher's own identity client bypasses the intercepted transport so
// a refresh can never recursively trigger another refresh.
func (registry *Registry) build(sessionID string) *Session {
	logger := registry.log.With("session_id", sessionID)

	credentials := NewCredentials(registry.kv, sessionID, registry.cfg.RefreshThreshold, logger)

	plain := &http.Client{
		Timeout:   constants.UpstreamTimeout,
		Transport: registry.base,
	}
	refresher := NewRefresher(credentials, identity.NewClient(registry.cfg.IdentityBaseURL, plain), logger)

	intercepted := &http.Client{
		Timeout:   constants.UpstreamTimeout,
		Transport: NewTransport(registry.base, credentials, refresher),
	}

	built := &Session{
		id:          sessionID,
		credentials: credentials,
		refresher:   refresher,
		scheduler:   NewScheduler(registry.cfg.RefreshCheckInterval, credentials, refresher, logger),
		identity:    identity.NewClient(registry.cfg.IdentityBaseURL, intercepted),
		httpc:       intercepted,
		kv:          registry.kv,
		log:         logger,
	}

	refresher.OnExhausted(func(ctx context.Context) {
		built.Logout(ctx)
	})
	return built
}

func (registry *Registry) sweep() {
	ticker := time.NewTicker(constants.SessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-registry.stop:
			return
		case <-ticker.C:
			registry.evictIdle()
		}
	}
}

func (registry *Registry) evictIdle() {
	cutoff := time.Now().Add(-constants.SessionIdleTTL)

	registry.mu.Lock()
	var evicted []*Session
	for id, active := range registry.sessions {
		if active.idleSince().Before(cutoff) {
			evicted = append(evicted, active)
			delete(registry.sessions, id)
		}
	}
	registry.mu.Unlock()

	for _, active := range evicted {
		active.scheduler.Stop()
	}
	if len(evicted) > 0 {
		registry.log.Debug("evicted idle sessions", "count", len(evicted))
	}
}
