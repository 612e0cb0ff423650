// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// refreshRunner is the scheduler's and transport's view of the Refresher.
type refreshRunner interface {
	Refresh(ctx context.Context) bool
}

// Scheduler proactively refreshes a session's access token before it
// expires. A background loop wakes on a fixed interval, asks the credential
// store whether the token is inside the refresh threshold, and triggers the
// shared refresher when it is. Tokens with unknown expiry are left to the
// reactive 401 path.
type Scheduler struct {
	interval    time.Duration
	credentials *Credentials
	refresher   refreshRunner
	log         *slog.Logger

	mu      sync.Mutex
	stop    chan struct{}
	running bool
}

// NewScheduler builds a stopped scheduler. Call Start after sign-in or
// hydration; the zero interval is replaced by one minute.
func NewScheduler(interval time.Duration, credentials *Credentials, refresher refreshRunner, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		interval:    interval,
		credentials: credentials,
		refresher:   refresher,
		log:         logger,
	}
}

// Start launches the check loop. Calling Start while the loop is already
// running is a no-op, so repeated sign-ins never stack tickers.
func (scheduler *Scheduler) Start() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	if scheduler.running {
		return
	}
	scheduler.running = true
	scheduler.stop = make(chan struct{})
	go scheduler.run(scheduler.stop)
}

// Stop halts the check loop: after Stop returns, no new tick starts. A tick
// already in progress is allowed to finish on its own. Stop deliberately
// does not wait for it, because a failing refresh inside that tick ends the
// session, and ending the session calls Stop. Stopping a stopped scheduler
// is a no-op.
func (scheduler *Scheduler) Stop() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	if !scheduler.running {
		return
	}
	scheduler.running = false
	close(scheduler.stop)
}

func (scheduler *Scheduler) run(stop <-chan struct{}) {
	ticker := time.NewTicker(scheduler.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			scheduler.tick()
		}
	}
}

func (scheduler *Scheduler) tick() {
	if !scheduler.credentials.IsExpiringSoon() {
		return
	}
	if !scheduler.refresher.Refresh(context.Background()) {
		scheduler.log.Debug("scheduled token refresh did not produce a new token")
	}
}
