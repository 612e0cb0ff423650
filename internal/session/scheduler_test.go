// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// countingRefresher records every proactive refresh the scheduler triggers.
type countingRefresher struct {
	calls atomic.Int64
}

func (fake *countingRefresher) Refresh(context.Context) bool {
	fake.calls.Add(1)
	return true
}

func expiringCredentials(t *testing.T) *Credentials {
	t.Helper()

	// One minute of lifetime against a five minute threshold: every tick
	// sees the token as expiring soon.
	credentials := NewCredentials(NewMemoryKV(), "sid-1", 5*time.Minute, testLogger())
	credentials.SetToken(context.Background(), "access-1", "1m")
	return credentials
}

func TestScheduler_RefreshesExpiringToken(t *testing.T) {
	refresher := &countingRefresher{}
	scheduler := NewScheduler(5*time.Millisecond, expiringCredentials(t), refresher, testLogger())

	scheduler.Start()
	defer scheduler.Stop()

	assert.Eventually(t, func() bool {
		return refresher.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_LeavesFreshTokenAlone(t *testing.T) {
	credentials := NewCredentials(NewMemoryKV(), "sid-1", 5*time.Minute, testLogger())
	credentials.SetToken(context.Background(), "access-1", "1h")

	refresher := &countingRefresher{}
	scheduler := NewScheduler(5*time.Millisecond, credentials, refresher, testLogger())

	scheduler.Start()
	time.Sleep(50 * time.Millisecond)
	scheduler.Stop()

	assert.Zero(t, refresher.calls.Load())
}

/*
TestScheduler_StartIsIdempotent starts the scheduler twice and verifies one
Stop fully halts it, proving the second Start never stacked a second loop.
*/
func TestScheduler_StartIsIdempotent(t *testing.T) {
	refresher := &countingRefresher{}
	scheduler := NewScheduler(5*time.Millisecond, expiringCredentials(t), refresher, testLogger())

	scheduler.Start()
	scheduler.Start()

	assert.Eventually(t, func() bool {
		return refresher.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	scheduler.Stop()

	// Let a tick that was already in flight drain, then verify the count
	// holds still: one Stop silenced both Start calls.
	time.Sleep(20 * time.Millisecond)
	settled := refresher.calls.Load()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, settled, refresher.calls.Load())
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	scheduler := NewScheduler(5*time.Millisecond, expiringCredentials(t), &countingRefresher{}, testLogger())

	// Stopping a scheduler that never started must not block or panic.
	scheduler.Stop()

	scheduler.Start()
	scheduler.Stop()
	scheduler.Stop()
}
