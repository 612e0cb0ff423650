// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfit/fitgate/internal/identity"
)

// fakeExchanger scripts the provider's refresh endpoint.
type fakeExchanger struct {
	calls   atomic.Int64
	entered chan struct{}
	release chan struct{}
	pair    *identity.TokenPair
	err     error
}

func (fake *fakeExchanger) RefreshToken(_ context.Context, _ string) (*identity.TokenPair, error) {
	fake.calls.Add(1)
	if fake.entered != nil {
		fake.entered <- struct{}{}
	}
	if fake.release != nil {
		<-fake.release
	}
	return fake.pair, fake.err
}

func newRefreshFixture(t *testing.T, exchanger *fakeExchanger) (*Refresher, *Credentials) {
	t.Helper()

	credentials := NewCredentials(NewMemoryKV(), "sid-1", 5*time.Minute, testLogger())
	credentials.SetToken(context.Background(), "access-old", "15m")
	credentials.SetRefreshToken(context.Background(), "refresh-old")
	return NewRefresher(credentials, exchanger, testLogger()), credentials
}

func TestRefresher_InstallsNewPair(t *testing.T) {
	exchanger := &fakeExchanger{
		pair: &identity.TokenPair{Token: "access-new", RefreshToken: "refresh-new", ExpiresIn: "15m"},
	}
	refresher, credentials := newRefreshFixture(t, exchanger)

	refreshed := refresher.Refresh(context.Background())

	require.True(t, refreshed)
	assert.Equal(t, "access-new", credentials.Token())
	assert.Equal(t, "refresh-new", credentials.RefreshToken())
	assert.EqualValues(t, 1, exchanger.calls.Load())
}

func TestRefresher_NoRefreshTokenMeansNoExchange(t *testing.T) {
	exchanger := &fakeExchanger{}
	credentials := NewCredentials(NewMemoryKV(), "sid-1", 5*time.Minute, testLogger())
	refresher := NewRefresher(credentials, exchanger, testLogger())

	refreshed := refresher.Refresh(context.Background())

	assert.False(t, refreshed)
	assert.Zero(t, exchanger.calls.Load())
}

/*
TestRefresher_SingleFlight launches many concurrent refresh attempts while
the exchange is held open and verifies they all collapse onto one provider
call, each caller observing the shared outcome.
*/
func TestRefresher_SingleFlight(t *testing.T) {
	exchanger := &fakeExchanger{
		release: make(chan struct{}),
		pair:    &identity.TokenPair{Token: "access-new", ExpiresIn: "15m"},
	}
	refresher, credentials := newRefreshFixture(t, exchanger)

	const callers = 10
	results := make(chan bool, callers)

	var started sync.WaitGroup
	started.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			started.Done()
			results <- refresher.Refresh(context.Background())
		}()
	}

	// Give every caller time to pile onto the in-flight exchange, then let
	// the single provider call finish.
	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(exchanger.release)

	for i := 0; i < callers; i++ {
		assert.True(t, <-results)
	}
	assert.EqualValues(t, 1, exchanger.calls.Load())
	assert.Equal(t, "access-new", credentials.Token())
}

/*
TestRefresher_TerminalFailureEndsSession verifies that a rejected exchange
invokes the exhaustion callback instead of leaving the session half-alive.
*/
func TestRefresher_TerminalFailureEndsSession(t *testing.T) {
	exchanger := &fakeExchanger{err: assert.AnError}
	refresher, _ := newRefreshFixture(t, exchanger)

	var exhausted atomic.Bool
	refresher.OnExhausted(func(context.Context) { exhausted.Store(true) })

	refreshed := refresher.Refresh(context.Background())

	assert.False(t, refreshed)
	assert.True(t, exhausted.Load())
}

/*
TestRefresher_DiscardsResultAfterLogout runs a logout while the exchange is
in flight. The late result must be thrown away: a signed-out session stays
signed out.
*/
func TestRefresher_DiscardsResultAfterLogout(t *testing.T) {
	exchanger := &fakeExchanger{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		pair:    &identity.TokenPair{Token: "access-new", RefreshToken: "refresh-new", ExpiresIn: "15m"},
	}
	refresher, credentials := newRefreshFixture(t, exchanger)

	result := make(chan bool, 1)
	go func() {
		result <- refresher.Refresh(context.Background())
	}()

	<-exchanger.entered
	credentials.RemoveTokens(context.Background())
	close(exchanger.release)

	assert.False(t, <-result)
	assert.Empty(t, credentials.Token())
	assert.Empty(t, credentials.RefreshToken())
}
