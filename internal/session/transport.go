// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package session

import (
	"context"
	"io"
	"net/http"

	"github.com/openfit/fitgate/internal/identity"
	"github.com/openfit/fitgate/internal/platform/constants"
	"github.com/openfit/fitgate/internal/platform/ctxkey"
)

// Transport intercepts every outbound call a session makes to the identity
// provider and the FitTrack API.
//
// # Behavior
//
// Before sending, it attaches the session's bearer token and, when the token
// is inside the refresh threshold, runs a best-effort proactive refresh so
// the request leaves with a fresh token. On a 401 response it refreshes once
// and resends the original request a single time with the new token; the
// retried request is marked in its context so a second 401 propagates to the
// caller instead of looping. Sign-in, sign-up and refresh calls are exempt
// from both the proactive refresh and the retry, since a 401 there means bad
// credentials, not a stale token.
type Transport struct {
	base        http.RoundTripper
	credentials *Credentials
	refresher   refreshRunner
}

// NewTransport wraps base with the session's token handling. A nil base
// falls back to http.DefaultTransport.
func NewTransport(base http.RoundTripper, credentials *Credentials, refresher refreshRunner) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		base:        base,
		credentials: credentials,
		refresher:   refresher,
	}
}

func (transport *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	authPath := identity.IsAuthPath(request.URL.Path)

	// ── 1. Proactive refresh before the request leaves ──────────────────
	if !authPath && !wasRetried(request.Context()) && transport.credentials.IsExpiringSoon() {
		transport.refresher.Refresh(request.Context())
	}

	// ── 2. Send with the current bearer token ───────────────────────────
	outbound := request.Clone(request.Context())
	if token := transport.credentials.Token(); token != "" {
		outbound.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
	}

	response, err := transport.base.RoundTrip(outbound)
	if err != nil {
		return response, err
	}
	if response.StatusCode != http.StatusUnauthorized {
		return response, nil
	}

	// ── 3. Reactive refresh-and-retry, at most once per request ─────────
	if authPath || wasRetried(request.Context()) {
		return response, nil
	}

	retry, replayable := transport.replay(request)
	if !replayable {
		return response, nil
	}
	if !transport.refresher.Refresh(request.Context()) {
		return response, nil
	}
	token := transport.credentials.Token()
	if token == "" {
		return response, nil
	}

	_, _ = io.Copy(io.Discard, response.Body)
	_ = response.Body.Close()

	retry.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
	return transport.base.RoundTrip(retry)
}

// replay builds the one-shot retry request. Requests with a consumed body
// and no GetBody rewinder cannot be replayed and are reported as such.
func (transport *Transport) replay(request *http.Request) (*http.Request, bool) {
	retry := request.Clone(markRetried(request.Context()))

	switch {
	case request.GetBody != nil:
		body, err := request.GetBody()
		if err != nil {
			return nil, false
		}
		retry.Body = body
	case request.Body == nil || request.Body == http.NoBody:
		retry.Body = nil
	default:
		return nil, false
	}
	return retry, true
}

func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRetried, true)
}

func wasRetried(ctx context.Context) bool {
	retried, ok := ctx.Value(ctxkey.KeyRetried).(bool)
	return ok && retried
}
