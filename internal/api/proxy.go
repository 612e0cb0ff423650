// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/openfit/fitgate/internal/platform/apperr"
	"github.com/openfit/fitgate/internal/platform/respond"
	"github.com/openfit/fitgate/internal/session"
)

// errSessionRejected signals, through the reverse proxy's error path, that
// the upstream rejected the session token even after a refresh-and-retry.
var errSessionRejected = errors.New("upstream rejected session after retry")

// Proxy forwards /api/* calls from the SPA to the FitTrack API through the
// calling session's intercepted transport, so every forwarded request gets
// bearer injection, proactive refresh and the single 401 retry for free. A
// 401 that survives all of that is surfaced to the SPA as a SESSION_EXPIRED
// envelope, its cue to route the user to the sign-in page.
type Proxy struct {
	target *url.URL
	log    *slog.Logger
}

// NewProxy builds the proxy for the given upstream base URL.
func NewProxy(upstreamBaseURL string, logger *slog.Logger) (*Proxy, error) {
	target, err := url.Parse(upstreamBaseURL)
	if err != nil {
		return nil, err
	}
	return &Proxy{target: target, log: logger}, nil
}

func (proxy *Proxy) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	active := session.FromContext(request.Context())
	if active == nil || !active.IsAuthenticated() {
		respond.Error(writer, request, apperr.SessionExpired())
		return
	}

	forwarder := &httputil.ReverseProxy{
		Rewrite: func(outbound *httputil.ProxyRequest) {
			outbound.SetURL(proxy.target)
			outbound.Out.URL.Path = strings.TrimPrefix(request.URL.Path, "/api")
			outbound.Out.URL.RawPath = ""
			outbound.Out.Host = proxy.target.Host
			// The session transport owns the Authorization header.
			outbound.Out.Header.Del("Authorization")
			outbound.Out.Header.Del("Cookie")
		},
		Transport: active.HTTPClient().Transport,
		ModifyResponse: func(response *http.Response) error {
			if response.StatusCode == http.StatusUnauthorized {
				return errSessionRejected
			}
			return nil
		},
		ErrorHandler: func(writer http.ResponseWriter, request *http.Request, err error) {
			if errors.Is(err, errSessionRejected) {
				respond.Error(writer, request, apperr.SessionExpired())
				return
			}
			proxy.log.Warn("upstream proxy call failed", "path", request.URL.Path, "error", err)
			respond.Error(writer, request, apperr.Upstream("The FitTrack API is unavailable", err))
		},
	}
	forwarder.ServeHTTP(writer, request)
}
