// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/openfit/fitgate/internal/platform/respond"
)

// healthStatus is the payload for both probes.
type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// liveness reports that the process is up. It never touches dependencies.
func (server *Server) liveness(writer http.ResponseWriter, _ *http.Request) {
	respond.JSON(writer, http.StatusOK, healthStatus{Status: "ok"})
}

// readiness reports whether the gateway can serve traffic, which for FitGate
// means the credential store behind it answers. The identity provider is
// deliberately not probed: the gateway stays up and serves hydrated sessions
// even while the provider is down.
func (server *Server) readiness(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"redis": "ok"}
	status := http.StatusOK

	if err := server.redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	payload := healthStatus{Status: "ready", Checks: checks}
	if status != http.StatusOK {
		payload.Status = "degraded"
	}
	respond.JSON(writer, status, payload)
}
