// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfit/fitgate/internal/identity"
	"github.com/openfit/fitgate/internal/platform/apperr"
)

func TestIsAuthPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{path: "/auth/login", want: true},
		{path: "/auth/register", want: true},
		{path: "/auth/refresh-token", want: true},
		{path: "/api/v1/auth/login", want: true},
		{path: "/auth/logout", want: false},
		{path: "/users/profile", want: false},
		{path: "/workouts", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, identity.IsAuthPath(tt.path))
		})
	}
}

func newClient(t *testing.T, handler http.HandlerFunc) *identity.Client {
	t.Helper()

	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)
	return identity.NewClient(upstream.URL, upstream.Client())
}

func TestClient_Login(t *testing.T) {
	client := newClient(t, func(writer http.ResponseWriter, request *http.Request) {
		require.Equal(t, "/auth/login", request.URL.Path)
		require.Equal(t, http.MethodPost, request.Method)

		var body map[string]string
		require.NoError(t, json.NewDecoder(request.Body).Decode(&body))
		assert.Equal(t, "jordan@example.com", body["email"])

		_ = json.NewEncoder(writer).Encode(map[string]any{
			"user":         map[string]any{"id": "user-1", "email": body["email"], "roles": []string{"customer"}},
			"token":        "access-1",
			"refreshToken": "refresh-1",
			"expiresIn":    "15m",
		})
	})

	result, err := client.Login(context.Background(), "jordan@example.com", "secret")

	require.NoError(t, err)
	require.NotNil(t, result.User)
	assert.Equal(t, "user-1", result.User.ID)
	assert.Equal(t, "access-1", result.Token)
	assert.Equal(t, "refresh-1", result.RefreshToken)
	assert.Equal(t, "15m", result.ExpiresIn)
}

func TestClient_LogoutCarriesExplicitToken(t *testing.T) {
	var gotAuth string
	client := newClient(t, func(writer http.ResponseWriter, request *http.Request) {
		require.Equal(t, "/auth/logout", request.URL.Path)
		require.Equal(t, http.MethodPost, request.Method)
		gotAuth = request.Header.Get("Authorization")
		writer.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.Logout(context.Background(), "access-1"))
	assert.Equal(t, "Bearer access-1", gotAuth)
}

/*
TestClient_ErrorMapping pins the status-to-error translation the session
layer branches on. The 401 split matters most: on an identity endpoint it is
a rejected credential, everywhere else it is an expired session.
*/
func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		call     func(client *identity.Client) error
		status   int
		body     string
		wantCode string
	}{
		{
			name:     "login 401 is a rejected credential",
			call:     func(c *identity.Client) error { _, err := c.Login(context.Background(), "a@b.c", "x"); return err },
			status:   http.StatusUnauthorized,
			body:     `{"error":"Invalid credentials"}`,
			wantCode: "UNAUTHORIZED",
		},
		{
			name:     "profile 401 is an expired session",
			call:     func(c *identity.Client) error { _, err := c.Profile(context.Background()); return err },
			status:   http.StatusUnauthorized,
			body:     `{"error":"token invalid"}`,
			wantCode: "SESSION_EXPIRED",
		},
		{
			name:     "refresh 401 is a rejected credential",
			call:     func(c *identity.Client) error { _, err := c.RefreshToken(context.Background(), "r"); return err },
			status:   http.StatusUnauthorized,
			body:     `{"error":"refresh token revoked"}`,
			wantCode: "UNAUTHORIZED",
		},
		{
			name:     "missing endpoint",
			call:     func(c *identity.Client) error { _, err := c.Profile(context.Background()); return err },
			status:   http.StatusNotFound,
			body:     `{}`,
			wantCode: "NOT_FOUND",
		},
		{
			name:     "duplicate registration",
			call:     func(c *identity.Client) error { _, err := c.Register(context.Background(), "n", "a@b.c", "x"); return err },
			status:   http.StatusConflict,
			body:     `{"message":"Email already registered"}`,
			wantCode: "CONFLICT",
		},
		{
			name:     "validation failure",
			call:     func(c *identity.Client) error { _, err := c.Register(context.Background(), "n", "a@b.c", "x"); return err },
			status:   http.StatusUnprocessableEntity,
			body:     `{"error":"password too short"}`,
			wantCode: "VALIDATION_ERROR",
		},
		{
			name:     "provider blowing up",
			call:     func(c *identity.Client) error { _, err := c.Profile(context.Background()); return err },
			status:   http.StatusInternalServerError,
			body:     `{}`,
			wantCode: "UPSTREAM_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, func(writer http.ResponseWriter, _ *http.Request) {
				writer.WriteHeader(tt.status)
				_, _ = writer.Write([]byte(tt.body))
			})

			err := tt.call(client)

			require.Error(t, err)
			appErr := apperr.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestClient_UnreachableProvider(t *testing.T) {
	client := identity.NewClient("http://127.0.0.1:1", http.DefaultClient)

	_, err := client.Login(context.Background(), "a@b.c", "x")

	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", appErr.Code)
}

func TestClient_MalformedSuccessBody(t *testing.T) {
	client := newClient(t, func(writer http.ResponseWriter, _ *http.Request) {
		_, _ = writer.Write([]byte(`this is not json`))
	})

	_, err := client.Login(context.Background(), "a@b.c", "x")

	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", appErr.Code)
}
