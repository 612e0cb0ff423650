// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

/*
Package identity is the HTTP client for the opaque identity provider (the
FitTrack API).

# Architecture

The provider is a black box: it issues {user, token, refreshToken, expiresIn}
on sign-in, sign-up, and refresh, serves the current profile, and accepts a
best-effort sign-out notification. This package translates those five
endpoints into typed Go calls and maps upstream failures into [apperr]
values the session layer can branch on.

The client performs no token management of its own. Bearer injection and
refresh-driven retries live in the per-session transport the client is
constructed with.
*/
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/openfit/fitgate/internal/platform/apperr"
)

// # Endpoints

const (
	// PathRegister creates an account and issues the first credential pair.
	PathRegister = "/auth/register"

	// PathLogin exchanges credentials for a credential pair.
	PathLogin = "/auth/login"

	// PathRefresh exchanges a refresh token for a new credential pair.
	PathRefresh = "/auth/refresh-token"

	// PathLogout is the fire-and-forget sign-out notification.
	PathLogout = "/auth/logout"

	// PathProfile serves the authenticated user's profile.
	PathProfile = "/users/profile"
)

// IsAuthPath reports whether path is one of the identity endpoints that must
// never trigger a refresh-and-retry cycle. A 401 from sign-in, sign-up, or
// the refresh exchange itself is a final answer, not a stale credential.
func IsAuthPath(path string) bool {
	return strings.HasSuffix(path, PathLogin) ||
		strings.HasSuffix(path, PathRegister) ||
		strings.HasSuffix(path, PathRefresh)
}

// # Wire Types

// User is the provider's representation of an account.
//
// A user may carry a single legacy role and/or a roles collection; the
// session layer normalizes the two into one canonical shape at install time.
type User struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Role      string   `json:"role,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	AvatarURL string   `json:"avatarUrl,omitempty"`

	// Fitness profile fields
	HeightCM float64 `json:"heightCm,omitempty"`
	WeightKG float64 `json:"weightKg,omitempty"`
}

// AuthResult is the response body of the login and register endpoints.
type AuthResult struct {
	User         *User  `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// TokenPair is the response body of the refresh endpoint. The rotated
// refresh token is optional; an empty value means "keep using the old one".
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    string `json:"expiresIn"`
}

// ProfileUpdate is a partial profile mutation. Nil fields are left untouched
// by the provider.
type ProfileUpdate struct {
	Name      *string  `json:"name,omitempty"`
	AvatarURL *string  `json:"avatarUrl,omitempty"`
	HeightCM  *float64 `json:"heightCm,omitempty"`
	WeightKG  *float64 `json:"weightKg,omitempty"`
}

// # Client

// Client talks to one identity provider base URL through an injected
// [*http.Client]. The injected client carries the per-session intercepting
// transport, so every call made here is automatically authenticated.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a [Client] for the given provider base URL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Login exchanges credentials for a credential pair and the user profile.
//
// # Returns
//   - [*AuthResult] on success.
//   - [apperr.Unauthorized] when the provider rejects the credentials.
func (client *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body := map[string]string{"email": email, "password": password}

	result := &AuthResult{}
	if err := client.do(ctx, http.MethodPost, PathLogin, body, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Register creates an account and signs it in, in one exchange.
//
// # Returns
//   - [*AuthResult] on success.
//   - [apperr.Conflict] when the email is already registered.
func (client *Client) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	body := map[string]string{"name": name, "email": email, "password": password}

	result := &AuthResult{}
	if err := client.do(ctx, http.MethodPost, PathRegister, body, result); err != nil {
		return nil, err
	}
	return result, nil
}

// RefreshToken exchanges a refresh token for a new credential pair.
//
// A rejected refresh token surfaces as [apperr.Unauthorized]; the refresh
// coordinator treats any failure here as terminal for the session.
func (client *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body := map[string]string{"refreshToken": refreshToken}

	pair := &TokenPair{}
	if err := client.do(ctx, http.MethodPost, PathRefresh, body, pair); err != nil {
		return nil, err
	}
	return pair, nil
}

// Profile fetches the current user profile.
//
// # Returns
//   - [*User] on success.
//   - [apperr.SessionExpired] when the bearer token was rejected even after
//     the transport's one refresh-and-retry cycle.
//   - [apperr.NotFound] when the profile endpoint does not exist upstream
//     (a deployment misconfiguration, not a credential problem).
func (client *Client) Profile(ctx context.Context) (*User, error) {
	user := &User{}
	if err := client.do(ctx, http.MethodGet, PathProfile, nil, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies a partial mutation and returns the updated profile.
func (client *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	user := &User{}
	if err := client.do(ctx, http.MethodPut, PathProfile, update, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout notifies the provider that the session ended. The access token is
// passed explicitly because the caller clears its credential store before
// sending the notification, which leaves the intercepted transport with
// nothing to attach. Best effort: the caller treats any failure as success
// and discards local state regardless.
func (client *Client) Logout(ctx context.Context, accessToken string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+PathLogout, nil)
	if err != nil {
		return apperr.Internal(err)
	}
	request.Header.Set("Accept", "application/json")
	if accessToken != "" {
		request.Header.Set("Authorization", "Bearer "+accessToken)
	}

	response, err := client.http.Do(request)
	if err != nil {
		return apperr.Upstream("Identity service is unreachable", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode >= 400 {
		return decodeError(PathLogout, response)
	}
	return nil
}

// # Internals

// do executes one JSON exchange against the provider.
func (client *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperr.Internal(err)
		}
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, reader)
	if err != nil {
		return apperr.Internal(err)
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := client.http.Do(request)
	if err != nil {
		return apperr.Upstream("Identity service is unreachable", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode >= 400 {
		return decodeError(path, response)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return apperr.Upstream("Identity service returned a malformed response", err)
	}
	return nil
}

// upstreamError is the provider's error envelope. Both field names are seen
// in the wild, so we accept either.
type upstreamError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// decodeError maps an upstream failure status into an [*apperr.AppError].
func decodeError(path string, response *http.Response) *apperr.AppError {
	var envelope upstreamError
	_ = json.NewDecoder(response.Body).Decode(&envelope)

	message := envelope.Error
	if message == "" {
		message = envelope.Message
	}

	switch response.StatusCode {
	case http.StatusUnauthorized:
		// On the identity endpoints a 401 means "credentials rejected"; on
		// every other endpoint it means the session could not be salvaged.
		if IsAuthPath(path) {
			if message == "" {
				message = "Invalid credentials"
			}
			return apperr.Unauthorized(message)
		}
		return apperr.SessionExpired()

	case http.StatusNotFound:
		if message != "" {
			return &apperr.AppError{Code: "NOT_FOUND", Message: message, HTTPStatus: http.StatusNotFound}
		}
		return apperr.NotFound("Endpoint")

	case http.StatusConflict:
		if message == "" {
			message = "Account already exists"
		}
		return apperr.Conflict(message)

	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if message == "" {
			message = "Invalid request"
		}
		return apperr.ValidationError(message)

	default:
		if message == "" {
			message = "Identity service request failed"
		}
		return apperr.Upstream(message, nil)
	}
}
