// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

// Package session implements the per-browser-session state the FitGate
// gateway keeps on behalf of the FitTrack single-page app: identity
// credentials with durable write-through, token lifetime tracking, proactive
// and reactive refresh, and the authenticated-user snapshot that route
// guards and the /session endpoint read.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/openfit/fitgate/internal/identity"
	"github.com/openfit/fitgate/internal/platform/apperr"
	"github.com/openfit/fitgate/internal/platform/constants"
)

// User is the normalized FitTrack account the gateway tracks for a signed-in
// session. Roles is canonical; the provider's legacy singular role field is
// folded in by NormalizeRoles.
type User struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Roles     []Role  `json:"roles"`
	AvatarURL string  `json:"avatarUrl,omitempty"`
	HeightCM  float64 `json:"heightCm,omitempty"`
	WeightKG  float64 `json:"weightKg,omitempty"`
}

// Primary derives the single display role: admin over coach over customer.
func (user *User) Primary() Role {
	return PrimaryRole(user.Roles)
}

// State is the session view returned to the SPA. The access token itself
// never appears here; the browser only ever holds the opaque session cookie.
type State struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	User            *User  `json:"user"`
	PrimaryRole     Role   `json:"primaryRole,omitempty"`
	IsLoading       bool   `json:"isLoading"`
	Error           string `json:"error,omitempty"`
}

// snapshot is the durable subset of session state. Transient flags
// (loading, last error) deliberately stay out: a gateway restart starts
// those clean, like a page reload.
type snapshot struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	User            *User  `json:"user"`
	Token           string `json:"token"`
}

// Session is one browser session's live state plus the machinery that keeps
// its tokens fresh. All exported methods are safe for concurrent use.
type Session struct {
	id string

	mu            sync.RWMutex
	user          *User
	authenticated bool
	loading       bool
	lastError     string
	lastSeen      time.Time

	credentials *Credentials
	refresher   *Refresher
	scheduler   *Scheduler
	identity    *identity.Client
	httpc       *http.Client
	kv          KV
	log         *slog.Logger
}

// ID returns the opaque session identifier carried by the browser cookie.
func (session *Session) ID() string {
	return session.id
}

// IsAuthenticated reports whether the session holds a signed-in user. The
// invariant is strict: authenticated implies both a user and an access
// token are present.
func (session *Session) IsAuthenticated() bool {
	session.mu.RLock()
	defer session.mu.RUnlock()
	return session.authenticated
}

// User returns the signed-in user, or nil for an anonymous session.
func (session *Session) User() *User {
	session.mu.RLock()
	defer session.mu.RUnlock()
	if session.user == nil {
		return nil
	}
	copied := *session.user
	copied.Roles = append([]Role(nil), session.user.Roles...)
	return &copied
}

// HasAnyRole reports whether the signed-in user holds at least one of the
// allowed roles. Anonymous sessions never qualify.
func (session *Session) HasAnyRole(allowed ...Role) bool {
	session.mu.RLock()
	defer session.mu.RUnlock()
	if !session.authenticated || session.user == nil {
		return false
	}
	return HasAnyRole(session.user.Roles, allowed)
}

// State materializes the SPA-facing session view.
func (session *Session) State() State {
	session.mu.RLock()
	defer session.mu.RUnlock()

	state := State{
		IsAuthenticated: session.authenticated,
		IsLoading:       session.loading,
		Error:           session.lastError,
	}
	if session.user != nil {
		copied := *session.user
		copied.Roles = append([]Role(nil), session.user.Roles...)
		state.User = &copied
		state.PrimaryRole = copied.Primary()
	}
	return state
}

// HTTPClient returns the session's intercepted HTTP client. The API proxy
// routes upstream calls through it so they inherit token handling.
func (session *Session) HTTPClient() *http.Client {
	return session.httpc
}

// Login exchanges credentials for a token pair and signs the session in. On
// failure the session stays anonymous, the error message is recorded in the
// session state, and the error is returned to the caller.
func (session *Session) Login(ctx context.Context, email, password string) error {
	session.beginOperation()
	defer session.endOperation()

	result, err := session.identity.Login(ctx, email, password)
	if err == nil {
		err = checkAuthResult(result)
	}
	if err != nil {
		session.setError(errorMessage(err))
		return err
	}

	session.install(ctx, result)
	session.log.Info("session signed in", "session_id", session.id, "user_id", result.User.ID)
	return nil
}

// Register creates an account and signs the session in with the returned
// token pair. Failure behavior mirrors Login.
func (session *Session) Register(ctx context.Context, name, email, password string) error {
	session.beginOperation()
	defer session.endOperation()

	result, err := session.identity.Register(ctx, name, email, password)
	if err == nil {
		err = checkAuthResult(result)
	}
	if err != nil {
		session.setError(errorMessage(err))
		return err
	}

	session.install(ctx, result)
	session.log.Info("session registered", "session_id", session.id, "user_id", result.User.ID)
	return nil
}

// Logout ends the session: the scheduler stops, tokens are removed from
// memory and the durable store, and the state snapshot is deleted, all
// before this method returns. The provider is notified on a best-effort
// background call whose failure is ignored. Logging out an anonymous
// session is a no-op.
func (session *Session) Logout(ctx context.Context) {
	session.scheduler.Stop()

	// Capture the token before it is cleared so the background notification
	// can still identify the session upstream.
	accessToken := session.credentials.Token()

	// Bump the epoch before touching state so an in-flight refresh that
	// resolves after this point is discarded.
	session.credentials.RemoveTokens(ctx)

	session.mu.Lock()
	wasAuthenticated := session.authenticated
	session.user = nil
	session.authenticated = false
	session.loading = false
	session.lastError = ""
	session.mu.Unlock()

	if err := session.kv.Del(ctx, session.snapshotKey()); err != nil {
		session.log.Warn("session snapshot deletion failed", "session_id", session.id, "error", err)
	}

	if wasAuthenticated {
		session.log.Info("session signed out", "session_id", session.id)
		go func() {
			notifyCtx, cancel := context.WithTimeout(context.Background(), constants.UpstreamTimeout)
			defer cancel()
			_ = session.identity.Logout(notifyCtx, accessToken)
		}()
	}
}

// UpdateUser pushes a profile update to the provider and merges the
// response into the session. Authentication status is unaffected.
func (session *Session) UpdateUser(ctx context.Context, update identity.ProfileUpdate) (*User, error) {
	if !session.IsAuthenticated() {
		return nil, apperr.Unauthorized("You must be signed in to update your profile")
	}

	updated, err := session.identity.UpdateProfile(ctx, update)
	if err != nil {
		session.setError(errorMessage(err))
		return nil, err
	}

	session.setUser(ctx, updated)
	return session.User(), nil
}

// RefreshUserData re-fetches the profile from the provider and replaces the
// cached user.
//
// Failure handling is deliberately uneven. A 404 means the gateway is
// pointed at a provider without the profile endpoint, so a configuration
// error is recorded and the session stays signed in. A 401 that survived the
// transport's refresh-and-retry means the session is truly dead, so the
// session signs out. Any other failure records a generic error and keeps the
// session authenticated with its stale user.
func (session *Session) RefreshUserData(ctx context.Context) error {
	if !session.IsAuthenticated() {
		return nil
	}

	fetched, err := session.identity.Profile(ctx)
	if err != nil {
		switch apperr.StatusOf(err) {
		case http.StatusNotFound:
			session.setError("Profile endpoint not found. Check the identity provider configuration.")
		case http.StatusUnauthorized:
			session.Logout(ctx)
		default:
			session.setError("Could not refresh your profile. Please try again.")
		}
		return err
	}

	session.setUser(ctx, fetched)
	return nil
}

// ClearError discards the recorded error message, if any.
func (session *Session) ClearError() {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.lastError = ""
}

// install adopts a sign-in or registration result: credentials first, then
// user state, then the durable snapshot, and finally the refresh scheduler.
func (session *Session) install(ctx context.Context, result *identity.AuthResult) {
	session.credentials.SetToken(ctx, result.Token, result.ExpiresIn)
	if result.RefreshToken != "" {
		session.credentials.SetRefreshToken(ctx, result.RefreshToken)
	}

	session.mu.Lock()
	session.user = normalizeUser(result.User)
	session.authenticated = true
	session.lastError = ""
	session.mu.Unlock()

	session.persistSnapshot(ctx)
	session.scheduler.Start()
}

// hydrate restores session state persisted by an earlier gateway process.
// The session only comes back authenticated when both the snapshot and a
// persisted access token agree; anything less leaves it anonymous.
func (session *Session) hydrate(ctx context.Context) {
	session.credentials.Hydrate(ctx)

	raw, err := session.kv.Get(ctx, session.snapshotKey())
	if err != nil {
		session.log.Warn("session snapshot read failed", "session_id", session.id, "error", err)
		return
	}
	if raw == "" {
		return
	}

	var persisted snapshot
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		session.log.Warn("discarding unparsable session snapshot", "session_id", session.id, "error", err)
		return
	}
	if !persisted.IsAuthenticated || persisted.User == nil || session.credentials.Token() == "" {
		return
	}

	session.mu.Lock()
	session.user = persisted.User
	session.authenticated = true
	session.mu.Unlock()

	session.scheduler.Start()
	session.log.Info("session hydrated", "session_id", session.id, "user_id", persisted.User.ID)
}

func (session *Session) setUser(ctx context.Context, user *identity.User) {
	session.mu.Lock()
	session.user = normalizeUser(user)
	session.mu.Unlock()
	session.persistSnapshot(ctx)
}

func (session *Session) persistSnapshot(ctx context.Context) {
	session.mu.RLock()
	persisted := snapshot{
		IsAuthenticated: session.authenticated,
		User:            session.user,
		Token:           session.credentials.Token(),
	}
	session.mu.RUnlock()

	encoded, err := json.Marshal(persisted)
	if err != nil {
		session.log.Warn("session snapshot encoding failed", "session_id", session.id, "error", err)
		return
	}
	if err := session.kv.Set(ctx, session.snapshotKey(), string(encoded), constants.SessionTTL); err != nil {
		session.log.Warn("session snapshot persistence failed", "session_id", session.id, "error", err)
	}
}

func (session *Session) snapshotKey() string {
	return constants.KeyPrefixSnapshot + session.id
}

func (session *Session) beginOperation() {
	session.mu.Lock()
	session.loading = true
	session.lastError = ""
	session.mu.Unlock()
}

func (session *Session) endOperation() {
	session.mu.Lock()
	session.loading = false
	session.mu.Unlock()
}

func (session *Session) setError(message string) {
	session.mu.Lock()
	session.lastError = message
	session.mu.Unlock()
}

func (session *Session) touch() {
	session.mu.Lock()
	session.lastSeen = time.Now()
	session.mu.Unlock()
}

func (session *Session) idleSince() time.Time {
	session.mu.RLock()
	defer session.mu.RUnlock()
	return session.lastSeen
}

func normalizeUser(user *identity.User) *User {
	return &User{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Roles:     NormalizeRoles(user.Role, user.Roles),
		AvatarURL: user.AvatarURL,
		HeightCM:  user.HeightCM,
		WeightKG:  user.WeightKG,
	}
}

// checkAuthResult rejects sign-in responses missing the fields the session
// invariant depends on.
func checkAuthResult(result *identity.AuthResult) error {
	if result == nil || result.User == nil || result.Token == "" {
		return apperr.Upstream("The identity provider returned an incomplete sign-in response", nil)
	}
	return nil
}

func errorMessage(err error) string {
	if appErr := apperr.As(err); appErr != nil {
		return appErr.Message
	}
	return "Something went wrong. Please try again."
}
