// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package session

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openfit/fitgate/internal/identity"
	"github.com/openfit/fitgate/internal/platform/apperr"
	"github.com/openfit/fitgate/internal/platform/constants"
	"github.com/openfit/fitgate/internal/platform/ctxkey"
	"github.com/openfit/fitgate/internal/platform/respond"
	"github.com/openfit/fitgate/internal/platform/validate"
	"github.com/openfit/fitgate/pkg/pointer"
)

// FromContext returns the session attached by [Middleware], or nil when the
// request never passed through it.
func FromContext(ctx context.Context) *Session {
	active, _ := ctx.Value(ctxkey.KeySession).(*Session)
	return active
}

// Middleware resolves the browser's session cookie into a live Session and
// attaches it to the request context. Browsers arriving without a cookie get
// a fresh identifier set on the response.
func Middleware(registry *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			sessionID := ""
			if cookie, err := request.Cookie(constants.SessionCookieName); err == nil && cookie.Value != "" {
				sessionID = cookie.Value
			}
			if sessionID == "" {
				sessionID = NewSessionID()
				http.SetCookie(writer, &http.Cookie{
					Name:     constants.SessionCookieName,
					Value:    sessionID,
					Path:     constants.SessionCookiePath,
					MaxAge:   int(constants.SessionTTL.Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			active := registry.Resolve(request.Context(), sessionID)
			next.ServeHTTP(writer, request.WithContext(
				context.WithValue(request.Context(), ctxkey.KeySession, active),
			))
		})
	}
}

// Handler exposes the session lifecycle over HTTP for the SPA.
type Handler struct{}

// NewHandler builds the session HTTP handler.
func NewHandler() *Handler {
	return &Handler{}
}

// AuthRoutes returns the router mounted at /auth. signInLimiter is applied
// to the credential-bearing endpoints only, so session polling stays
// unthrottled.
func (handler *Handler) AuthRoutes(signInLimiter func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()
	router.Group(func(limited chi.Router) {
		if signInLimiter != nil {
			limited.Use(signInLimiter)
		}
		limited.Post("/login", handler.login)
		limited.Post("/register", handler.register)
	})
	router.Post("/logout", handler.logout)
	router.Get("/session", handler.session)
	router.Delete("/error", handler.clearError)
	return router
}

// UserRoutes returns the router mounted at /users.
func (handler *Handler) UserRoutes() chi.Router {
	router := chi.NewRouter()
	router.Get("/me", handler.currentUser)
	router.Put("/me", handler.updateUser)
	router.Post("/me/refresh", handler.refreshUser)
	return router
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var payload loginRequest
	if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := validate.New().
		Required("email", payload.Email).
		Email("email", payload.Email).
		Required("password", payload.Password)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	active := FromContext(request.Context())
	if err := active.Login(request.Context(), payload.Email, payload.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, active.State())
}

func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var payload registerRequest
	if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := validate.New().
		Required("name", payload.Name).
		MaxLen("name", payload.Name, 120).
		Required("email", payload.Email).
		Email("email", payload.Email).
		Required("password", payload.Password).
		MinLen("password", payload.Password, 8)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	active := FromContext(request.Context())
	if err := active.Register(request.Context(), payload.Name, payload.Email, payload.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, active.State())
}

func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	active := FromContext(request.Context())
	active.Logout(request.Context())
	respond.OK(writer, active.State())
}

func (handler *Handler) session(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, FromContext(request.Context()).State())
}

func (handler *Handler) clearError(writer http.ResponseWriter, request *http.Request) {
	FromContext(request.Context()).ClearError()
	respond.NoContent(writer)
}

func (handler *Handler) currentUser(writer http.ResponseWriter, request *http.Request) {
	active := FromContext(request.Context())
	if !active.IsAuthenticated() {
		respond.Error(writer, request, apperr.Unauthorized("You must be signed in"))
		return
	}
	respond.OK(writer, active.User())
}

func (handler *Handler) updateUser(writer http.ResponseWriter, request *http.Request) {
	var payload identity.ProfileUpdate
	if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if payload.Name != nil {
		validator := validate.New().
			Required("name", pointer.Val(payload.Name)).
			MaxLen("name", pointer.Val(payload.Name), 120)
		if validator.HasErrors() {
			respond.Error(writer, request, validator.Err())
			return
		}
	}

	active := FromContext(request.Context())
	updated, err := active.UpdateUser(request.Context(), payload)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, updated)
}

func (handler *Handler) refreshUser(writer http.ResponseWriter, request *http.Request) {
	active := FromContext(request.Context())
	if !active.IsAuthenticated() {
		respond.Error(writer, request, apperr.Unauthorized("You must be signed in"))
		return
	}
	if err := active.RefreshUserData(request.Context()); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, active.User())
}
