// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/blog-go/internal/auth"
	"github.com/olegiv/blog-go/internal/middleware"
	"github.com/olegiv/blog-go/internal/model"
	"github.com/olegiv/blog-go/internal/render"
	"github.com/olegiv/blog-go/internal/service"
	"github.com/olegiv/blog-go/internal/store"
)

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	queries        *store.Queries
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	eventService   *service.EventService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager) *AuthHandler {
	return &AuthHandler{
		queries:        store.New(db),
		renderer:       renderer,
		sessionManager: sm,
		eventService:   service.NewEventService(db),
	}
}

// loginFailedMessage is shared by the unknown-email and wrong-password
// branches so a response never reveals whether an account exists.
const loginFailedMessage = "Account does not exist. Please double check your credentials."

// AuthFormData holds form state for the register and login pages.
type AuthFormData struct {
	Errors     map[string]string
	FormValues map[string]string
}

// RegisterForm handles GET /register - displays the registration form.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if middleware.IsAuthenticated(r) {
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
		return
	}

	data := AuthFormData{
		Errors:     make(map[string]string),
		FormValues: make(map[string]string),
	}

	if err := h.renderer.Render(w, r, "register", render.TemplateData{
		Title: "Register",
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// Register handles POST /register - creates a new account and signs it in.
// The first account ever registered becomes the admin. Already-authenticated
// requests are sent home without touching the form.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if middleware.IsAuthenticated(r) {
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
		return
	}

	if !parseFormOrRedirect(w, r, h.renderer, RouteRegister) {
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	formValues := map[string]string{
		"name":  name,
		"email": email,
	}

	formErrors := make(map[string]string)

	if name == "" {
		formErrors["name"] = "Name is required"
	} else if len(name) > MaxNameLength {
		formErrors["name"] = "Name is too long"
	}

	if email == "" {
		formErrors["email"] = "Email is required"
	} else if _, err := mail.ParseAddress(email); err != nil || len(email) > MaxEmailLength {
		formErrors["email"] = "Invalid email address"
	}

	if len(password) < MinPasswordLength {
		formErrors["password"] = "Password must be at least 8 characters"
	}

	if len(formErrors) > 0 {
		h.renderRegisterForm(w, r, formErrors, formValues)
		return
	}

	// A second registration with a known email is sent to the login page
	if _, err := h.queries.GetUserByEmail(r.Context(), email); err == nil {
		flashError(w, r, h.renderer, RouteLogin, "You've already signed up with that email, log in instead!")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		logAndInternalError(w, "database error checking email", "error", err)
		return
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		logAndInternalError(w, "password hash error", "error", err)
		return
	}

	// The first account gets the admin role
	role := store.RoleUser
	count, err := h.queries.CountUsers(r.Context())
	if err != nil {
		logAndInternalError(w, "database error counting users", "error", err)
		return
	}
	if count == 0 {
		role = store.RoleAdmin
	}

	now := time.Now()
	user, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			// Lost a race with a concurrent registration for the same email
			flashError(w, r, h.renderer, RouteLogin, "You've already signed up with that email, log in instead!")
			return
		}
		logAndInternalError(w, "failed to create user", "error", err)
		return
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	slog.Info("user registered", "user_id", user.ID, "email", user.Email, "role", user.Role)
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User registered", &user.ID,
		map[string]any{"email": user.Email, "role": user.Role})

	flashSuccess(w, r, h.renderer, RouteRoot, "Welcome, "+user.Name+"!")
}

func (h *AuthHandler) renderRegisterForm(w http.ResponseWriter, r *http.Request, formErrors, formValues map[string]string) {
	data := AuthFormData{
		Errors:     formErrors,
		FormValues: formValues,
	}

	if err := h.renderer.Render(w, r, "register", render.TemplateData{
		Title: "Register",
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// LoginForm handles GET /login - displays the login form.
// Already-authenticated users are sent to the homepage.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if middleware.IsAuthenticated(r) {
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
		return
	}

	h.renderLoginForm(w, r, make(map[string]string), make(map[string]string))
}

// Login handles POST /login. A failed attempt re-renders the form with an
// error message rather than redirecting; the session is untouched.
// Already-authenticated requests are sent home without touching the form.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if middleware.IsAuthenticated(r) {
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderLoginForm(w, r, map[string]string{"form": "Invalid form data"}, make(map[string]string))
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	formValues := map[string]string{"email": email}

	if email == "" || password == "" {
		h.renderLoginForm(w, r, map[string]string{"form": "Email and password are required"}, formValues)
		return
	}

	user, err := h.queries.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Debug("login attempt for non-existent user", "email", email)
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login failed: user not found", nil,
				map[string]any{"email": email})
		} else {
			slog.Error("database error during login", "error", err)
		}
		h.renderLoginForm(w, r, map[string]string{"form": loginFailedMessage}, formValues)
		return
	}

	valid, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err)
		h.renderLoginForm(w, r, map[string]string{"form": loginFailedMessage}, formValues)
		return
	}
	if !valid {
		slog.Debug("invalid password attempt", "email", email)
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login failed: invalid password", &user.ID,
			map[string]any{"email": email})
		h.renderLoginForm(w, r, map[string]string{"form": loginFailedMessage}, formValues)
		return
	}

	// Re-hash password if it uses old/expensive parameters
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), store.UpdateUserPasswordParams{
				PasswordHash: newHash,
				UpdatedAt:    time.Now(),
				ID:           user.ID,
			}); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			} else {
				slog.Info("password re-hashed with updated parameters", "user_id", user.ID)
			}
		}
	}

	if err := h.queries.UpdateUserLastLogin(r.Context(), store.UpdateUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: time.Now(), Valid: true},
		ID:          user.ID,
	}); err != nil {
		slog.Error("failed to update last login time", "error", err, "user_id", user.ID)
		// Don't block login on this error
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged in", &user.ID,
		map[string]any{"email": user.Email})

	http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
}

func (h *AuthHandler) renderLoginForm(w http.ResponseWriter, r *http.Request, formErrors, formValues map[string]string) {
	data := AuthFormData{
		Errors:     formErrors,
		FormValues: formValues,
	}

	if err := h.renderer.Render(w, r, "login", render.TemplateData{
		Title: "Log In",
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// Logout handles GET /logout. Destroying an absent session is a no-op, so
// the route is safe to hit while logged out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID)

	if userID > 0 {
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged out", &userID, nil)
	}

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
}
