// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/blog-go/internal/model"
	"github.com/olegiv/blog-go/internal/service"
	"github.com/olegiv/blog-go/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request-scoped data.
const (
	ContextKeyUser        ContextKey = "user"
	ContextKeyRequestPath ContextKey = "request_path"
)

// SessionKeyUserID is the session key for the authenticated user's id.
const SessionKeyUserID = "user_id"

// LoadUser creates middleware that rehydrates the session into a user record
// on every request. A session whose user id no longer matches a record is
// destroyed and the request proceeds as anonymous.
func LoadUser(sm *scs.SessionManager, db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), SessionKeyUserID)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			user, err := queries.GetUserByID(r.Context(), userID)
			if err != nil {
				// Stale session - clear it and continue anonymously
				_ = sm.Destroy(r.Context())
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *store.User {
	user, ok := r.Context().Value(ContextKeyUser).(store.User)
	if !ok {
		return nil
	}
	return &user
}

// GetUserID returns the current user's ID from context, or 0 if not found.
// Safe to use in logging where a zero-value is acceptable.
func GetUserID(r *http.Request) int64 {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return 0
}

// GetUserIDPtr returns a pointer to the current user's ID from context, or nil
// if not found. Useful for optional user ID parameters in event logging.
func GetUserIDPtr(r *http.Request) *int64 {
	if user := GetUser(r); user != nil {
		id := user.ID
		return &id
	}
	return nil
}

// IsAuthenticated reports whether the request carries an authenticated user.
func IsAuthenticated(r *http.Request) bool {
	return GetUser(r) != nil
}

// RequireAdmin creates middleware that guards post-mutation routes.
// Anonymous and non-admin requesters both receive 403 Forbidden before any
// side effect; only the admin reaches the wrapped handler.
func RequireAdmin(eventService *service.EventService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil || !user.IsAdmin() {
				slog.Warn("access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", GetUserID(r),
					"remote_addr", r.RemoteAddr,
				)

				if eventService != nil {
					metadata := map[string]any{
						"method": r.Method,
						"path":   r.URL.Path,
						"status": http.StatusForbidden,
					}
					_ = eventService.LogAuthEvent(r.Context(), model.EventLevelWarning,
						"Access denied: admin required", GetUserIDPtr(r), metadata)
				}

				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestPath creates middleware that stores the request path in the context.
// This is used by the logging handler to include the URL in error logs.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, ok := ctx.Value(ContextKeyRequestPath).(string)
	if !ok {
		return ""
	}
	return path
}
