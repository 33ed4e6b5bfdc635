// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"net/http"

	"galleryd/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

// SessionKey is the context key for the session data.
const SessionKey contextKey = "session"

// SessionReader resolves a request to session data, or nil when the
// request carries no valid session.
type SessionReader interface {
	Get(ctx context.Context, r *http.Request) (*session.Data, error)
}

// LoadSession retrieves the session from Redis and stores it in the
// request context. Downstream code reads it via SessionFromCtx or
// UserIDFromCtx. This middleware does NOT enforce authentication — it
// just loads the identity if one exists.
func LoadSession(store SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := store.Get(r.Context(), r)
			if err != nil {
				// Log-free degradation: treat as unauthenticated.
				next.ServeHTTP(w, r)
				return
			}

			if data != nil {
				ctx := context.WithValue(r.Context(), SessionKey, data)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin returns 403 unless the authenticated user is an admin.
// Must be applied after LoadSession.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromCtx(r.Context())
		if sess == nil || sess.Role != "admin" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SessionFromCtx extracts the session data from the request context.
// Returns nil if no session is loaded (user is not authenticated).
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(SessionKey).(*session.Data)
	return data
}

// UserIDFromRequest returns the authenticated user id as a string, or ""
// for anonymous requests. This is the identity hook the route cache uses
// for bucket partitioning.
func UserIDFromRequest(r *http.Request) string {
	sess := SessionFromCtx(r.Context())
	if sess == nil {
		return ""
	}
	return sess.UserID.String()
}
