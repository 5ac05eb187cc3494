// Package middleware provides HTTP middlewares for session cookies,
// request logging and response headers.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

// Cookie names shared by the proxy handlers and the client.
const (
	// SessionCookie carries the upstream session token. It is HttpOnly.
	SessionCookie = "uat"
	// UserCookie carries the JSON-encoded identity for client display.
	UserCookie = "user"
)

type ctxKey string

const tokenKey ctxKey = "session_token"

// Session is a middleware that reads the session cookie, if present, and
// stores its token in the request context for downstream handlers.
// It never rejects a request; see RequireSession.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), tokenKey, c.Value)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSession rejects requests without a session token with 401 and the
// standard failure envelope. It must run after Session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSessionToken(r.Context()) == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"message": "Unauthorized",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSessionToken extracts the session token from the request context.
// Returns an empty string if not found.
func GetSessionToken(ctx context.Context) string {
	val := ctx.Value(tokenKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
