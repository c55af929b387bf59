// middleware.go

// Session loading and access-control middleware.
package auth

import (
	"context"
	"net/http"
)

// contextKey is unexported to prevent collisions with other packages using the same context.
type contextKey string

const (
	sessionKey contextKey = "session"
	peerKey    contextKey = "peer"
)

// SessionFromContext retrieves the session payload put in context by LoadSession.
// Returns the zero Payload and false if LoadSession hasn't run.
func SessionFromContext(ctx context.Context) (Payload, bool) {
	p, ok := ctx.Value(sessionKey).(Payload)
	return p, ok
}

// WithSession returns a copy of ctx carrying p.
func WithSession(ctx context.Context, p Payload) context.Context {
	return context.WithValue(ctx, sessionKey, p)
}

// RememberPeer stores the TCP peer address in context.
// Mount it before chi's RealIP, which rewrites RemoteAddr from client-supplied headers.
func RememberPeer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), peerKey, r.RemoteAddr)))
	})
}

// LoadSession decodes the session cookie once per request and stores the payload in context.
// Never rejects: a bad or missing token just means an anonymous visitor.
func (h *AuthHandler) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := h.Sessions.Read(r)
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), p)))
	})
}

// RequireUser redirects to /login when the session has no user id.
func (h *AuthHandler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.CurrentSession(r).Authenticated() {
			logDebug(r, "require user failed", "reason", "anonymous")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin responds 404 unless the session carries the admin flag.
// 404 rather than 403 so admin-only routes don't advertise themselves.
func (h *AuthHandler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.CurrentSession(r).IsAdmin {
			logWarn(r, "require admin failed", "reason", "not_admin")
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
