// admin_handler.go -- Admin key escalation handler for POST /admin.
package auth

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/feedboard/feedboard/internal/store"
)

// AdminLogin handles POST /admin -- form field "key".
// On a match the session gains the admin flag and the browser goes to /admin.
// Wrong key, lockout, and limiter failure all redirect to /admin?bad=1 so callers can't tell them apart.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		logWarn(r, "admin login failed", "reason", "bad_form", "error", err)
		badAdminRedirect(w, r)
		return
	}

	if h.RL != nil {
		err := h.RL.Allow(r.Context(), "admin_key:"+clientIP(r), h.adminPolicy())
		if err != nil {
			if errors.Is(err, store.ErrRateLimitExceeded) {
				logWarn(r, "admin login failed", "reason", "rate_limited")
			} else {
				logError(r, "admin login rate limiter failed", "error", err)
			}
			badAdminRedirect(w, r)
			return
		}
	}

	// Surrounding whitespace is dropped; the rest must match exactly.
	key := strings.TrimSpace(r.PostForm.Get("key"))
	if !h.EscalateToAdmin(w, r, key) {
		logWarn(r, "admin login failed", "reason", "bad_key")
		badAdminRedirect(w, r)
		return
	}

	logInfo(r, "admin session granted", "user_id", h.CurrentSession(r).UserID)
	http.Redirect(w, r, "/admin", http.StatusFound)
}

// badAdminRedirect sends the browser back to the admin entry page with the bad-key flag.
func badAdminRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin?bad=1", http.StatusFound)
}

// clientIP returns the host part of the TCP peer address.
// The address saved by RememberPeer wins over r.RemoteAddr, which RealIP may have
// replaced with a forwarded header value.
func clientIP(r *http.Request) string {
	addr, ok := r.Context().Value(peerKey).(string)
	if !ok {
		addr = r.RemoteAddr
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
