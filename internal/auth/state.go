// state.go -- OAuth state generation and verification.
//
// The state value lives in a short-lived cookie between /login and the provider
// redirect back to /linux. VerifyFlow only compares; callers clear the cookie.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"
)

// StateCookieName is the cookie holding the pending OAuth state.
const StateCookieName = "linuxdo_oauth_state"

// StateTTL is how long a login flow may take before its state expires.
const StateTTL = 10 * time.Minute

// StateGuard issues and checks OAuth state values.
type StateGuard struct {
	Secure bool // sets the cookie Secure attribute
}

// BeginFlow generates a 256-bit random state, stores it in the state cookie, and returns it.
func (g *StateGuard) BeginFlow(w http.ResponseWriter) (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generating oauth state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(b[:])

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   g.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(StateTTL.Seconds()),
	})
	return state, nil
}

// VerifyFlow reports whether presented exactly matches the state cookie on r.
// Empty presented or a missing/empty cookie is always false. Does not touch any state.
func (g *StateGuard) VerifyFlow(r *http.Request, presented string) bool {
	if presented == "" {
		return false
	}
	cookie, err := r.Cookie(StateCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	// Constant-time comparison prevents timing oracle on state value.
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(presented)) == 1
}

// ClearFlow deletes the state cookie.
func (g *StateGuard) ClearFlow(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   g.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
