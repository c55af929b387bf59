// oauth_handler.go -- Linux DO login redirect, callback, and logout handlers.
//
// Every failure in the login flow ends in a redirect home with a login flag;
// users never see a raw error page. Flags: missing_code, bad_state, failed.
package auth

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/feedboard/feedboard/internal/store"
)

// Values of the login query flag on the home page.
const (
	LoginMissingCode = "missing_code"
	LoginBadState    = "bad_state"
	LoginFailed      = "failed"
)

// OAuthRedirect handles GET /login -- stores a fresh state in the state cookie and
// redirects the browser to the provider's consent page.
// Returns 503 when no provider is configured.
func (h *AuthHandler) OAuthRedirect(w http.ResponseWriter, r *http.Request) {
	if h.Provider == nil {
		logError(r, "login requested but oauth provider is not configured")
		ServiceUnavailable(w, "login is not configured")
		return
	}

	state, err := h.State.BeginFlow(w)
	if err != nil {
		logError(r, "oauth redirect: state generation failed", "error", err)
		loginRedirect(w, r, LoginFailed)
		return
	}

	http.Redirect(w, r, h.Provider.AuthCodeURL(state), http.StatusFound)
}

// OAuthCallback handles GET /linux?code=&state= -- verifies state, exchanges the code,
// fetches the profile, binds it to a local user and issues a session.
// The state cookie is cleared whatever the outcome.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	state := q.Get("state")

	// VerifyFlow reads the request cookie, so clearing the response cookie first is safe.
	h.State.ClearFlow(w)

	if code == "" {
		logWarn(r, "oauth callback failed", "reason", "missing_code")
		loginRedirect(w, r, LoginMissingCode)
		return
	}
	if !h.State.VerifyFlow(r, state) {
		logWarn(r, "oauth callback failed", "reason", "state_mismatch")
		loginRedirect(w, r, LoginBadState)
		return
	}
	if h.SL != nil {
		if err := h.SL.Consume(r.Context(), state, StateTTL); err != nil {
			if errors.Is(err, store.ErrStateConsumed) {
				logWarn(r, "oauth callback failed", "reason", "state_replayed")
				loginRedirect(w, r, LoginBadState)
				return
			}
			// Ledger outage: the cookie check above already passed, carry on.
			logError(r, "oauth state ledger unavailable", "error", err)
		}
	}
	if h.Provider == nil {
		logError(r, "oauth callback: provider is not configured")
		loginRedirect(w, r, LoginFailed)
		return
	}

	accessToken, err := h.Provider.Exchange(r.Context(), code)
	if err != nil {
		logWarn(r, "oauth callback: code exchange failed", "error", err, "provider", h.Provider.Name())
		loginRedirect(w, r, LoginFailed)
		return
	}

	identity, err := h.Provider.FetchIdentity(r.Context(), accessToken)
	if err != nil {
		logWarn(r, "oauth callback: userinfo failed", "error", err, "provider", h.Provider.Name())
		loginRedirect(w, r, LoginFailed)
		return
	}

	user, err := h.CompleteLogin(w, r, identity)
	if err != nil {
		logError(r, "oauth callback: completing login failed", "error", err)
		loginRedirect(w, r, LoginFailed)
		return
	}

	logInfo(r, "user logged in", "user_id", user.ID, "provider", h.Provider.Name())
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLogout handles GET /logout -- clears the session and goes home.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.Logout(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// loginRedirect sends the browser home with ?login=flag.
func loginRedirect(w http.ResponseWriter, r *http.Request, flag string) {
	http.Redirect(w, r, "/?"+url.Values{"login": {flag}}.Encode(), http.StatusFound)
}
