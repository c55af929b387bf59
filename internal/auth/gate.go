// gate.go -- Per-request identity and privilege decisions.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/feedboard/feedboard/internal/oauth"
	"github.com/feedboard/feedboard/internal/store"
	"github.com/gofrs/uuid/v5"
)

// CurrentSession returns the session for r.
// Uses the payload LoadSession put in the context when present, otherwise reads the cookie.
func (h *AuthHandler) CurrentSession(r *http.Request) Payload {
	if p, ok := SessionFromContext(r.Context()); ok {
		return p
	}
	return h.Sessions.Read(r)
}

// CompleteLogin binds the remote identity to a local user and issues a fresh session for it.
// The new session is never admin, even if the previous one was.
func (h *AuthHandler) CompleteLogin(w http.ResponseWriter, r *http.Request, identity *oauth.Identity) (*store.User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating user id: %w", err)
	}

	user, err := h.PS.UpsertUserByExternalID(r.Context(), id, identity.ExternalID, identity.DisplayName, identity.AvatarURL)
	if err != nil {
		return nil, err
	}

	if err := h.Sessions.Issue(w, Payload{UserID: user.ID.String()}); err != nil {
		return nil, err
	}
	return user, nil
}

// EscalateToAdmin compares presented against the admin key and, on a match, re-issues
// the session with IsAdmin set and the current user id (possibly empty) kept.
// Returns false and leaves the session untouched on mismatch or empty input.
func (h *AuthHandler) EscalateToAdmin(w http.ResponseWriter, r *http.Request, presented string) bool {
	if presented == "" || h.AdminKey == "" {
		return false
	}
	// Hash both sides so the comparison time doesn't depend on key length.
	got := sha256.Sum256([]byte(presented))
	want := sha256.Sum256([]byte(h.AdminKey))
	if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
		return false
	}

	current := h.CurrentSession(r)
	if err := h.Sessions.Issue(w, Payload{UserID: current.UserID, IsAdmin: true}); err != nil {
		logError(r, "failed to issue admin session", "error", err)
		return false
	}
	return true
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter) {
	h.Sessions.Clear(w)
}
