package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feedboard/feedboard/internal/oauth"
)

// --- CompleteLogin ---

func TestCompleteLogin(t *testing.T) {
	identity := &oauth.Identity{ExternalID: "ext-7", DisplayName: "alice"}

	t.Run("same identity maps to same user and never grants admin", func(t *testing.T) {
		h, ms, _ := newTestHandler(t)

		var ids []string
		for i := 0; i < 2; i++ {
			// Start from an admin session to prove login doesn't carry the flag over
			r := requestWithSession(t, h.Sessions, http.MethodGet, "/linux", Payload{IsAdmin: true})
			w := httptest.NewRecorder()

			user, err := h.CompleteLogin(w, r, identity)
			if err != nil {
				t.Fatalf("CompleteLogin #%d: %v", i+1, err)
			}

			next := httptest.NewRequest(http.MethodGet, "/", nil)
			followCookie(w, SessionCookieName, next)
			p := h.Sessions.Read(next)
			if p.UserID != user.ID.String() {
				t.Errorf("session uid: expected %q, got %q", user.ID.String(), p.UserID)
			}
			if p.IsAdmin {
				t.Error("login must not grant admin")
			}
			ids = append(ids, p.UserID)
		}

		if ids[0] != ids[1] {
			t.Errorf("expected same local id for repeated login, got %q and %q", ids[0], ids[1])
		}
		if len(ms.Users) != 1 {
			t.Errorf("expected 1 stored user, got %d", len(ms.Users))
		}
	})

	t.Run("store failure issues no session", func(t *testing.T) {
		h, ms, _ := newTestHandler(t)
		ms.UpsertUserErr = errors.New("db down")

		w := httptest.NewRecorder()
		if _, err := h.CompleteLogin(w, httptest.NewRequest(http.MethodGet, "/linux", nil), identity); err == nil {
			t.Fatal("expected error, got nil")
		}
		if responseCookie(w, SessionCookieName) != nil {
			t.Error("no session cookie should be written on failure")
		}
	})
}

// --- EscalateToAdmin ---

func TestEscalateToAdmin(t *testing.T) {
	t.Run("correct key keeps uid and sets admin", func(t *testing.T) {
		h, _, _ := newTestHandler(t)
		r := requestWithSession(t, h.Sessions, http.MethodPost, "/admin", Payload{UserID: "u1"})
		w := httptest.NewRecorder()

		if !h.EscalateToAdmin(w, r, testAdminKey) {
			t.Fatal("expected escalation to succeed")
		}

		next := httptest.NewRequest(http.MethodGet, "/admin", nil)
		followCookie(w, SessionCookieName, next)
		if got := h.Sessions.Read(next); got != (Payload{UserID: "u1", IsAdmin: true}) {
			t.Errorf("session: expected {u1 true}, got %+v", got)
		}
	})

	t.Run("anonymous session becomes admin without uid", func(t *testing.T) {
		h, _, _ := newTestHandler(t)
		w := httptest.NewRecorder()

		if !h.EscalateToAdmin(w, httptest.NewRequest(http.MethodPost, "/admin", nil), testAdminKey) {
			t.Fatal("expected escalation to succeed")
		}

		next := httptest.NewRequest(http.MethodGet, "/admin", nil)
		followCookie(w, SessionCookieName, next)
		if got := h.Sessions.Read(next); got != (Payload{IsAdmin: true}) {
			t.Errorf("session: expected {\"\" true}, got %+v", got)
		}
	})

	for _, key := range []string{"wrong", "", testAdminKey + "x", testAdminKey[:5]} {
		t.Run("rejects key "+key, func(t *testing.T) {
			h, _, _ := newTestHandler(t)
			r := requestWithSession(t, h.Sessions, http.MethodPost, "/admin", Payload{UserID: "u1"})
			w := httptest.NewRecorder()

			if h.EscalateToAdmin(w, r, key) {
				t.Fatal("expected escalation to fail")
			}
			if responseCookie(w, SessionCookieName) != nil {
				t.Error("session must be untouched on failure")
			}
		})
	}

	t.Run("unset admin key never matches", func(t *testing.T) {
		h, _, _ := newTestHandler(t)
		h.AdminKey = ""
		if h.EscalateToAdmin(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/admin", nil), "") {
			t.Fatal("expected escalation to fail")
		}
	})
}

// --- CurrentSession / Logout ---

func TestCurrentSessionAndLogout(t *testing.T) {
	h, _, _ := newTestHandler(t)

	t.Run("reads cookie when no middleware ran", func(t *testing.T) {
		r := requestWithSession(t, h.Sessions, http.MethodGet, "/", Payload{UserID: "u9"})
		if got := h.CurrentSession(r); got.UserID != "u9" {
			t.Errorf("CurrentSession: expected u9, got %+v", got)
		}
	})

	t.Run("prefers payload from context", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(WithSession(r.Context(), Payload{UserID: "ctx-user"}))
		if got := h.CurrentSession(r); got.UserID != "ctx-user" {
			t.Errorf("CurrentSession: expected ctx-user, got %+v", got)
		}
	})

	t.Run("logout then read is anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Logout(w)

		next := httptest.NewRequest(http.MethodGet, "/", nil)
		followCookie(w, SessionCookieName, next)
		if got := h.CurrentSession(next); got != (Payload{}) {
			t.Errorf("after logout: expected zero payload, got %+v", got)
		}
	})
}
