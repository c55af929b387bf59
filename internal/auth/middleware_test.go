package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feedboard/feedboard/internal/store"
	"github.com/feedboard/feedboard/internal/testutil"
)

// --- LoadSession ---

func TestLoadSession(t *testing.T) {
	h, _, _ := newTestHandler(t)

	var got Payload
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = SessionFromContext(r.Context())
	})

	t.Run("puts decoded payload in context", func(t *testing.T) {
		r := requestWithSession(t, h.Sessions, http.MethodGet, "/", Payload{UserID: "u1", IsAdmin: true})
		h.LoadSession(next).ServeHTTP(httptest.NewRecorder(), r)
		if !ok || got != (Payload{UserID: "u1", IsAdmin: true}) {
			t.Errorf("context payload: got %+v (ok=%v)", got, ok)
		}
	})

	t.Run("anonymous visitor gets zero payload, not a rejection", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "forged"})
		w := httptest.NewRecorder()
		h.LoadSession(next).ServeHTTP(w, r)
		if !ok || got != (Payload{}) {
			t.Errorf("context payload: got %+v (ok=%v)", got, ok)
		}
		if w.Code != http.StatusOK {
			t.Errorf("status: expected 200, got %d", w.Code)
		}
	})

	t.Run("SessionFromContext without middleware", func(t *testing.T) {
		if _, ok := SessionFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()); ok {
			t.Error("expected ok=false without LoadSession")
		}
	})
}

// --- RequireUser / RequireAdmin ---

func TestRequireUser(t *testing.T) {
	h, _, _ := newTestHandler(t)
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true })

	t.Run("anonymous is redirected to /login", func(t *testing.T) {
		reached = false
		w := httptest.NewRecorder()
		h.RequireUser(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assertRedirect(t, w, "/login")
		if reached {
			t.Error("next handler should not run")
		}
	})

	t.Run("admin without uid is still not a user", func(t *testing.T) {
		reached = false
		w := httptest.NewRecorder()
		h.RequireUser(next).ServeHTTP(w, requestWithSession(t, h.Sessions, http.MethodGet, "/me", Payload{IsAdmin: true}))
		assertRedirect(t, w, "/login")
	})

	t.Run("user passes", func(t *testing.T) {
		reached = false
		h.RequireUser(next).ServeHTTP(httptest.NewRecorder(), requestWithSession(t, h.Sessions, http.MethodGet, "/me", Payload{UserID: "u1"}))
		if !reached {
			t.Error("next handler should run")
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	h, _, _ := newTestHandler(t)
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true })

	t.Run("non-admin gets 404", func(t *testing.T) {
		reached = false
		w := httptest.NewRecorder()
		h.RequireAdmin(next).ServeHTTP(w, requestWithSession(t, h.Sessions, http.MethodPost, "/square/x/reply", Payload{UserID: "u1"}))
		if w.Code != http.StatusNotFound {
			t.Errorf("status: expected 404, got %d", w.Code)
		}
		if reached {
			t.Error("next handler should not run")
		}
	})

	t.Run("admin passes", func(t *testing.T) {
		reached = false
		h.RequireAdmin(next).ServeHTTP(httptest.NewRecorder(), requestWithSession(t, h.Sessions, http.MethodPost, "/square/x/reply", Payload{IsAdmin: true}))
		if !reached {
			t.Error("next handler should run")
		}
	})
}

// --- CheckHealth ---

func TestCheckHealth(t *testing.T) {
	cases := []struct {
		name       string
		pgErr      error
		redis      HealthChecker
		wantStatus int
		wantPG     string
		wantRedis  string
	}{
		{"all ok", nil, testutil.MockHealth{}, http.StatusOK, "ok", "ok"},
		{"redis disabled", nil, testutil.MockHealth{Err: store.ErrCacheDisabled}, http.StatusOK, "ok", "disabled"},
		{"redis absent", nil, nil, http.StatusOK, "ok", "disabled"},
		{"redis down", nil, testutil.MockHealth{Err: errors.New("conn refused")}, http.StatusServiceUnavailable, "ok", "error"},
		{"postgres down", errors.New("conn refused"), testutil.MockHealth{}, http.StatusServiceUnavailable, "error", "ok"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, ms, _ := newTestHandler(t)
			ms.HealthErr = tc.pgErr
			h.RS = tc.redis

			w := httptest.NewRecorder()
			h.CheckHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tc.wantStatus {
				t.Errorf("status: expected %d, got %d", tc.wantStatus, w.Code)
			}
			var body healthStatus
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body.Postgres != tc.wantPG || body.Redis != tc.wantRedis {
				t.Errorf("body: expected {%s %s}, got %+v", tc.wantPG, tc.wantRedis, body)
			}
		})
	}
}
