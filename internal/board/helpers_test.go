package board

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/feedboard/feedboard/internal/auth"
	"github.com/feedboard/feedboard/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
)

// --- Shared helpers ---

// fixedSession is a SessionReader that always returns the same payload.
type fixedSession auth.Payload

func (s fixedSession) CurrentSession(*http.Request) auth.Payload { return auth.Payload(s) }

// newTestHandler wires a Handler over a fresh MockStore with session p.
func newTestHandler(t *testing.T, p auth.Payload) (*Handler, *testutil.MockStore) {
	t.Helper()
	pages, err := NewPages()
	if err != nil {
		t.Fatalf("NewPages: %v", err)
	}
	ms := testutil.NewMockStore()
	return &Handler{PS: ms, Sessions: fixedSession(p), Pages: pages, LoginEnabled: true}, ms
}

// testRouter mounts the board routes the way main does, minus auth middleware.
func testRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Home)
	r.Get("/square", h.Square)
	r.Get("/square/{id}", h.Detail)
	r.Post("/square/{id}/reply", h.CreateReply)
	r.Get("/new", h.NewForm)
	r.Post("/new", h.CreateFeedback)
	r.Get("/me", h.Mine)
	r.Get("/admin", h.AdminPage)
	return r
}

// get serves GET target through testRouter.
func get(h *Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	testRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

// postForm serves a form POST through testRouter.
func postForm(h *Handler, target string, form url.Values) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	testRouter(h).ServeHTTP(w, r)
	return w
}

func body(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	b, err := io.ReadAll(w.Result().Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(b)
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, want string) {
	t.Helper()
	if w.Code != http.StatusFound {
		t.Fatalf("status: expected 302, got %d", w.Code)
	}
	if got := w.Header().Get("Location"); got != want {
		t.Errorf("Location: expected %q, got %q", want, got)
	}
}

// mustUser stores a user with the given display name and returns its id.
func mustUser(t *testing.T, ms *testutil.MockStore, name string) uuid.UUID {
	t.Helper()
	u, err := ms.UpsertUserByExternalID(context.Background(), uuid.Must(uuid.NewV7()), "ext-"+name, name, "")
	if err != nil {
		t.Fatalf("UpsertUserByExternalID: %v", err)
	}
	return u.ID
}

// mustFeedback stores a feedback row owned by userID and returns its id.
func mustFeedback(t *testing.T, ms *testutil.MockStore, userID uuid.UUID, title string, public bool) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV7())
	if err := ms.CreateFeedback(context.Background(), id, userID, title, "content of "+title, public); err != nil {
		t.Fatalf("CreateFeedback: %v", err)
	}
	return id
}
