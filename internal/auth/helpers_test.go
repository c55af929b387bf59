package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feedboard/feedboard/internal/oauth"
	"github.com/feedboard/feedboard/internal/testutil"
)

// --- Shared helpers ---

const testSecret = "test-session-secret-0123456789abcdef"
const testAdminKey = "correct-horse-battery-staple"

// mustCodec returns a SessionCodec over testSecret with default TTL, insecure cookies.
func mustCodec(t *testing.T) *SessionCodec {
	t.Helper()
	c, err := NewSessionCodec([]byte(testSecret), false, 0)
	if err != nil {
		t.Fatalf("NewSessionCodec: %v", err)
	}
	return c
}

// newTestHandler wires an AuthHandler over fresh mocks.
// The provider accepts code "good-code" and returns identity ext-7/alice.
func newTestHandler(t *testing.T) (*AuthHandler, *testutil.MockStore, *testutil.MockProvider) {
	t.Helper()
	ms := testutil.NewMockStore()
	mp := &testutil.MockProvider{
		ValidCode: "good-code",
		Identity:  &oauth.Identity{ExternalID: "ext-7", DisplayName: "alice", AvatarURL: "https://cdn.example/a.png"},
	}
	h := &AuthHandler{
		PS:       ms,
		RL:       &testutil.MockRateLimiter{},
		SL:       &testutil.MockStateLedger{},
		RS:       testutil.MockHealth{},
		Provider: mp,
		Sessions: mustCodec(t),
		State:    &StateGuard{},
		AdminKey: testAdminKey,
	}
	return h, ms, mp
}

// responseCookie returns the named Set-Cookie from a recorded response, or nil.
func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// requestWithSession builds a request carrying a session cookie for p.
func requestWithSession(t *testing.T, codec *SessionCodec, method, target string, p Payload) *http.Request {
	t.Helper()
	r := httptest.NewRequest(method, target, nil)
	token, err := codec.Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	return r
}

// followCookie turns a response's Set-Cookie into a request cookie on next, like a browser would.
// A cleared cookie (MaxAge < 0) is left off.
func followCookie(w *httptest.ResponseRecorder, name string, next *http.Request) {
	if c := responseCookie(w, name); c != nil && c.MaxAge >= 0 && c.Value != "" {
		next.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
}
