// stores.go
//
// Shared mock implementations of the store, limiter, ledger, and OAuth provider.
// Imported by test files across packages to avoid duplicate mock definitions.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/feedboard/feedboard/internal/oauth"
	"github.com/feedboard/feedboard/internal/store"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// MockStore implements auth.Store and board.Store for tests.
// Always stateful...users, feedback and replies are maps, like a real store.
// Use *Err fields to inject errors for specific operations.
type MockStore struct {
	// Error injection...zero value means no error
	UpsertUserErr     error
	GetUserErr        error
	CreateFeedbackErr error
	GetFeedbackErr    error
	ListFeedbackErr   error
	CreateReplyErr    error
	HealthErr         error

	Users      map[uuid.UUID]*store.User
	Feedback   map[uuid.UUID]*store.Feedback
	Replies    map[uuid.UUID][]store.Reply // keyed by feedback id
	byExternal map[string]uuid.UUID

	// clock orders rows created in the same instant
	clock time.Time
	mu    sync.Mutex
}

// NewMockStore returns an empty MockStore ready for use.
func NewMockStore() *MockStore {
	return &MockStore{
		Users:      make(map[uuid.UUID]*store.User),
		Feedback:   make(map[uuid.UUID]*store.Feedback),
		Replies:    make(map[uuid.UUID][]store.Reply),
		byExternal: make(map[string]uuid.UUID),
		clock:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp. Caller holds mu.
func (m *MockStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *MockStore) UpsertUserByExternalID(_ context.Context, id uuid.UUID, externalID, username, avatarURL string) (*store.User, error) {
	if m.UpsertUserErr != nil {
		return nil, m.UpsertUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var avatar *string
	if avatarURL != "" {
		avatar = &avatarURL
	}

	now := m.tick()
	if existing, ok := m.byExternal[externalID]; ok {
		u := m.Users[existing]
		u.Username = username
		u.AvatarURL = avatar
		u.UpdatedAt = now
		cp := *u
		return &cp, nil
	}

	u := &store.User{ID: id, LinuxDoID: externalID, Username: username, AvatarURL: avatar, CreatedAt: now, UpdatedAt: now}
	m.Users[id] = u
	m.byExternal[externalID] = id
	cp := *u
	return &cp, nil
}

func (m *MockStore) GetUserByID(_ context.Context, id uuid.UUID) (*store.User, error) {
	if m.GetUserErr != nil {
		return nil, m.GetUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, fmt.Errorf("fetching user: %w", pgx.ErrNoRows)
	}
	cp := *u
	return &cp, nil
}

func (m *MockStore) CreateFeedback(_ context.Context, id, userID uuid.UUID, title, content string, isPublic bool) error {
	if m.CreateFeedbackErr != nil {
		return m.CreateFeedbackErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	m.Feedback[id] = &store.Feedback{
		ID: id, Title: title, Content: content, IsPublic: isPublic, UserID: userID,
		CreatedAt: now, UpdatedAt: now,
	}
	return nil
}

func (m *MockStore) GetFeedbackByID(_ context.Context, id uuid.UUID) (*store.Feedback, error) {
	if m.GetFeedbackErr != nil {
		return nil, m.GetFeedbackErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.Feedback[id]
	if !ok {
		return nil, fmt.Errorf("fetching feedback: %w", pgx.ErrNoRows)
	}
	return m.withAuthor(f), nil
}

func (m *MockStore) ListPublicFeedback(_ context.Context, query string, limit int) ([]store.Feedback, error) {
	q := strings.ToLower(query)
	return m.list(limit, func(f *store.Feedback) bool {
		if !f.IsPublic {
			return false
		}
		return q == "" || strings.Contains(strings.ToLower(f.Title), q) || strings.Contains(strings.ToLower(f.Content), q)
	})
}

func (m *MockStore) ListAllFeedback(_ context.Context, limit int) ([]store.Feedback, error) {
	return m.list(limit, func(*store.Feedback) bool { return true })
}

func (m *MockStore) ListFeedbackByUser(_ context.Context, userID uuid.UUID, limit int) ([]store.Feedback, error) {
	return m.list(limit, func(f *store.Feedback) bool { return f.UserID == userID })
}

func (m *MockStore) CountPublicFeedback(_ context.Context) (int, error) {
	if m.ListFeedbackErr != nil {
		return 0, m.ListFeedbackErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, f := range m.Feedback {
		if f.IsPublic {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) CreateReply(_ context.Context, id, feedbackID uuid.UUID, content string, adminUserID *uuid.UUID) error {
	if m.CreateReplyErr != nil {
		return m.CreateReplyErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Replies[feedbackID] = append(m.Replies[feedbackID], store.Reply{
		ID: id, FeedbackID: feedbackID, Content: content, AdminUserID: adminUserID, CreatedAt: m.tick(),
	})
	return nil
}

func (m *MockStore) ListReplies(_ context.Context, feedbackID uuid.UUID) ([]store.Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Reply(nil), m.Replies[feedbackID]...), nil
}

func (m *MockStore) CheckHealth(context.Context) error {
	return m.HealthErr
}

// list returns matching feedback newest first, capped at limit.
func (m *MockStore) list(limit int, keep func(*store.Feedback) bool) ([]store.Feedback, error) {
	if m.ListFeedbackErr != nil {
		return nil, m.ListFeedbackErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Feedback
	for _, f := range m.Feedback {
		if keep(f) {
			out = append(out, *m.withAuthor(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// withAuthor copies f and fills AuthorName. Caller holds mu.
func (m *MockStore) withAuthor(f *store.Feedback) *store.Feedback {
	cp := *f
	if u, ok := m.Users[f.UserID]; ok {
		cp.AuthorName = u.Username
	}
	return &cp
}

// MockRateLimiter implements auth.RateLimiter for tests.
// Counts attempts per key; returns store.ErrRateLimitExceeded past policy.MaxAttempts.
// Set Err to simulate a Redis failure.
type MockRateLimiter struct {
	Err      error
	Attempts map[string]int

	mu sync.Mutex
}

func (m *MockRateLimiter) Allow(_ context.Context, key string, policy store.RateLimit) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Attempts == nil {
		m.Attempts = make(map[string]int)
	}
	m.Attempts[key]++
	if policy.MaxAttempts > 0 && m.Attempts[key] > policy.MaxAttempts {
		return store.ErrRateLimitExceeded
	}
	return nil
}

// MockStateLedger implements auth.StateLedger for tests.
// Remembers consumed states; Err simulates a Redis failure.
type MockStateLedger struct {
	Err  error
	Seen map[string]bool

	mu sync.Mutex
}

func (m *MockStateLedger) Consume(_ context.Context, state string, _ time.Duration) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Seen == nil {
		m.Seen = make(map[string]bool)
	}
	if m.Seen[state] {
		return store.ErrStateConsumed
	}
	m.Seen[state] = true
	return nil
}

// MockHealth implements auth.HealthChecker; returns Err.
type MockHealth struct {
	Err error
}

func (m MockHealth) CheckHealth(context.Context) error { return m.Err }

// MockProvider implements oauth.Provider for tests.
// Exchange accepts only ValidCode; FetchIdentity returns Identity for the token it issued.
type MockProvider struct {
	ValidCode string
	Identity  *oauth.Identity

	ExchangeErr error
	IdentityErr error

	// Recorded calls
	ExchangeCalls int
}

// mockAccessToken is what MockProvider.Exchange hands out.
const mockAccessToken = "mock-access-token"

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) AuthCodeURL(state string) string {
	return "https://connect.example/oauth2/authorize?state=" + state
}

func (m *MockProvider) Exchange(_ context.Context, code string) (string, error) {
	m.ExchangeCalls++
	if m.ExchangeErr != nil {
		return "", m.ExchangeErr
	}
	if code != m.ValidCode {
		return "", fmt.Errorf("token endpoint returned 400: invalid_grant")
	}
	return mockAccessToken, nil
}

func (m *MockProvider) FetchIdentity(_ context.Context, accessToken string) (*oauth.Identity, error) {
	if m.IdentityErr != nil {
		return nil, m.IdentityErr
	}
	if accessToken != mockAccessToken || m.Identity == nil {
		return nil, oauth.ErrIncompleteIdentity
	}
	cp := *m.Identity
	return &cp, nil
}
