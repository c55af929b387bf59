// handler.go -- AuthHandler and the interfaces it consumes.
package auth

import (
	"context"
	"time"

	"github.com/feedboard/feedboard/internal/oauth"
	"github.com/feedboard/feedboard/internal/store"
	"github.com/gofrs/uuid/v5"
)

// Store defines database operations needed by auth handlers.
// Satisfied by *store.PostgresStore.
type Store interface {
	// UpsertUserByExternalID creates or refreshes the local user bound to a provider id.
	// The same externalID always yields the same local id.
	UpsertUserByExternalID(ctx context.Context, id uuid.UUID, externalID, username, avatarURL string) (*store.User, error)

	// CheckHealth pings the database.
	CheckHealth(ctx context.Context) error
}

// RateLimiter checks and records rate limit state for a given key and policy.
// Satisfied by *store.RedisRateLimiter and store.NoopRedis.
type RateLimiter interface {
	// Allow records the attempt. Returns store.ErrRateLimitExceeded when locked out.
	Allow(ctx context.Context, key string, policy store.RateLimit) error
}

// StateLedger records OAuth states that have completed a callback.
// Satisfied by *store.RedisStateLedger and store.NoopRedis.
type StateLedger interface {
	// Consume returns store.ErrStateConsumed if state was already used.
	Consume(ctx context.Context, state string, ttl time.Duration) error
}

// HealthChecker is any dependency the health endpoint pings.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// AdminKeyPolicy is the default rate limit for admin key attempts per client IP.
var AdminKeyPolicy = store.RateLimit{
	MaxAttempts: 5,
	Window:      15 * time.Minute,
	LockoutTTL:  15 * time.Minute,
}

// AuthHandler holds dependencies for the login, logout, and admin handlers and the session middleware.
// PS, Sessions, and State are required. Provider may be nil (login disabled).
// RL, SL, and RS may be nil when Redis is not configured.
type AuthHandler struct {
	PS       Store
	RL       RateLimiter
	SL       StateLedger
	RS       HealthChecker
	Provider oauth.Provider
	Sessions *SessionCodec
	State    *StateGuard

	// AdminKey is the shared secret for POST /admin.
	AdminKey string
	// AdminPolicy overrides AdminKeyPolicy when MaxAttempts > 0.
	AdminPolicy store.RateLimit
}

// adminPolicy returns the configured admin rate limit, or the default.
func (h *AuthHandler) adminPolicy() store.RateLimit {
	if h.AdminPolicy.MaxAttempts > 0 {
		return h.AdminPolicy
	}
	return AdminKeyPolicy
}
