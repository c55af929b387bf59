// models.go -- Shared domain types for the store package.
// Used by both Postgres (durable store) and Redis (limiter + state ledger).
package store

import (
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
)

// ErrRateLimitExceeded is returned by Allow when the caller is locked out.
// Callers use errors.Is to distinguish rate limit rejections from Redis failures.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// ErrStateConsumed is returned by Consume when an OAuth state value was already used.
var ErrStateConsumed = errors.New("oauth state already consumed")

// ErrCacheDisabled is returned by CheckHealth on the no-op Redis stand-ins.
// Callers use errors.Is to distinguish "not configured" from a real infrastructure failure.
var ErrCacheDisabled = errors.New("cache disabled")

// Field limits enforced by handlers and mirrored by CHECK constraints in the schema.
const (
	MaxTitleLen   = 80
	MaxContentLen = 20000
)

// User represents a row in the users table.
// One row per Linux DO account; LinuxDoID is unique.
type User struct {
	ID        uuid.UUID
	LinuxDoID string
	Username  string
	AvatarURL *string // nil means SQL NULL
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Feedback represents a row in the feedbacks table.
// AuthorName is filled by list/detail queries that join users.
type Feedback struct {
	ID         uuid.UUID
	Title      string
	Content    string
	IsPublic   bool
	UserID     uuid.UUID
	AuthorName string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Reply represents a row in the replies table.
// AdminUserID is nil when the replying admin session carried no user id.
type Reply struct {
	ID          uuid.UUID
	FeedbackID  uuid.UUID
	Content     string
	AdminUserID *uuid.UUID
	CreatedAt   time.Time
}

// RateLimit defines the policy for a rate-limited action.
// All three fields required, zero values disable the respective behaviour.
type RateLimit struct {
	MaxAttempts int           // attempts allowed within Window before lockout
	Window      time.Duration // fixed window for attempt counting
	LockoutTTL  time.Duration // how long to block after MaxAttempts is hit
}
