// redis.go -- go-redis client for the admin rate limiter and the OAuth state ledger.
//
// Redis is optional. Without it the limiter admits everything and OAuth state relies
// on the short cookie lifetime alone (see NoopRedis).
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses redisURL, connects, and pings before returning.
// Call once at startup; the limiter and ledger share the returned client.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

// --- Rate limiter ---

// RedisRateLimiter counts attempts per key in fixed windows and locks out offenders.
type RedisRateLimiter struct {
	rdb *redis.Client
}

// NewRedisRateLimiter wraps an existing client.
func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{rdb}
}

// Allow records one attempt for key under policy.
// Returns ErrRateLimitExceeded while key is locked out, or when this attempt
// exceeds MaxAttempts (which starts the lockout). Other errors are Redis failures.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string, policy RateLimit) error {
	if policy.MaxAttempts <= 0 {
		return nil
	}
	lockKey := "rl_lock:" + key
	countKey := "rl:" + key

	locked, err := l.rdb.Exists(ctx, lockKey).Result()
	if err != nil {
		return fmt.Errorf("checking lockout: %w", err)
	}
	if locked > 0 {
		return ErrRateLimitExceeded
	}

	n, err := l.rdb.Incr(ctx, countKey).Result()
	if err != nil {
		return fmt.Errorf("counting attempt: %w", err)
	}
	// First attempt opens the window
	if n == 1 && policy.Window > 0 {
		if err := l.rdb.Expire(ctx, countKey, policy.Window).Err(); err != nil {
			return fmt.Errorf("setting window: %w", err)
		}
	}
	if n <= int64(policy.MaxAttempts) {
		return nil
	}

	// Over the limit: start lockout and reset the counter together
	pipe := l.rdb.TxPipeline()
	if policy.LockoutTTL > 0 {
		pipe.Set(ctx, lockKey, 1, policy.LockoutTTL)
	}
	pipe.Del(ctx, countKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("starting lockout: %w", err)
	}
	return ErrRateLimitExceeded
}

// CheckHealth pings Redis.
func (l *RedisRateLimiter) CheckHealth(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}

// --- State ledger ---

// RedisStateLedger remembers OAuth state values that have been presented,
// so each login flow completes at most once.
type RedisStateLedger struct {
	rdb *redis.Client
}

// NewRedisStateLedger wraps an existing client.
func NewRedisStateLedger(rdb *redis.Client) *RedisStateLedger {
	return &RedisStateLedger{rdb}
}

// Consume marks state as used for ttl. Returns ErrStateConsumed if it was already used.
// Only a SHA-256 of the state is stored.
func (s *RedisStateLedger) Consume(ctx context.Context, state string, ttl time.Duration) error {
	sum := sha256.Sum256([]byte(state))
	key := "oauth_state:" + hex.EncodeToString(sum[:])

	ok, err := s.rdb.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return fmt.Errorf("recording oauth state: %w", err)
	}
	if !ok {
		return ErrStateConsumed
	}
	return nil
}

// --- No Redis ---

// NoopRedis stands in for the limiter and ledger when REDIS_URL is unset.
// Allow and Consume always succeed; CheckHealth reports ErrCacheDisabled.
type NoopRedis struct{}

func (NoopRedis) Allow(context.Context, string, RateLimit) error { return nil }

func (NoopRedis) Consume(context.Context, string, time.Duration) error { return nil }

func (NoopRedis) CheckHealth(context.Context) error { return ErrCacheDisabled }
