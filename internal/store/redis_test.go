package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- RedisRateLimiter ---

func TestRedisRateLimiterAllow(t *testing.T) {
	requireRedis(t)
	ctx := context.Background()
	rl := NewRedisRateLimiter(testRedis)
	policy := RateLimit{MaxAttempts: 3, Window: time.Minute, LockoutTTL: time.Minute}

	t.Run("admits MaxAttempts then locks out", func(t *testing.T) {
		key := "admin_key:test-lockout"
		t.Cleanup(func() { testRedis.Del(ctx, "rl:"+key, "rl_lock:"+key) })

		for i := 1; i <= 3; i++ {
			if err := rl.Allow(ctx, key, policy); err != nil {
				t.Fatalf("attempt %d: expected nil, got %v", i, err)
			}
		}
		if err := rl.Allow(ctx, key, policy); !errors.Is(err, ErrRateLimitExceeded) {
			t.Fatalf("attempt 4: expected ErrRateLimitExceeded, got %v", err)
		}
		// Still locked on the next attempt even though the counter was reset
		if err := rl.Allow(ctx, key, policy); !errors.Is(err, ErrRateLimitExceeded) {
			t.Fatalf("attempt 5: expected ErrRateLimitExceeded, got %v", err)
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		a, b := "admin_key:test-a", "admin_key:test-b"
		t.Cleanup(func() { testRedis.Del(ctx, "rl:"+a, "rl_lock:"+a, "rl:"+b, "rl_lock:"+b) })

		for i := 0; i < 4; i++ {
			rl.Allow(ctx, a, policy)
		}
		if err := rl.Allow(ctx, b, policy); err != nil {
			t.Errorf("other key should be unaffected, got %v", err)
		}
	})

	t.Run("window sets a TTL on the counter", func(t *testing.T) {
		key := "admin_key:test-ttl"
		t.Cleanup(func() { testRedis.Del(ctx, "rl:"+key, "rl_lock:"+key) })

		if err := rl.Allow(ctx, key, policy); err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		ttl, err := testRedis.TTL(ctx, "rl:"+key).Result()
		if err != nil {
			t.Fatalf("TTL failed: %v", err)
		}
		if ttl <= 0 || ttl > time.Minute {
			t.Errorf("counter TTL: expected (0, 1m], got %v", ttl)
		}
	})

	t.Run("zero MaxAttempts disables limiting", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			if err := rl.Allow(ctx, "admin_key:test-disabled", RateLimit{}); err != nil {
				t.Fatalf("expected nil, got %v", err)
			}
		}
	})

	t.Run("CheckHealth pings", func(t *testing.T) {
		if err := rl.CheckHealth(ctx); err != nil {
			t.Errorf("CheckHealth failed: %v", err)
		}
	})
}

// --- RedisStateLedger ---

func TestRedisStateLedgerConsume(t *testing.T) {
	requireRedis(t)
	ctx := context.Background()
	ledger := NewRedisStateLedger(testRedis)

	t.Run("first use succeeds, replay fails", func(t *testing.T) {
		state := "state-" + mustNewID(t).String()

		if err := ledger.Consume(ctx, state, time.Minute); err != nil {
			t.Fatalf("first Consume: expected nil, got %v", err)
		}
		if err := ledger.Consume(ctx, state, time.Minute); !errors.Is(err, ErrStateConsumed) {
			t.Fatalf("second Consume: expected ErrStateConsumed, got %v", err)
		}
	})

	t.Run("distinct states do not collide", func(t *testing.T) {
		if err := ledger.Consume(ctx, "state-"+mustNewID(t).String(), time.Minute); err != nil {
			t.Fatalf("Consume: %v", err)
		}
		if err := ledger.Consume(ctx, "state-"+mustNewID(t).String(), time.Minute); err != nil {
			t.Fatalf("Consume: %v", err)
		}
	})
}

// --- NoopRedis ---

func TestNoopRedis(t *testing.T) {
	ctx := context.Background()
	var n NoopRedis

	if err := n.Allow(ctx, "k", RateLimit{MaxAttempts: 1}); err != nil {
		t.Errorf("Allow: expected nil, got %v", err)
	}
	if err := n.Consume(ctx, "s", time.Minute); err != nil {
		t.Errorf("Consume: expected nil, got %v", err)
	}
	if err := n.CheckHealth(ctx); !errors.Is(err, ErrCacheDisabled) {
		t.Errorf("CheckHealth: expected ErrCacheDisabled, got %v", err)
	}
}
