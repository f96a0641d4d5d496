package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return New(rdb, cfg), mr
}

func TestLoginBudgetAndWindow(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxLoginAttempts: 3, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "alice", ""); err != nil {
			t.Fatalf("attempt %d unexpectedly limited: %v", i, err)
		}
		_ = l.IncrementLogin(ctx, "alice", "")
	}
	if err := l.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.CheckLogin(ctx, "bob", ""); err != nil {
		t.Fatalf("other identifier limited: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if err := l.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("window did not expire: %v", err)
	}
}

func TestResetLoginClearsIdentifierOnly(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxLoginAttempts: 1, LoginCooldownDuration: time.Minute, EnableIPThrottle: true})
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "alice", "10.0.0.1")
	if err := l.ResetLogin(ctx, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("ResetLogin: %v", err)
	}
	if n, err := l.LoginAttempts(ctx, "alice"); err != nil || n != 0 {
		t.Fatalf("LoginAttempts after reset: n=%d err=%v", n, err)
	}
	if err := l.CheckLogin(ctx, "carol", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP budget to persist, got %v", err)
	}
}

func TestIncrementReportsLimitOnIPCounter(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxLoginAttempts: 2, LoginCooldownDuration: time.Minute, EnableIPThrottle: true})
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := l.IncrementLogin(ctx, id, "10.0.0.9"); err != nil {
			t.Fatalf("increment %s: %v", id, err)
		}
	}
	if err := l.IncrementLogin(ctx, "c", "10.0.0.9"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited from IP counter, got %v", err)
	}
	if ttl := mr.TTL("gs:li:10.0.0.9"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("IP window ttl = %v", ttl)
	}
}

func TestBackendFailureWrapsUnavailable(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxLoginAttempts: 2, LoginCooldownDuration: time.Minute})
	mr.Close()

	if err := l.CheckLogin(context.Background(), "alice", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
