package rate

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds login throttle tuning parameters.
type Config struct {
	Prefix                string
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

type scope string

const (
	scopeIdentifier scope = "ll"
	scopeIP         scope = "li"
)

// Limiter counts failed logins in fixed windows, keyed by identifier and
// optionally by client IP.
type Limiter struct {
	rdb    redis.UniversalClient
	prefix string
	ipOn   bool
	budget int64
	window time.Duration
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(rdb redis.UniversalClient, cfg Config) *Limiter {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "gs"
	}
	return &Limiter{
		rdb:    rdb,
		prefix: prefix,
		ipOn:   cfg.EnableIPThrottle,
		budget: int64(cfg.MaxLoginAttempts),
		window: cfg.LoginCooldownDuration,
	}
}

func (l *Limiter) key(s scope, v string) string {
	return l.prefix + ":" + string(s) + ":" + v
}

// keys lists the counters a login attempt touches.
func (l *Limiter) keys(identifier, ip string) []string {
	out := []string{l.key(scopeIdentifier, identifier)}
	if l.ipOn && ip != "" {
		out = append(out, l.key(scopeIP, ip))
	}
	return out
}

// CheckLogin returns ErrRateLimited when the identifier or IP has used up
// its failed-login budget for the current window.
func (l *Limiter) CheckLogin(ctx context.Context, identifier, ip string) error {
	vals, err := l.rdb.MGet(ctx, l.keys(identifier, ip)...).Result()
	if err != nil {
		return backendErr("mget", err)
	}
	for _, v := range vals {
		n, ok := counterValue(v)
		if ok && n >= l.budget {
			return ErrRateLimited
		}
	}
	return nil
}

// IncrementLogin records a failed login attempt for the identifier and,
// when IP throttling is on, the IP. It returns ErrRateLimited once either
// counter goes past the budget.
func (l *Limiter) IncrementLogin(ctx context.Context, identifier, ip string) error {
	limited := false
	for _, k := range l.keys(identifier, ip) {
		n, err := l.bump(ctx, k)
		if err != nil {
			return err
		}
		if n > l.budget {
			limited = true
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the identifier counter after a successful login. The IP
// counter is kept so one valid account cannot launder a sprayed IP.
func (l *Limiter) ResetLogin(ctx context.Context, identifier, _ string) error {
	if err := l.rdb.Del(ctx, l.key(scopeIdentifier, identifier)).Err(); err != nil {
		return backendErr("del", err)
	}
	return nil
}

// LoginAttempts returns the current failed-attempt counter for identifier.
func (l *Limiter) LoginAttempts(ctx context.Context, identifier string) (int, error) {
	n, err := l.rdb.Get(ctx, l.key(scopeIdentifier, identifier)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, backendErr("get", err)
	}
	return int(max(n, 0)), nil
}

// bump increments key and starts its window if the key has no expiry yet.
func (l *Limiter) bump(ctx context.Context, key string) (int64, error) {
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, backendErr("incr", err)
	}

	// TTL reports -1 for a key without expiry.
	if ttl.Val() < 0 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return 0, backendErr("expire", err)
		}
	}
	return incr.Val(), nil
}

func counterValue(v any) (int64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}
