package rate

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited reports an exhausted attempt budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps limiter backend failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

func backendErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrRedisUnavailable, op, err)
}
