package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no session row exists for a token.
	// It is a normal branch outcome, not a failure.
	ErrNotFound = errors.New("session not found")
	// ErrConflict is returned by Insert when a row for the token already exists.
	ErrConflict = errors.New("session token conflict")
	// ErrUnavailable wraps backend I/O failures.
	ErrUnavailable = errors.New("session store unavailable")
	// ErrCorrupt is returned when a stored row cannot be decoded.
	ErrCorrupt = errors.New("session record corrupt")
	// ErrInvalidSession rejects inserts with missing fields or a past expiry.
	ErrInvalidSession = errors.New("invalid session")
)

// Store is the durable-state surface the session manager needs.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the session for token or ErrNotFound.
	Get(ctx context.Context, token string) (*Session, error)
	// Insert creates a session. It fails with ErrConflict instead of
	// overwriting an existing row.
	Insert(ctx context.Context, token, ownerID string, expiresAt time.Time) (*Session, error)
	// DeleteByToken removes one session or returns ErrNotFound.
	DeleteByToken(ctx context.Context, token string) error
	// DeleteAllByOwner removes every session of ownerID and reports how many
	// rows were deleted.
	DeleteAllByOwner(ctx context.Context, ownerID string) (int, error)
}

// Taker is implemented by stores that can delete a row and return its prior
// value in one atomic step. Of any number of concurrent Take calls for the
// same token, at most one observes the session.
type Taker interface {
	Take(ctx context.Context, token string) (*Session, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Purger deletes rows whose expiry is at or before cutoff, for backends
// without native TTL eviction. Callers pass the current time minus the
// verifier's leeway so rows outlive every token the verifier still accepts.
type Purger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// Retainer is implemented by stores that evict rows on their own. RetainFor
// keeps each row grace past its ExpiresAt. Call it before the store is
// shared.
type Retainer interface {
	RetainFor(grace time.Duration)
}

func validateInsert(token, ownerID string, expiresAt, now time.Time) error {
	switch {
	case token == "":
		return errors.Join(ErrInvalidSession, errors.New("empty token"))
	case ownerID == "":
		return errors.Join(ErrInvalidSession, errors.New("empty owner id"))
	case !expiresAt.After(now):
		return errors.Join(ErrInvalidSession, errors.New("expiry is not in the future"))
	}
	return nil
}
