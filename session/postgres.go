package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

const uniqueViolation = "23505"

// PostgresStore implements Store and Taker on the refresh_sessions table.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore creates a Postgres-backed session store. The schema is
// created by the migrations in internal/db.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

// WithClock overrides the clock used for issued_at and insert validation.
func (s *PostgresStore) WithClock(now func() time.Time) *PostgresStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *PostgresStore) Get(ctx context.Context, token string) (*Session, error) {
	sess := &Session{Token: token}

	err := s.pool.QueryRow(ctx, `
		SELECT owner_id, issued_at, expires_at
		FROM refresh_sessions
		WHERE token_hash = $1
	`, HashToken(token)).Scan(&sess.OwnerID, &sess.IssuedAt, &sess.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return sess, nil
}

func (s *PostgresStore) Insert(ctx context.Context, token, ownerID string, expiresAt time.Time) (*Session, error) {
	now := s.now().UTC()
	if err := validateInsert(token, ownerID, expiresAt, now); err != nil {
		return nil, err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_sessions (id, token_hash, owner_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ulid.Make().String(), HashToken(token), ownerID, now, expiresAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &Session{
		Token:     token,
		OwnerID:   ownerID,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

// Take deletes the row for token and returns it in one statement.
func (s *PostgresStore) Take(ctx context.Context, token string) (*Session, error) {
	sess := &Session{Token: token}

	err := s.pool.QueryRow(ctx, `
		DELETE FROM refresh_sessions
		WHERE token_hash = $1
		RETURNING owner_id, issued_at, expires_at
	`, HashToken(token)).Scan(&sess.OwnerID, &sess.IssuedAt, &sess.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return sess, nil
}

func (s *PostgresStore) DeleteByToken(ctx context.Context, token string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM refresh_sessions WHERE token_hash = $1`, HashToken(token))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteAllByOwner(ctx context.Context, ownerID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM refresh_sessions WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

// PurgeExpired deletes rows that expired at or before cutoff.
func (s *PostgresStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM refresh_sessions WHERE expires_at <= $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

// Ping acquires a connection within ctx's deadline.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
