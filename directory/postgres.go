package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/password"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// Postgres reads users from the users table.
type Postgres struct {
	pool   *pgxpool.Pool
	hasher *password.Argon2
}

func NewPostgres(pool *pgxpool.Pool, hasher *password.Argon2) *Postgres {
	return &Postgres{pool: pool, hasher: hasher}
}

func (p *Postgres) FindUserByEmail(ctx context.Context, email string) (goSession.User, error) {
	var u goSession.User
	err := p.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, email_verified
		FROM users
		WHERE lower(email) = lower($1)
	`, normalizeEmail(email)).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.EmailVerified)
	if errors.Is(err, pgx.ErrNoRows) {
		return goSession.User{}, goSession.ErrUserNotFound
	}
	if err != nil {
		return goSession.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (p *Postgres) VerifyCredential(ctx context.Context, user goSession.User, pw string) (bool, error) {
	return verifyAndUpgrade(ctx, p.hasher, user, pw, p.setHash)
}

// CreateUser hashes pw and inserts a new user.
func (p *Postgres) CreateUser(ctx context.Context, email, pw string, verified bool) (goSession.User, error) {
	if p.hasher == nil {
		return goSession.User{}, errors.New("directory: no password hasher configured")
	}
	hash, err := p.hasher.Hash(pw)
	if err != nil {
		return goSession.User{}, err
	}

	u := goSession.User{
		ID:            ulid.Make().String(),
		Email:         normalizeEmail(email),
		PasswordHash:  hash,
		EmailVerified: verified,
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, email_verified)
		VALUES ($1, $2, $3, $4)
	`, u.ID, u.Email, u.PasswordHash, u.EmailVerified)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return goSession.User{}, ErrEmailTaken
		}
		return goSession.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// MarkVerified flags the user's email as verified.
func (p *Postgres) MarkVerified(ctx context.Context, userID string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE users SET email_verified = TRUE WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return goSession.ErrUserNotFound
	}
	return nil
}

func (p *Postgres) setHash(ctx context.Context, userID, hash string) error {
	_, err := p.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, userID)
	return err
}
