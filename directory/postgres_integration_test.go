package directory

import (
	"context"
	"os"
	"testing"

	"github.com/MrEthical07/goSession"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Enabled when GOSESSION_TEST_DATABASE_URL points at a migrated database.
func TestPostgresDirectory(t *testing.T) {
	dbURL := os.Getenv("GOSESSION_TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("GOSESSION_TEST_DATABASE_URL is not set; skipping Postgres integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	dir := NewPostgres(pool, cheapHasher(t))
	email := ulid.Make().String() + "@example.com"
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM users WHERE email = $1`, email)
	})

	u, err := dir.CreateUser(ctx, email, "correct-password", false)
	require.NoError(t, err)

	_, err = dir.CreateUser(ctx, email, "correct-password", false)
	assert.ErrorIs(t, err, ErrEmailTaken)

	found, err := dir.FindUserByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.False(t, found.EmailVerified)

	require.NoError(t, dir.MarkVerified(ctx, u.ID))
	found, err = dir.FindUserByEmail(ctx, email)
	require.NoError(t, err)
	assert.True(t, found.EmailVerified)

	ok, err := dir.VerifyCredential(ctx, found, "correct-password")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = dir.FindUserByEmail(ctx, "missing-"+email)
	assert.ErrorIs(t, err, goSession.ErrUserNotFound)
}
