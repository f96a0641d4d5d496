package directory

import (
	"context"
	"strings"
	"testing"

	"github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func cheapHasher(t *testing.T) *password.Argon2 {
	t.Helper()
	h, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	require.NoError(t, err)
	return h
}

func TestMemoryAddAndFind(t *testing.T) {
	dir := NewMemory(cheapHasher(t))
	ctx := context.Background()

	u, err := dir.Add("Alice@Example.com", "correct-password", true)
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.True(t, strings.HasPrefix(u.PasswordHash, "$argon2id$"))

	found, err := dir.FindUserByEmail(ctx, "  alice@example.COM ")
	require.NoError(t, err)
	assert.Equal(t, u, found)

	_, err = dir.Add("alice@example.com", "another-password", false)
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = dir.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, goSession.ErrUserNotFound)
}

func TestMemoryVerifyCredential(t *testing.T) {
	dir := NewMemory(cheapHasher(t))
	ctx := context.Background()

	u, err := dir.Add("alice@example.com", "correct-password", true)
	require.NoError(t, err)

	ok, err := dir.VerifyCredential(ctx, u, "correct-password")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = dir.VerifyCredential(ctx, u, "wrong-password")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryUpgradesLegacyHashOnLogin(t *testing.T) {
	dir := NewMemory(cheapHasher(t))
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	require.NoError(t, err)

	u, err := dir.Put(goSession.User{
		ID:            "u-legacy",
		Email:         "legacy@example.com",
		PasswordHash:  string(legacy),
		EmailVerified: true,
	})
	require.NoError(t, err)

	ok, err := dir.VerifyCredential(ctx, u, "correct-password")
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := dir.FindUserByEmail(ctx, "legacy@example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"), "hash should be upgraded")

	ok, err = dir.VerifyCredential(ctx, stored, "correct-password")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryFailedVerifyKeepsHash(t *testing.T) {
	dir := NewMemory(cheapHasher(t))
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	require.NoError(t, err)
	u, err := dir.Put(goSession.User{ID: "u1", Email: "a@example.com", PasswordHash: string(legacy)})
	require.NoError(t, err)

	ok, err := dir.VerifyCredential(ctx, u, "wrong-password")
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := dir.FindUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, string(legacy), stored.PasswordHash)
}
