package directory

import (
	"context"

	"github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/password"
)

// rehashFunc persists a replacement hash for userID.
type rehashFunc func(ctx context.Context, userID, hash string) error

// verifyAndUpgrade checks pw against user's stored hash. On a match it
// re-hashes with hasher when the stored hash is bcrypt or weaker than the
// hasher's parameters. Upgrade failures do not fail the login.
func verifyAndUpgrade(ctx context.Context, hasher *password.Argon2, user goSession.User, pw string, store rehashFunc) (bool, error) {
	ok, err := password.Verify(pw, user.PasswordHash)
	if err != nil || !ok {
		return ok, err
	}

	if hasher == nil || store == nil {
		return true, nil
	}
	if !password.IsLegacy(user.PasswordHash) {
		stale, err := hasher.NeedsUpgrade(user.PasswordHash)
		if err != nil || !stale {
			return true, nil
		}
	}

	if hash, err := hasher.Hash(pw); err == nil {
		_ = store(ctx, user.ID, hash)
	}
	return true, nil
}

var (
	_ goSession.UserDirectory = (*Memory)(nil)
	_ goSession.UserDirectory = (*Postgres)(nil)
)
