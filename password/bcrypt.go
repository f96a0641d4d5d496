package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrUnsupportedHash is returned for stored hashes in an unknown format.
var ErrUnsupportedHash = errors.New("unsupported password hash format")

// Verify checks password against a stored hash in either Argon2id PHC or
// bcrypt format. Directories migrated from bcrypt keep working while new
// hashes are written with Argon2id.
func Verify(password, encodedHash string) (bool, error) {
	if len(password) > DefaultMaxPasswordBytes {
		return false, ErrPasswordTooLong
	}

	switch {
	case strings.HasPrefix(encodedHash, phcPrefix):
		return verifyArgon2(password, encodedHash)
	case isBcrypt(encodedHash):
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, ErrUnsupportedHash
	}
}

// IsLegacy reports whether encodedHash should be rewritten with Argon2id.
func IsLegacy(encodedHash string) bool {
	return isBcrypt(encodedHash)
}

func isBcrypt(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$2a$") ||
		strings.HasPrefix(encodedHash, "$2b$") ||
		strings.HasPrefix(encodedHash, "$2y$")
}
