package session

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Session is one issued refresh token. Sessions are never updated; rotation
// deletes the old row and inserts a new one.
type Session struct {
	Token     string
	OwnerID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// HashToken returns the storage key for a refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
