package directory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/password"
	"github.com/oklog/ulid/v2"
)

// ErrEmailTaken is returned when adding a user whose email already exists.
var ErrEmailTaken = errors.New("email already registered")

// Memory is a process-local user directory keyed by lower-cased email.
type Memory struct {
	mu      sync.RWMutex
	byEmail map[string]goSession.User
	hasher  *password.Argon2
}

// NewMemory returns an empty directory. hasher is used by Add and to upgrade
// stale hashes on login.
func NewMemory(hasher *password.Argon2) *Memory {
	return &Memory{
		byEmail: make(map[string]goSession.User),
		hasher:  hasher,
	}
}

// Add hashes pw and stores a new user with a generated id.
func (m *Memory) Add(email, pw string, verified bool) (goSession.User, error) {
	if m.hasher == nil {
		return goSession.User{}, errors.New("directory: no password hasher configured")
	}
	hash, err := m.hasher.Hash(pw)
	if err != nil {
		return goSession.User{}, err
	}
	return m.Put(goSession.User{
		ID:            ulid.Make().String(),
		Email:         email,
		PasswordHash:  hash,
		EmailVerified: verified,
	})
}

// Put stores u as given, for callers that already hold a hash.
func (m *Memory) Put(u goSession.User) (goSession.User, error) {
	key := normalizeEmail(u.Email)
	if key == "" || u.ID == "" {
		return goSession.User{}, errors.New("directory: user id and email are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[key]; exists {
		return goSession.User{}, ErrEmailTaken
	}
	m.byEmail[key] = u
	return u, nil
}

func (m *Memory) FindUserByEmail(_ context.Context, email string) (goSession.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return goSession.User{}, goSession.ErrUserNotFound
	}
	return u, nil
}

func (m *Memory) VerifyCredential(ctx context.Context, user goSession.User, pw string) (bool, error) {
	return verifyAndUpgrade(ctx, m.hasher, user, pw, m.setHash)
}

func (m *Memory) setHash(_ context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, u := range m.byEmail {
		if u.ID == userID {
			u.PasswordHash = hash
			m.byEmail[k] = u
			return nil
		}
	}
	return goSession.ErrUserNotFound
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
