package session

import (
	"context"
	"sync"
	"time"
)

type memoryRow struct {
	ownerID   string
	issuedAt  time.Time
	expiresAt time.Time
}

// MemoryStore is a process-local [Store] and [Taker]. Expired rows stay until
// PurgeExpired runs; the token's own expiry claim still rejects them.
type MemoryStore struct {
	mu     sync.Mutex
	rows   map[string]memoryRow
	owners map[string]map[string]struct{}
	now    func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:   make(map[string]memoryRow),
		owners: make(map[string]map[string]struct{}),
		now:    time.Now,
	}
}

// WithClock overrides the clock used for IssuedAt and insert validation.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[HashToken(token)]
	if !ok {
		return nil, ErrNotFound
	}
	return row.session(token), nil
}

func (s *MemoryStore) Insert(_ context.Context, token, ownerID string, expiresAt time.Time) (*Session, error) {
	now := s.now()
	if err := validateInsert(token, ownerID, expiresAt, now); err != nil {
		return nil, err
	}

	hash := HashToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rows[hash]; exists {
		return nil, ErrConflict
	}
	row := memoryRow{ownerID: ownerID, issuedAt: now, expiresAt: expiresAt}
	s.rows[hash] = row

	idx := s.owners[ownerID]
	if idx == nil {
		idx = make(map[string]struct{})
		s.owners[ownerID] = idx
	}
	idx[hash] = struct{}{}

	return row.session(token), nil
}

func (s *MemoryStore) Take(_ context.Context, token string) (*Session, error) {
	hash := HashToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[hash]
	if !ok {
		return nil, ErrNotFound
	}
	s.removeLocked(hash, row.ownerID)
	return row.session(token), nil
}

func (s *MemoryStore) DeleteByToken(ctx context.Context, token string) error {
	_, err := s.Take(ctx, token)
	return err
}

func (s *MemoryStore) DeleteAllByOwner(_ context.Context, ownerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.owners[ownerID]
	for hash := range idx {
		delete(s.rows, hash)
	}
	delete(s.owners, ownerID)
	return len(idx), nil
}

// PurgeExpired deletes rows whose expiry is not after cutoff.
func (s *MemoryStore) PurgeExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for hash, row := range s.rows {
		if !cutoff.Before(row.expiresAt) {
			s.removeLocked(hash, row.ownerID)
			purged++
		}
	}
	return purged, nil
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *MemoryStore) removeLocked(hash, ownerID string) {
	delete(s.rows, hash)
	if idx := s.owners[ownerID]; idx != nil {
		delete(idx, hash)
		if len(idx) == 0 {
			delete(s.owners, ownerID)
		}
	}
}

func (r memoryRow) session(token string) *Session {
	return &Session{
		Token:     token,
		OwnerID:   r.ownerID,
		IssuedAt:  r.issuedAt,
		ExpiresAt: r.expiresAt,
	}
}
