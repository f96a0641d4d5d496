package session

import (
	"context"
	"errors"
	"sync"
)

// KeyedMutex hands out one mutex per key and frees it when the last holder
// unlocks. The zero value is ready to use.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until key is held and returns the matching unlock func.
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedEntry)
	}
	e := k.locks[key]
	if e == nil {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// held reports the number of keys with at least one holder or waiter.
func (k *KeyedMutex) held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// LockingTaker adds Take to a Store that has no atomic delete-and-return by
// serializing get-then-delete per token inside this process. Every caller
// that consumes tokens must go through the same LockingTaker.
type LockingTaker struct {
	store Store
	locks KeyedMutex
}

// NewLockingTaker wraps store.
func NewLockingTaker(store Store) *LockingTaker {
	return &LockingTaker{store: store}
}

// Take returns the session for token and deletes it, or ErrNotFound.
func (t *LockingTaker) Take(ctx context.Context, token string) (*Session, error) {
	unlock := t.locks.Lock(HashToken(token))
	defer unlock()

	sess, err := t.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := t.store.DeleteByToken(ctx, token); err != nil {
		if errors.Is(err, ErrNotFound) {
			// consumed by a path that bypasses this lock
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// TakerFor returns store's own Take when it has one, otherwise a LockingTaker.
func TakerFor(store Store) Taker {
	if t, ok := store.(Taker); ok {
		return t
	}
	return NewLockingTaker(store)
}
