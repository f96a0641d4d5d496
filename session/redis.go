package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces session keys when no prefix is configured.
const DefaultRedisPrefix = "gs"

// indexSessionScript adds a hash to an owner's index and stretches the index
// expiry to cover the new row. It touches one key so it runs on Cluster.
const indexSessionScript = `
local ttl = tonumber(ARGV[2])
redis.call("SADD", KEYS[1], ARGV[1])
if redis.call("PTTL", KEYS[1]) < ttl then
  redis.call("PEXPIRE", KEYS[1], ttl)
end
return 1
`

var indexSessionLua = redis.NewScript(indexSessionScript)

// RedisStore keeps each session in its own key with a PX expiry matching the
// refresh token, plus one index set per owner for bulk deletion. No command
// spans two keys, so it works against Redis Cluster.
//
// Layout:
//
//	<prefix>:t:<sha256(token)>  -> encoded record
//	<prefix>:o:<ownerID>        -> set of token hashes
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
	grace  time.Duration
}

// NewRedisStore creates a [RedisStore]. An empty prefix uses [DefaultRedisPrefix].
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

// WithClock overrides the clock used to compute row TTLs.
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	if now != nil {
		s.now = now
	}
	return s
}

// RetainFor extends every row's PX expiry by grace past the token's exp.
func (s *RedisStore) RetainFor(grace time.Duration) {
	if grace > 0 {
		s.grace = grace
	}
}

func (s *RedisStore) rowPrefix() string {
	return s.prefix + ":t:"
}

func (s *RedisStore) rowKey(hash string) string {
	return s.rowPrefix() + hash
}

func (s *RedisStore) ownerKey(ownerID string) string {
	return s.prefix + ":o:" + ownerID
}

// Get returns the session stored for token.
//
//	Performance: 1 Redis GET.
func (s *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.rowKey(HashToken(token))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sess, err := decodeRecord(token, data)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Insert stores a new session and indexes it under its owner. The row is
// written first with SET NX; if indexing then fails the row is removed again.
//
//	Performance: 1 SET NX PX + 1 EVALSHA (SADD + PTTL/PEXPIRE).
func (s *RedisStore) Insert(ctx context.Context, token, ownerID string, expiresAt time.Time) (*Session, error) {
	now := s.now()
	if err := validateInsert(token, ownerID, expiresAt, now); err != nil {
		return nil, err
	}

	sess := &Session{
		Token:     token,
		OwnerID:   ownerID,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}
	data, err := encodeRecord(sess)
	if err != nil {
		return nil, errors.Join(ErrInvalidSession, err)
	}

	hash := HashToken(token)
	ttl := expiresAt.Add(s.grace).Sub(now).Milliseconds()
	if ttl < 1 {
		ttl = 1
	}

	rowKey := s.rowKey(hash)
	created, err := s.redis.SetNX(ctx, rowKey, data, time.Duration(ttl)*time.Millisecond).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !created {
		return nil, ErrConflict
	}

	// an unindexed row would escape DeleteAllByOwner
	if err := indexSessionLua.Run(ctx, s.redis, []string{s.ownerKey(ownerID)}, hash, ttl).Err(); err != nil {
		_ = s.redis.Del(ctx, rowKey).Err()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return sess, nil
}

// Take atomically deletes the row for token and returns what it held.
//
//	Performance: 1 GETDEL + 1 SREM.
func (s *RedisStore) Take(ctx context.Context, token string) (*Session, error) {
	hash := HashToken(token)

	data, err := s.redis.GetDel(ctx, s.rowKey(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sess, err := decodeRecord(token, data)
	if err != nil {
		return nil, err
	}

	// A failed SREM leaves a dangling index member, which bulk delete skips.
	_ = s.redis.SRem(ctx, s.ownerKey(sess.OwnerID), hash).Err()

	return sess, nil
}

// DeleteByToken removes one session.
func (s *RedisStore) DeleteByToken(ctx context.Context, token string) error {
	_, err := s.Take(ctx, token)
	if errors.Is(err, ErrCorrupt) {
		// the row is gone either way
		return nil
	}
	return err
}

// DeleteAllByOwner removes every session indexed under ownerID.
//
//	Performance: 1 SMEMBERS + 1 pipeline of n DEL and 1 SREM.
func (s *RedisStore) DeleteAllByOwner(ctx context.Context, ownerID string) (int, error) {
	if ownerID == "" {
		return 0, nil
	}

	ownerKey := s.ownerKey(ownerID)
	hashes, err := s.redis.SMembers(ctx, ownerKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(hashes) == 0 {
		return 0, nil
	}

	// One DEL per row so a cluster client can route each to its slot. Only
	// the members read here are removed from the index, so a session indexed
	// meanwhile stays reachable by the next sweep.
	pipe := s.redis.Pipeline()
	dels := make([]*redis.IntCmd, len(hashes))
	for i, h := range hashes {
		dels[i] = pipe.Del(ctx, s.rowKey(h))
	}
	members := make([]any, len(hashes))
	for i, h := range hashes {
		members[i] = h
	}
	pipe.SRem(ctx, ownerKey, members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	deleted := 0
	for _, cmd := range dels {
		deleted += int(cmd.Val())
	}
	return deleted, nil
}

// CountByOwner returns the number of live sessions indexed under ownerID.
func (s *RedisStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	hashes, err := s.redis.SMembers(ctx, s.ownerKey(ownerID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(hashes) == 0 {
		return 0, nil
	}

	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = s.rowKey(h)
	}
	n, err := s.redis.Exists(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(n), nil
}

// Ping checks Redis availability.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
