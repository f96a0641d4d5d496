package goSession

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct-password-123"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mockDirectory struct {
	mu        sync.Mutex
	users     map[string]User
	findCalls int
	failFind  error
}

var (
	testHashOnce sync.Once
	testHash     string
)

// bcrypt keeps directory setup cheap; password.Verify accepts it alongside
// Argon2id.
func sharedTestHash(t testing.TB) string {
	t.Helper()
	testHashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("bcrypt: %v", err)
		}
		testHash = string(h)
	})
	return testHash
}

func newMockDirectory(t testing.TB) *mockDirectory {
	hash := sharedTestHash(t)
	return &mockDirectory{
		users: map[string]User{
			"alice@example.com": {ID: "u-alice", Email: "alice@example.com", PasswordHash: hash, EmailVerified: true},
			"bob@example.com":   {ID: "u-bob", Email: "bob@example.com", PasswordHash: hash, EmailVerified: true},
			"eve@example.com":   {ID: "u-eve", Email: "eve@example.com", PasswordHash: hash, EmailVerified: false},
		},
	}
}

func (d *mockDirectory) FindUserByEmail(_ context.Context, email string) (User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.findCalls++
	if d.failFind != nil {
		return User{}, d.failFind
	}
	u, ok := d.users[strings.ToLower(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (d *mockDirectory) VerifyCredential(_ context.Context, user User, pw string) (bool, error) {
	return password.Verify(pw, user.PasswordHash)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-access-secret-0123456789")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-refresh-secret-012345678")
	cfg.JWT.Issuer = "goSession-test"
	cfg.Login.MaxAttempts = 3
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

type testEnv struct {
	engine *Engine
	store  session.Store
	rdb    *redis.Client
	mr     *miniredis.Miniredis
	clock  *testClock
	dir    *mockDirectory
}

type envOption func(*Builder, *testEnv)

func withStore(store session.Store) envOption {
	return func(b *Builder, env *testEnv) {
		b.WithSessionStore(store)
		env.store = store
	}
}

func withAuditSink(sink AuditSink) envOption {
	return func(b *Builder, _ *testEnv) {
		b.WithAuditSink(sink)
	}
}

// newTestEngine builds an engine on miniredis. Unless withStore is given the
// engine creates its own RedisStore on the same client.
func newTestEngine(t *testing.T, cfg Config, opts ...envOption) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	env := &testEnv{
		rdb:   rdb,
		mr:    mr,
		clock: newTestClock(),
		dir:   newMockDirectory(t),
	}

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserDirectory(env.dir).
		WithClock(env.clock.Now)
	for _, opt := range opts {
		opt(b, env)
	}

	engine, err := b.Build()
	if err != nil {
		_ = rdb.Close()
		mr.Close()
		t.Fatalf("Build: %v", err)
	}
	env.engine = engine
	if env.store == nil {
		env.store = engine.store
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return env
}

func (env *testEnv) login(t *testing.T, email, cookie string) *LoginResult {
	t.Helper()
	res, err := env.engine.Login(context.Background(), email, testPassword, cookie)
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return res
}

func (env *testEnv) stored(t *testing.T, token string) bool {
	t.Helper()
	_, err := env.store.Get(context.Background(), token)
	if err == nil {
		return true
	}
	if errors.Is(err, session.ErrNotFound) {
		return false
	}
	t.Fatalf("store Get: %v", err)
	return false
}

// rowCount counts session rows in miniredis. Only meaningful for the default
// RedisStore.
func (env *testEnv) rowCount() int {
	n := 0
	for _, k := range env.mr.Keys() {
		if strings.Contains(k, ":t:") {
			n++
		}
	}
	return n
}
