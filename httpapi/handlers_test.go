package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/directory"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct-password-123"

type server struct {
	router *mux.Router
	engine *goSession.Engine
	store  *session.MemoryStore
}

func newServer(t *testing.T) *server {
	t.Helper()
	return newServerWith(t, nil)
}

// newServerWith builds the router over a MemoryStore, optionally wrapped.
func newServerWith(t *testing.T, wrap func(*session.MemoryStore) session.Store) *server {
	t.Helper()

	hasher, err := password.NewArgon2(password.Config{
		Memory:           8 * 1024,
		Time:             1,
		Parallelism:      1,
		SaltLength:       16,
		KeyLength:        32,
		MaxPasswordBytes: 1024,
	})
	require.NoError(t, err)

	dir := directory.NewMemory(hasher)
	_, err = dir.Add("alice@example.com", testPassword, true)
	require.NoError(t, err)
	_, err = dir.Add("bob@example.com", testPassword, true)
	require.NoError(t, err)

	cfg := goSession.DefaultConfig()
	cfg.JWT.AccessSecret = bytes.Repeat([]byte("a"), 32)
	cfg.JWT.RefreshSecret = bytes.Repeat([]byte("r"), 32)
	cfg.Login.EnableThrottle = false

	store := session.NewMemoryStore()
	var backing session.Store = store
	if wrap != nil {
		backing = wrap(store)
	}
	engine, err := goSession.New().
		WithConfig(cfg).
		WithSessionStore(backing).
		WithUserDirectory(dir).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	handlers := NewHandlers(engine, NewCookieAdapter(engine.CookieConfig()), nil)
	return &server{
		router: NewRouter(handlers, WithHealth(engine)),
		engine: engine,
		store:  store,
	}
}

func (s *server) do(method, path string, body any, cookie string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.7:5555"
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "refresh_token", Value: cookie})
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *server) login(t *testing.T, email, cookie string) (string, *httptest.ResponseRecorder) {
	t.Helper()
	rec := s.do(http.MethodPost, "/auth/login", loginRequest{Email: email, Password: testPassword}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return refreshCookie(t, rec).Value, rec
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	t.Fatalf("no refresh cookie in response")
	return nil
}

func TestLoginSetsCookieAndReturnsAccessToken(t *testing.T) {
	s := newServer(t)

	token, rec := s.login(t, "alice@example.com", "")

	c := refreshCookie(t, rec)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Positive(t, c.MaxAge)
	assert.Equal(t, 1, s.store.Len())

	assert.NotContains(t, rec.Body.String(), token)
	var body tokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotEmpty(t, body.AccessToken)
	assert.Equal(t, "Bearer", body.TokenType)

	auth, err := s.engine.ValidateAccess(context.Background(), body.AccessToken)
	require.NoError(t, err)
	assert.NotEmpty(t, auth.UserID)
}

func TestLoginBadPassword(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/auth/login", loginRequest{Email: "alice@example.com", Password: "wrong-password-000"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, 0, s.store.Len())
}

func TestLoginMalformedBody(t *testing.T) {
	s := newServer(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshRotatesCookie(t *testing.T) {
	s := newServer(t)
	first, _ := s.login(t, "alice@example.com", "")

	rec := s.do(http.MethodPost, "/auth/refresh", nil, first)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	second := refreshCookie(t, rec).Value
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, s.store.Len())
}

func TestRefreshReplayIsForbiddenAndClearsCookie(t *testing.T) {
	s := newServer(t)
	first, _ := s.login(t, "alice@example.com", "")

	rec := s.do(http.MethodPost, "/auth/refresh", nil, first)
	require.Equal(t, http.StatusOK, rec.Code)
	second := refreshCookie(t, rec).Value

	replay := s.do(http.MethodPost, "/auth/refresh", nil, first)
	assert.Equal(t, http.StatusForbidden, replay.Code)
	assert.Equal(t, -1, refreshCookie(t, replay).MaxAge)

	// the replay swept the family
	again := s.do(http.MethodPost, "/auth/refresh", nil, second)
	assert.Equal(t, http.StatusForbidden, again.Code)
	assert.Equal(t, 0, s.store.Len())
}

func TestRefreshWithoutCookie(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/auth/refresh", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLoginWithForeignCookie(t *testing.T) {
	s := newServer(t)
	bobToken, _ := s.login(t, "bob@example.com", "")
	s.login(t, "bob@example.com", "")
	require.Equal(t, 2, s.store.Len())

	s.login(t, "alice@example.com", bobToken)

	// bob's sessions are gone, alice holds the only one
	assert.Equal(t, 1, s.store.Len())
}

func TestLoginWithOwnCookieSetsOnlyTheNewCookie(t *testing.T) {
	s := newServer(t)
	first, _ := s.login(t, "alice@example.com", "")

	second, rec := s.login(t, "alice@example.com", first)

	var refresh []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refresh_token" {
			refresh = append(refresh, c)
		}
	}
	require.Len(t, refresh, 1)
	assert.Equal(t, second, refresh[0].Value)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, s.store.Len())
}

// outageStore fails inserts while down is set.
type outageStore struct {
	*session.MemoryStore
	down atomic.Bool
}

func (o *outageStore) Insert(ctx context.Context, token, ownerID string, exp time.Time) (*session.Session, error) {
	if o.down.Load() {
		return nil, session.ErrUnavailable
	}
	return o.MemoryStore.Insert(ctx, token, ownerID, exp)
}

func newOutageServer(t *testing.T) (*server, *outageStore) {
	t.Helper()
	outage := &outageStore{}
	s := newServerWith(t, func(m *session.MemoryStore) session.Store {
		outage.MemoryStore = m
		return outage
	})
	return s, outage
}

func TestLoginFailureAfterRetiringCookieClearsIt(t *testing.T) {
	s, outage := newOutageServer(t)
	own, _ := s.login(t, "alice@example.com", "")
	other, _ := s.login(t, "alice@example.com", "")

	outage.down.Store(true)
	rec := s.do(http.MethodPost, "/auth/login", loginRequest{Email: "alice@example.com", Password: testPassword}, own)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, -1, refreshCookie(t, rec).MaxAge)

	// the other device keeps working once inserts recover
	outage.down.Store(false)
	refreshed := s.do(http.MethodPost, "/auth/refresh", nil, other)
	assert.Equal(t, http.StatusOK, refreshed.Code)
}

func TestRefreshFailureAfterTakeClearsCookie(t *testing.T) {
	s, outage := newOutageServer(t)
	token, _ := s.login(t, "alice@example.com", "")

	outage.down.Store(true)
	rec := s.do(http.MethodPost, "/auth/refresh", nil, token)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, -1, refreshCookie(t, rec).MaxAge)
	assert.Equal(t, 0, s.store.Len())
}

func TestLogout(t *testing.T) {
	s := newServer(t)
	token, _ := s.login(t, "alice@example.com", "")

	rec := s.do(http.MethodPost, "/auth/logout", nil, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, -1, refreshCookie(t, rec).MaxAge)
	assert.Equal(t, 0, s.store.Len())

	again := s.do(http.MethodPost, "/auth/logout", nil, token)
	assert.Equal(t, http.StatusNoContent, again.Code)

	none := s.do(http.MethodPost, "/auth/logout", nil, "")
	assert.Equal(t, http.StatusNoContent, none.Code)
	assert.Empty(t, none.Result().Cookies())
}

func TestMethodNotAllowed(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodGet, "/auth/login", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

type fakeAuth struct {
	err error
}

func (f fakeAuth) Login(context.Context, string, string, string) (*goSession.LoginResult, error) {
	return nil, f.err
}

func (f fakeAuth) Refresh(context.Context, string) (*goSession.TokenPair, error) {
	return nil, f.err
}

func (f fakeAuth) Logout(context.Context, string) goSession.LogoutResult {
	return goSession.LogoutResult{}
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	cause := fmt.Errorf("%w: redis: connection refused at 10.0.0.3", goSession.ErrInternal)
	h := NewHandlers(fakeAuth{err: cause}, NewCookieAdapter(goSession.DefaultConfig().Cookie), nil)
	router := NewRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "x"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
	assert.Empty(t, rec.Result().Cookies())
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{goSession.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("%w: %w", goSession.ErrUnauthorized, goSession.ErrLoginRateLimited), http.StatusUnauthorized},
		{goSession.ErrForbidden, http.StatusForbidden},
		{goSession.ErrInternal, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), "%v", tc.err)
	}
}
