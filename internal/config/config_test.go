package config

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", s.Server.Addr)
	assert.Equal(t, 2*time.Second, s.Server.StoreTimeout)
	assert.Equal(t, BackendRedis, s.Store.Backend)
	assert.Equal(t, "localhost:6379", s.Redis.Addr)
	assert.Equal(t, "gs", s.Redis.Prefix)
	assert.Equal(t, 15*time.Minute, s.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, s.JWT.RefreshTTL)
	assert.True(t, s.Login.RequireVerifiedEmail)
	assert.True(t, s.Login.Throttle)
	assert.Equal(t, "refresh_token", s.Cookie.Name)
	assert.Equal(t, "@every 5m", s.Janitor.Schedule)
	assert.True(t, s.NeedsRedis())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GOSESSION_SERVER_ADDR", ":9090")
	t.Setenv("GOSESSION_STORE_BACKEND", "memory")
	t.Setenv("GOSESSION_LOGIN_THROTTLE", "false")
	t.Setenv("GOSESSION_JWT_ACCESS_TTL", "5m")
	t.Setenv("GOSESSION_COOKIE_SAME_SITE", "lax")
	t.Setenv("GOSESSION_LOG_FORMAT", "json")

	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", s.Server.Addr)
	assert.Equal(t, BackendMemory, s.Store.Backend)
	assert.False(t, s.Login.Throttle)
	assert.Equal(t, 5*time.Minute, s.JWT.AccessTTL)
	assert.Equal(t, "json", s.Log.Format)
	assert.False(t, s.NeedsRedis())
	assert.Equal(t, http.SameSiteLaxMode, s.EngineConfig().Cookie.SameSite)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gosession.yaml")
	body := strings.Join([]string{
		"store:",
		"  backend: postgres",
		"postgres:",
		"  url: postgres://gs:gs@localhost:5432/gs?sslmode=disable",
		"jwt:",
		"  issuer: file-issuer",
		"  refresh_ttl: 48h",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("GOSESSION_JWT_ISSUER", "env-issuer")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, s.Store.Backend)
	assert.Equal(t, 48*time.Hour, s.JWT.RefreshTTL)
	// env wins over the file
	assert.Equal(t, "env-issuer", s.JWT.Issuer)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown backend":      {"GOSESSION_STORE_BACKEND": "etcd"},
		"postgres without url": {"GOSESSION_STORE_BACKEND": "postgres"},
		"bad same site":        {"GOSESSION_COOKIE_SAME_SITE": "sometimes"},
		"bad log format":       {"GOSESSION_LOG_FORMAT": "xml"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
		})
	}
}

func TestEngineConfigValidates(t *testing.T) {
	t.Setenv("GOSESSION_JWT_ACCESS_SECRET", strings.Repeat("a", 32))
	t.Setenv("GOSESSION_JWT_REFRESH_SECRET", strings.Repeat("r", 32))

	s, err := Load("")
	require.NoError(t, err)

	cfg := s.EngineConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []byte(strings.Repeat("a", 32)), cfg.JWT.AccessSecret)
	assert.Equal(t, "goSession", cfg.JWT.Issuer)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestEngineConfigWithoutSecretsFailsValidation(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	cfg := s.EngineConfig()
	assert.Error(t, cfg.Validate())
}
