// Package config loads goSessiond settings from an optional file and
// GOSESSION_* environment variables using Viper.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, e.g. GOSESSION_REDIS_ADDR.
const EnvPrefix = "GOSESSION"

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Settings struct {
	Server   Server   `mapstructure:"server"`
	Log      Log      `mapstructure:"log"`
	Store    Store    `mapstructure:"store"`
	Redis    Redis    `mapstructure:"redis"`
	Postgres Postgres `mapstructure:"postgres"`
	Janitor  Janitor  `mapstructure:"janitor"`
	JWT      JWT      `mapstructure:"jwt"`
	Login    Login    `mapstructure:"login"`
	Cookie   Cookie   `mapstructure:"cookie"`
	Audit    Audit    `mapstructure:"audit"`
}

type Server struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// StoreTimeout bounds each request's store calls.
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
	Metrics      bool          `mapstructure:"metrics"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Store struct {
	Backend string `mapstructure:"backend"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type Postgres struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// Janitor purges expired sessions on a cron schedule. Redis expires rows by
// TTL and ignores it.
type Janitor struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

type JWT struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
	Leeway        time.Duration `mapstructure:"leeway"`
	Issuer        string        `mapstructure:"issuer"`
	Audience      string        `mapstructure:"audience"`
}

type Login struct {
	RequireVerifiedEmail bool          `mapstructure:"require_verified_email"`
	Throttle             bool          `mapstructure:"throttle"`
	IPThrottle           bool          `mapstructure:"ip_throttle"`
	MaxAttempts          int           `mapstructure:"max_attempts"`
	Cooldown             time.Duration `mapstructure:"cooldown"`
}

type Cookie struct {
	Name     string `mapstructure:"name"`
	Path     string `mapstructure:"path"`
	Domain   string `mapstructure:"domain"`
	Secure   bool   `mapstructure:"secure"`
	SameSite string `mapstructure:"same_site"`
}

type Audit struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
}

func setDefaults(v *viper.Viper) {
	lib := goSession.DefaultConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.store_timeout", 2*time.Second)
	v.SetDefault("server.metrics", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("store.backend", BackendRedis)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", lib.Session.RedisPrefix)

	v.SetDefault("postgres.url", "")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 0)

	v.SetDefault("janitor.enabled", true)
	v.SetDefault("janitor.schedule", "@every 5m")

	v.SetDefault("jwt.access_secret", "")
	v.SetDefault("jwt.refresh_secret", "")
	v.SetDefault("jwt.access_ttl", lib.JWT.AccessTTL)
	v.SetDefault("jwt.refresh_ttl", lib.JWT.RefreshTTL)
	v.SetDefault("jwt.leeway", lib.JWT.Leeway)
	v.SetDefault("jwt.issuer", "goSession")
	v.SetDefault("jwt.audience", "")

	v.SetDefault("login.require_verified_email", lib.Login.RequireVerifiedEmail)
	v.SetDefault("login.throttle", lib.Login.EnableThrottle)
	v.SetDefault("login.ip_throttle", lib.Login.EnableIPThrottle)
	v.SetDefault("login.max_attempts", lib.Login.MaxAttempts)
	v.SetDefault("login.cooldown", lib.Login.Cooldown)

	v.SetDefault("cookie.name", lib.Cookie.Name)
	v.SetDefault("cookie.path", lib.Cookie.Path)
	v.SetDefault("cookie.domain", "")
	v.SetDefault("cookie.secure", lib.Cookie.Secure)
	v.SetDefault("cookie.same_site", "strict")

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.buffer_size", lib.Audit.BufferSize)
}

// Load reads path when it is non-empty, then overlays GOSESSION_* env vars.
// Nested keys map to env names with dots replaced by underscores.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) validate() error {
	if s.Server.Addr == "" {
		return errors.New("config: server.addr must be set")
	}

	switch s.Store.Backend {
	case BackendRedis:
	case BackendPostgres:
		if s.Postgres.URL == "" {
			return errors.New("config: postgres.url is required for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown store.backend %q", s.Store.Backend)
	}

	if _, err := parseSameSite(s.Cookie.SameSite); err != nil {
		return err
	}

	switch strings.ToLower(s.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", s.Log.Format)
	}
	return nil
}

// NeedsRedis reports whether the daemon must connect to Redis: for the Redis
// store or for the login throttle.
func (s *Settings) NeedsRedis() bool {
	return s.Store.Backend == BackendRedis || s.Login.Throttle
}

// EngineConfig maps the settings onto the library configuration. The result
// still has to pass goSession.Config.Validate at Build time.
func (s *Settings) EngineConfig() goSession.Config {
	cfg := goSession.DefaultConfig()

	cfg.JWT.AccessSecret = []byte(s.JWT.AccessSecret)
	cfg.JWT.RefreshSecret = []byte(s.JWT.RefreshSecret)
	cfg.JWT.AccessTTL = s.JWT.AccessTTL
	cfg.JWT.RefreshTTL = s.JWT.RefreshTTL
	cfg.JWT.Leeway = s.JWT.Leeway
	cfg.JWT.Issuer = s.JWT.Issuer
	cfg.JWT.Audience = s.JWT.Audience

	cfg.Session.RedisPrefix = s.Redis.Prefix

	cfg.Login.RequireVerifiedEmail = s.Login.RequireVerifiedEmail
	cfg.Login.EnableThrottle = s.Login.Throttle
	cfg.Login.EnableIPThrottle = s.Login.IPThrottle
	cfg.Login.MaxAttempts = s.Login.MaxAttempts
	cfg.Login.Cooldown = s.Login.Cooldown

	cfg.Cookie.Name = s.Cookie.Name
	cfg.Cookie.Path = s.Cookie.Path
	cfg.Cookie.Domain = s.Cookie.Domain
	cfg.Cookie.Secure = s.Cookie.Secure
	cfg.Cookie.SameSite, _ = parseSameSite(s.Cookie.SameSite)

	cfg.Audit.Enabled = s.Audit.Enabled
	if s.Audit.BufferSize > 0 {
		cfg.Audit.BufferSize = s.Audit.BufferSize
	}

	cfg.Metrics.Enabled = s.Server.Metrics
	cfg.Metrics.EnableLatencyHistograms = s.Server.Metrics

	return cfg
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(v) {
	case "", "strict":
		return http.SameSiteStrictMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("config: cookie.same_site must be strict, lax or none, got %q", v)
	}
}
