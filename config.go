package goSession

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/jwt"
)

// Config is the engine configuration. Build one with [DefaultConfig], set the
// JWT secrets, and pass it to [Builder.WithConfig].
type Config struct {
	JWT     JWTConfig
	Session SessionConfig
	Login   LoginConfig
	Cookie  CookieConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token minting. AccessSecret and RefreshSecret must be
// distinct and at least 32 bytes.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration
	Issuer        string
	Audience      string
}

/*
====================================
SESSION CONFIG
====================================
*/

type SessionConfig struct {
	// RedisPrefix namespaces keys when the engine builds its own RedisStore.
	RedisPrefix string
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig controls credential checks and the failed-login throttle. The
// throttle needs a Redis client (see [Builder.WithRedis]).
type LoginConfig struct {
	RequireVerifiedEmail bool
	EnableThrottle       bool
	EnableIPThrottle     bool
	MaxAttempts          int
	Cooldown             time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig describes the refresh cookie written by the HTTP adapter.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

/*
====================================
AUDIT / METRICS
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns production defaults. Secrets are left empty and must
// be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Leeway:     30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix: "gs",
		},
		Login: LoginConfig{
			RequireVerifiedEmail: true,
			EnableThrottle:       true,
			EnableIPThrottle:     true,
			MaxAttempts:          5,
			Cooldown:             10 * time.Minute,
		},
		Cookie: CookieConfig{
			Name:     "refresh_token",
			Path:     "/",
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	// JWT
	if len(c.JWT.AccessSecret) < jwt.MinSecretLength {
		return fmt.Errorf("JWT AccessSecret must be >= %d bytes", jwt.MinSecretLength)
	}
	if len(c.JWT.RefreshSecret) < jwt.MinSecretLength {
		return fmt.Errorf("JWT RefreshSecret must be >= %d bytes", jwt.MinSecretLength)
	}
	if bytes.Equal(c.JWT.AccessSecret, c.JWT.RefreshSecret) {
		return fmt.Errorf("JWT AccessSecret and RefreshSecret must differ")
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return fmt.Errorf("JWT RefreshTTL must be > AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return fmt.Errorf("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if strings.ContainsAny(c.Session.RedisPrefix, " \t\r\n") {
		return fmt.Errorf("Session RedisPrefix must not contain whitespace")
	}

	// Login
	if c.Login.EnableThrottle {
		if c.Login.MaxAttempts <= 0 {
			return fmt.Errorf("Login MaxAttempts must be > 0 when throttling is enabled")
		}
		if c.Login.Cooldown <= 0 {
			return fmt.Errorf("Login Cooldown must be > 0 when throttling is enabled")
		}
	}

	// Cookie
	if c.Cookie.Name == "" {
		return fmt.Errorf("Cookie Name must be set")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return fmt.Errorf("Cookie SameSite=None requires Secure")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return fmt.Errorf("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return fmt.Errorf("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
