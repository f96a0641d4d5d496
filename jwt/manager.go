package jwt

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	// KindAccess marks short-lived access tokens.
	KindAccess Kind = "access"
	// KindRefresh marks long-lived, single-use refresh tokens.
	KindRefresh Kind = "refresh"
)

// MinSecretLength is the minimum accepted HS256 secret size in bytes.
const MinSecretLength = 32

// Config configures a Manager. AccessSecret and RefreshSecret must differ.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
	// Now overrides the clock used for issuing and verifying. Defaults to time.Now.
	Now func() time.Time
}

// Claims is the payload carried by both token kinds.
type Claims struct {
	Kind Kind `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// Expiry returns the exp claim as a time, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Manager issues and verifies tokens.
//
// Manager is immutable after NewManager and safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) < MinSecretLength {
		return nil, fmt.Errorf("%w: access secret must be at least %d bytes", ErrInvalidConfig, MinSecretLength)
	}
	if len(cfg.RefreshSecret) < MinSecretLength {
		return nil, fmt.Errorf("%w: refresh secret must be at least %d bytes", ErrInvalidConfig, MinSecretLength)
	}
	if subtle.ConstantTimeCompare(cfg.AccessSecret, cfg.RefreshSecret) == 1 {
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrInvalidConfig)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%w: ttl must be > 0", ErrInvalidConfig)
	}
	if cfg.AccessTTL >= cfg.RefreshTTL {
		return nil, fmt.Errorf("%w: access ttl must be shorter than refresh ttl", ErrInvalidConfig)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, fmt.Errorf("%w: leeway must be within [0, 2m]", ErrInvalidConfig)
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{config: cfg}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// IssueAccess mints an access token for userID and returns it with its expiry.
func (m *Manager) IssueAccess(userID string) (string, time.Time, error) {
	return m.issue(KindAccess, userID)
}

// IssueRefresh mints a refresh token for userID and returns it with its expiry.
//
// Every call yields a distinct token, even within the same second, because
// each token carries a fresh random jti.
func (m *Manager) IssueRefresh(userID string) (string, time.Time, error) {
	return m.issue(KindRefresh, userID)
}

// VerifyAccess checks signature, expiry and kind of an access token.
func (m *Manager) VerifyAccess(token string) (*Claims, error) {
	return m.verify(KindAccess, token)
}

// VerifyRefresh checks signature, expiry and kind of a refresh token.
//
// Errors always wrap exactly one of ErrExpiredToken, ErrInvalidSignature or
// ErrMalformed.
func (m *Manager) VerifyRefresh(token string) (*Claims, error) {
	return m.verify(KindRefresh, token)
}

func (m *Manager) issue(kind Kind, userID string) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, errors.New("empty subject")
	}

	now := m.config.Now()
	exp := now.Add(m.ttl(kind))

	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret(kind))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}

	// NumericDate truncates to seconds; report what the token actually says.
	return signed, claims.ExpiresAt.Time, nil
}

func (m *Manager) verify(kind Kind, tokenStr string) (*Claims, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformed)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.config.Now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	secret := m.secret(kind)
	claims := &Claims{}
	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: token not valid", ErrInvalidSignature)
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidSignature, kind)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformed)
	}

	return claims, nil
}

// classify folds the parser's error tree into the three public verification
// errors. Signature checks run before claim validation, so an expired token
// with a bad signature reports ErrInvalidSignature.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpiredToken, err)
	default:
		// issuer, audience, nbf and iat failures: not a token we issued for this use
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
}

func (m *Manager) secret(kind Kind) []byte {
	if kind == KindRefresh {
		return m.config.RefreshSecret
	}
	return m.config.AccessSecret
}

func (m *Manager) ttl(kind Kind) time.Duration {
	if kind == KindRefresh {
		return m.config.RefreshTTL
	}
	return m.config.AccessTTL
}
