package goSession

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	store     session.Store
	directory UserDirectory
	auditSink AuditSink
	logger    logrus.FieldLogger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client used for the login throttle and, when
// no store is set with WithSessionStore, for a [session.RedisStore].
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore overrides the session store. Stores that do not implement
// [session.Taker] are wrapped in a [session.LockingTaker].
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithUserDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger. Without one the engine logs nothing.
func (b *Builder) WithLogger(log logrus.FieldLogger) *Builder {
	b.logger = log
	return b
}

// WithClock overrides the time source used for token claims and store TTLs.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.directory == nil {
		return nil, fmt.Errorf("%w: user directory required", ErrInvalidConfig)
	}
	if b.store == nil && b.redis == nil {
		return nil, fmt.Errorf("%w: session store or redis client required", ErrInvalidConfig)
	}
	if cfg.Login.EnableThrottle && b.redis == nil {
		return nil, fmt.Errorf("%w: login throttle requires redis client", ErrInvalidConfig)
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	log := b.logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	// -------- TOKENS --------
	tokens, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Leeway:        cfg.JWT.Leeway,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Now:           now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// -------- SESSION STORE --------
	store := b.store
	if store == nil {
		store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix).WithClock(now)
	}
	if r, ok := store.(session.Retainer); ok {
		r.RetainFor(cfg.JWT.Leeway)
	}

	engine := &Engine{
		config:    cloneConfig(cfg),
		log:       log.WithField("component", "goSession"),
		now:       now,
		tokens:    tokens,
		store:     store,
		directory: b.directory,
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
	}

	if cfg.Login.EnableThrottle {
		engine.limiter = rate.New(b.redis, rate.Config{
			Prefix:                cfg.Session.RedisPrefix,
			EnableIPThrottle:      cfg.Login.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Login.MaxAttempts,
			LoginCooldownDuration: cfg.Login.Cooldown,
		})
	}

	svc, err := flows.New(engine.flowDeps())
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	engine.flows = svc

	b.built = true

	return engine, nil
}

func (e *Engine) flowDeps() flows.Deps {
	issue := flows.IssueDeps{
		Tokens:   e.tokens,
		Sessions: e.store,
	}

	login := flows.LoginDeps{
		FindUser: func(ctx context.Context, email string) (flows.LoginUserRecord, error) {
			u, err := e.directory.FindUserByEmail(ctx, email)
			if err != nil {
				return flows.LoginUserRecord{}, err
			}
			return flows.LoginUserRecord{
				UserID:        u.ID,
				Email:         u.Email,
				PasswordHash:  u.PasswordHash,
				EmailVerified: u.EmailVerified,
			}, nil
		},
		VerifyCredential: func(ctx context.Context, u flows.LoginUserRecord, password string) (bool, error) {
			return e.directory.VerifyCredential(ctx, User{
				ID:            u.UserID,
				Email:         u.Email,
				PasswordHash:  u.PasswordHash,
				EmailVerified: u.EmailVerified,
			}, password)
		},
		UserNotFound:    ErrUserNotFound,
		RequireVerified: e.config.Login.RequireVerifiedEmail,
		RateLimited:     rate.ErrRateLimited,
		ClientIP:        clientIPFromContext,
		Warn: func(msg string, args ...any) {
			e.log.WithFields(kvFields(args)).Warn(msg)
		},
		Sessions: e.store,
		Issue:    issue,
	}
	if e.limiter != nil {
		login.RateLimiter = e.limiter
	}

	return flows.Deps{
		Login: login,
		Refresh: flows.RefreshDeps{
			Taker:    session.TakerFor(e.store),
			Verifier: e.tokens,
			Revoker:  e.store,
			Issue:    issue,
			Now:      e.now,
		},
		Logout: flows.LogoutDeps{
			Sessions: e.store,
			Revoker:  e.store,
		},
	}
}

func kvFields(args []any) logrus.Fields {
	fields := make(logrus.Fields, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		fields[key] = args[i+1]
	}
	return fields
}
