package goSession

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/sirupsen/logrus"
)

// errInvalidCredentials labels wrong-password failures in audit events. It
// is never returned to callers.
var errInvalidCredentials = errors.New("invalid credentials")

// Engine issues, rotates and revokes refresh-token sessions.
type Engine struct {
	config    Config
	log       logrus.FieldLogger
	now       func() time.Time
	tokens    *jwt.Manager
	store     session.Store
	directory UserDirectory
	limiter   *rate.Limiter
	flows     *flows.Service
	audit     *audit.Dispatcher
	metrics   *Metrics
}

// Close flushes queued audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// CookieConfig returns the refresh cookie settings the engine was built with.
func (e *Engine) CookieConfig() CookieConfig {
	return e.config.Cookie
}

// Ping checks the session store when it supports health checks.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if p, ok := e.store.(session.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (e *Engine) ready() bool {
	return e != nil && e.flows != nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n int) {
	if e == nil || e.metrics == nil || n <= 0 {
		return
	}
	e.metrics.Add(id, uint64(n))
}

func internalError(err error) error {
	return fmt.Errorf("%w: %v", ErrInternal, err)
}

// Login authenticates email and password and issues a new pair.
//
// presentedRefresh is the refresh cookie sent with the request, if any. It is
// retired before the new pair is issued: the session it names is deleted when
// it belongs to the same user, and when it is unknown or belongs to someone
// else the implicated user's sessions are revoked.
//
// Failures before authentication completes never touch the session store.
// A later failure after a cookie was presented wraps ErrSessionRetired.
func (e *Engine) Login(ctx context.Context, email, password, presentedRefresh string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Login(ctx, flows.LoginRequest{
		Email:          email,
		Password:       password,
		PresentedToken: presentedRefresh,
	})

	if res.Failure != flows.LoginFailureNone {
		err := e.loginFailure(ctx, res)
		if res.ClearCookie {
			err = fmt.Errorf("%w: %w", err, ErrSessionRetired)
		}
		return nil, err
	}

	e.recordCookieOutcome(ctx, res)

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.UserID, nil, nil)

	return &LoginResult{
		TokenPair:          tokenPair(res.Pair),
		UserID:             res.UserID,
		ClearRefreshCookie: res.ClearCookie,
	}, nil
}

func (e *Engine) loginFailure(ctx context.Context, res flows.LoginResult) error {
	switch res.Failure {
	case flows.LoginFailureRateLimited:
		e.metricInc(MetricLoginRateLimited)
		err := fmt.Errorf("%w: %w", ErrUnauthorized, ErrLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", err, nil)
		return err

	case flows.LoginFailureUserNotFound:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrUserNotFound, nil)
		return ErrUnauthorized

	case flows.LoginFailureBadCredential:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, errInvalidCredentials, nil)
		return ErrUnauthorized

	case flows.LoginFailureUnverified:
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricLoginUnverified)
		err := fmt.Errorf("%w: %w", ErrUnauthorized, ErrAccountUnverified)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, err, nil)
		return err

	case flows.LoginFailureIssue:
		e.metricInc(MetricLoginFailure)
		e.issueFailure(ctx, res.UserID, "login", res.Err)
		return internalError(res.Err)

	default:
		// limiter, directory and cookie-handling failures
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricStoreError)
		e.log.WithFields(logrus.Fields{
			"op":      "login",
			"user_id": res.UserID,
			"stage":   loginStage(res.Failure),
		}).WithError(res.Err).Error("goSession: login failed")
		e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, res.Err, func() map[string]string {
			return map[string]string{"stage": loginStage(res.Failure)}
		})
		return internalError(res.Err)
	}
}

func (e *Engine) recordCookieOutcome(ctx context.Context, res flows.LoginResult) {
	switch res.Cookie {
	case flows.CookieForeign:
		e.metricInc(MetricLoginCookieRevoked)
		e.metricAdd(MetricSessionsRevoked, res.Revoked)
		e.log.WithFields(logrus.Fields{
			"event":         auditEventLoginForeignCookie,
			"user_id":       res.UserID,
			"cookie_owner":  res.CookieOwnerID,
			"revoked_count": res.Revoked,
		}).Warn("goSession: login presented another user's refresh token")
		e.emitAudit(ctx, auditEventLoginForeignCookie, false, res.CookieOwnerID, nil, func() map[string]string {
			return map[string]string{
				"login_user_id": res.UserID,
				"revoked":       strconv.Itoa(res.Revoked),
			}
		})

	case flows.CookieUnknown:
		e.metricInc(MetricLoginCookieRevoked)
		e.metricAdd(MetricSessionsRevoked, res.Revoked)
		e.log.WithFields(logrus.Fields{
			"event":         auditEventLoginUnknownCookie,
			"user_id":       res.UserID,
			"revoked_count": res.Revoked,
		}).Warn("goSession: login presented an unknown refresh token")
		e.emitAudit(ctx, auditEventLoginUnknownCookie, false, res.UserID, nil, func() map[string]string {
			return map[string]string{"revoked": strconv.Itoa(res.Revoked)}
		})

	case flows.CookieOwn:
		e.metricAdd(MetricSessionsRevoked, 1)
	}
}

// Refresh consumes presented and returns a rotated pair.
//
// ErrUnauthorized means no token was presented. ErrForbidden means the token
// was replayed, forged or expired; on replay every session of the token's
// subject has been revoked before Refresh returns. Any other error wraps
// ErrInternal and no tokens are returned; it also wraps ErrSessionRetired
// when the presented token was consumed before the failure.
func (e *Engine) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
		defer func() { e.metrics.Observe(MetricRefreshLatency, time.Since(start)) }()
	}

	res := e.flows.Refresh(ctx, presented)

	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.metricInc(MetricSessionCreated)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.UserID, nil, nil)
		pair := tokenPair(res.Pair)
		return &pair, nil

	case flows.RefreshFailureMissing:
		e.metricInc(MetricRefreshFailure)
		return nil, ErrUnauthorized

	case flows.RefreshFailureReuse:
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricRefreshReuseDetected)
		e.metricAdd(MetricSessionsRevoked, res.Revoked)
		e.log.WithFields(logrus.Fields{
			"event":         auditEventRefreshReuseDetected,
			"user_id":       res.UserID,
			"revoked_count": res.Revoked,
		}).Warn("goSession: refresh token reuse detected, sessions revoked")
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, res.UserID, ErrForbidden, func() map[string]string {
			return map[string]string{"revoked": strconv.Itoa(res.Revoked)}
		})
		return nil, ErrForbidden

	case flows.RefreshFailureOwnerMismatch:
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricRefreshOwnerMismatch)
		e.metricAdd(MetricSessionsRevoked, res.Revoked)
		e.log.WithFields(logrus.Fields{
			"event":         auditEventRefreshOwnerMismatch,
			"user_id":       res.UserID,
			"revoked_count": res.Revoked,
		}).Warn("goSession: refresh token subject does not match session owner")
		e.emitAudit(ctx, auditEventRefreshOwnerMismatch, false, res.UserID, ErrForbidden, func() map[string]string {
			return map[string]string{"revoked": strconv.Itoa(res.Revoked)}
		})
		return nil, ErrForbidden

	case flows.RefreshFailureUnknownToken, flows.RefreshFailureInvalid:
		e.metricInc(MetricRefreshFailure)
		reason := "unknown_token"
		switch {
		case res.Failure == flows.RefreshFailureInvalid:
			reason = "verify_failed"
		case errors.Is(res.Err, jwt.ErrExpiredToken):
			reason = "expired"
		}
		e.log.WithFields(logrus.Fields{
			"event":   auditEventRefreshInvalid,
			"user_id": res.UserID,
			"reason":  reason,
		}).WithError(res.Err).Warn("goSession: refresh token rejected")
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, res.Err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return nil, ErrForbidden

	case flows.RefreshFailureIssue:
		e.metricInc(MetricRefreshFailure)
		e.issueFailure(ctx, res.UserID, "refresh", res.Err)
		return nil, fmt.Errorf("%w: %w", internalError(res.Err), ErrSessionRetired)

	default:
		// take or revoke failed
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricStoreError)
		e.log.WithFields(logrus.Fields{
			"op":      "refresh",
			"user_id": res.UserID,
		}).WithError(res.Err).Error("goSession: session store failure during refresh")
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, res.Err, func() map[string]string {
			return map[string]string{"reason": "store_failure"}
		})
		if res.Failure == flows.RefreshFailureRevoke {
			// the row was already gone or taken
			return nil, fmt.Errorf("%w: %w", internalError(res.Err), ErrSessionRetired)
		}
		return nil, internalError(res.Err)
	}
}

// issueFailure logs a failed mint-and-store. A conflict means a freshly
// minted token collided with a stored one, which breaks the single-use
// invariant, so it is logged and audited separately.
func (e *Engine) issueFailure(ctx context.Context, userID, op string, err error) {
	entry := e.log.WithFields(logrus.Fields{
		"op":      op,
		"user_id": userID,
	}).WithError(err)

	if errors.Is(err, session.ErrConflict) {
		e.metricInc(MetricSessionInsertConflict)
		entry.Error("goSession: refresh session insert conflict")
		e.emitAudit(ctx, auditEventSessionInsertConflict, false, userID, err, func() map[string]string {
			return map[string]string{"op": op}
		})
		return
	}

	e.metricInc(MetricStoreError)
	entry.Error("goSession: failed to issue token pair")
}

// Logout deletes the session named by presented. It never fails: an unknown
// token is already logged out, and a store failure is logged while the
// caller still clears the cookie.
func (e *Engine) Logout(ctx context.Context, presented string) LogoutResult {
	if !e.ready() {
		return LogoutResult{ClearRefreshCookie: presented != ""}
	}

	res := e.flows.Logout(ctx, presented)

	switch res.Outcome {
	case flows.LogoutRevoked:
		e.metricInc(MetricLogout)
		e.metricAdd(MetricSessionsRevoked, 1)
		e.emitAudit(ctx, auditEventLogoutSession, true, "", nil, nil)
	case flows.LogoutAlreadyGone:
		e.metricInc(MetricLogout)
	case flows.LogoutStoreError:
		e.metricInc(MetricLogoutStoreError)
		e.metricInc(MetricStoreError)
		e.log.WithField("op", "logout").WithError(res.Err).Error("goSession: failed to delete session on logout")
		e.emitAudit(ctx, auditEventLogoutSession, false, "", res.Err, nil)
	}

	return LogoutResult{ClearRefreshCookie: res.ClearCookie}
}

// LogoutAll revokes every session owned by userID and returns how many
// were deleted.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	if userID == "" {
		return 0, fmt.Errorf("%w: empty user id", ErrUnauthorized)
	}

	n, err := e.flows.LogoutAll(ctx, userID)
	if err != nil {
		e.metricInc(MetricStoreError)
		e.log.WithFields(logrus.Fields{"op": "logout_all", "user_id": userID}).WithError(err).Error("goSession: bulk revocation failed")
		e.emitAudit(ctx, auditEventLogoutAll, false, userID, err, nil)
		return 0, internalError(err)
	}

	e.metricInc(MetricLogoutAll)
	e.metricAdd(MetricSessionsRevoked, n)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, nil, func() map[string]string {
		return map[string]string{"revoked": strconv.Itoa(n)}
	})
	return n, nil
}

// ValidateAccess verifies an access token without touching the session
// store. Any failure is reported as ErrUnauthorized wrapping the codec error.
func (e *Engine) ValidateAccess(_ context.Context, token string) (*AuthResult, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	claims, err := e.tokens.VerifyAccess(token)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	return &AuthResult{
		UserID:    claims.UserID(),
		TokenID:   claims.ID,
		ExpiresAt: claims.Expiry(),
	}, nil
}

func tokenPair(p flows.IssuedPair) TokenPair {
	return TokenPair{
		AccessToken:      p.AccessToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshToken:     p.RefreshToken,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

func loginStage(kind flows.LoginFailureKind) string {
	switch kind {
	case flows.LoginFailureLimiter:
		return "limiter"
	case flows.LoginFailureLookup:
		return "user_lookup"
	case flows.LoginFailureCredentialCheck:
		return "credential_check"
	case flows.LoginFailureCookieLookup:
		return "cookie_lookup"
	case flows.LoginFailureCookieRevoke:
		return "cookie_revoke"
	default:
		return "unknown"
	}
}
