package goSession

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/jwt"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginRateLimited      = "login_rate_limited"
	auditEventLoginForeignCookie    = "login_foreign_cookie"
	auditEventLoginUnknownCookie    = "login_unknown_cookie"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshInvalid        = "refresh_invalid"
	auditEventRefreshReuseDetected  = "refresh_reuse_detected"
	auditEventRefreshOwnerMismatch  = "refresh_owner_mismatch"
	auditEventSessionInsertConflict = "session_insert_conflict"
	auditEventLogoutSession         = "logout_session"
	auditEventLogoutAll             = "logout_all"
)

// AuditErrorCode is the stable error label written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrAccountUnverified  AuditErrorCode = "account_unverified"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// auditCodes is checked in order; the first match wins, so narrower
// sentinels come before the public Unauthorized and Forbidden classes.
var auditCodes = []struct {
	target error
	code   AuditErrorCode
}{
	{ErrLoginRateLimited, auditErrRateLimited},
	{ErrAccountUnverified, auditErrAccountUnverified},
	{ErrUserNotFound, auditErrUserNotFound},
	{jwt.ErrExpiredToken, auditErrTokenExpired},
	{jwt.ErrInvalidSignature, auditErrInvalidToken},
	{jwt.ErrMalformed, auditErrInvalidToken},
	{errInvalidCredentials, auditErrInvalidCredentials},
	{ErrForbidden, auditErrForbidden},
	{ErrUnauthorized, auditErrUnauthorized},
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}
	for _, c := range auditCodes {
		if errors.Is(err, c.target) {
			return c.code
		}
	}
	return auditErrInternal
}

// emitAudit queues one event when auditing is enabled. meta is only called
// when there is a dispatcher to receive the result.
func (e *Engine) emitAudit(ctx context.Context, kind string, success bool, userID string, err error, meta func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	rm := metaFrom(ctx)
	ev := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: kind,
		UserID:    userID,
		IP:        rm.ip,
		UserAgent: rm.userAgent,
		Success:   success,
		Error:     string(auditErrorCode(err)),
	}
	if meta != nil {
		ev.Metadata = meta()
	}
	e.audit.Emit(ctx, ev)
}
