package goSession

import (
	"github.com/MrEthical07/goSession/internal/security"
	"github.com/MrEthical07/goSession/session"
)

// SecurityReport summarizes the engine's protections and lists weak settings.
type SecurityReport = security.Report

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	c := e.config
	return security.BuildReport(security.ReportInput{
		SigningAlgorithm:     "HS256",
		AccessTTL:            c.JWT.AccessTTL,
		RefreshTTL:           c.JWT.RefreshTTL,
		Leeway:               c.JWT.Leeway,
		Audience:             c.JWT.Audience,
		RequireVerifiedEmail: c.Login.RequireVerifiedEmail,
		LoginThrottle:        e.limiter != nil,
		IPThrottle:           c.Login.EnableIPThrottle,
		MaxLoginAttempts:     c.Login.MaxAttempts,
		LoginCooldown:        c.Login.Cooldown,
		CookieSecure:         c.Cookie.Secure,
		CookieSameSite:       c.Cookie.SameSite,
		AuditEnabled:         e.audit != nil,
		SessionBackend:       backendName(e.store),
	})
}

func backendName(store session.Store) string {
	switch store.(type) {
	case *session.RedisStore:
		return "redis"
	case *session.PostgresStore:
		return "postgres"
	case *session.MemoryStore:
		return "memory"
	default:
		return "custom"
	}
}
