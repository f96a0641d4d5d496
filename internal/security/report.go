package security

import (
	"net/http"
	"time"
)

// Report is a read-only summary of the protections an engine runs with.
type Report struct {
	SigningAlgorithm     string
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	Leeway               time.Duration
	AudienceBound        bool
	RefreshRotation      bool
	ReuseDetection       bool
	RequireVerifiedEmail bool
	LoginThrottle        bool
	IPThrottle           bool
	MaxLoginAttempts     int
	LoginCooldown        time.Duration
	CookieSecure         bool
	CookieSameSite       string
	AuditEnabled         bool
	SessionBackend       string
	Warnings             []string
}

type ReportInput struct {
	SigningAlgorithm     string
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	Leeway               time.Duration
	Audience             string
	RequireVerifiedEmail bool
	LoginThrottle        bool
	IPThrottle           bool
	MaxLoginAttempts     int
	LoginCooldown        time.Duration
	CookieSecure         bool
	CookieSameSite       http.SameSite
	AuditEnabled         bool
	SessionBackend       string
}

// MaxRecommendedAccessTTL is the access lifetime above which BuildReport
// warns. Access tokens stay valid after their session is revoked.
const MaxRecommendedAccessTTL = time.Hour

func BuildReport(in ReportInput) Report {
	r := Report{
		SigningAlgorithm:     in.SigningAlgorithm,
		AccessTTL:            in.AccessTTL,
		RefreshTTL:           in.RefreshTTL,
		Leeway:               in.Leeway,
		AudienceBound:        in.Audience != "",
		RefreshRotation:      true,
		ReuseDetection:       true,
		RequireVerifiedEmail: in.RequireVerifiedEmail,
		LoginThrottle:        in.LoginThrottle && in.MaxLoginAttempts > 0 && in.LoginCooldown > 0,
		MaxLoginAttempts:     in.MaxLoginAttempts,
		LoginCooldown:        in.LoginCooldown,
		CookieSecure:         in.CookieSecure,
		CookieSameSite:       sameSiteName(in.CookieSameSite),
		AuditEnabled:         in.AuditEnabled,
		SessionBackend:       in.SessionBackend,
	}
	r.IPThrottle = r.LoginThrottle && in.IPThrottle

	if !r.CookieSecure {
		r.Warnings = append(r.Warnings, "refresh cookie is sent over plain http")
	}
	if in.CookieSameSite == http.SameSiteNoneMode {
		r.Warnings = append(r.Warnings, "refresh cookie is sent on cross-site requests")
	}
	if !r.LoginThrottle {
		r.Warnings = append(r.Warnings, "login throttle disabled")
	}
	if !r.RequireVerifiedEmail {
		r.Warnings = append(r.Warnings, "unverified accounts can log in")
	}
	if in.AccessTTL > MaxRecommendedAccessTTL {
		r.Warnings = append(r.Warnings, "access token lifetime exceeds one hour")
	}
	if !r.AudienceBound {
		r.Warnings = append(r.Warnings, "tokens carry no audience claim")
	}
	if !r.AuditEnabled {
		r.Warnings = append(r.Warnings, "audit events disabled")
	}
	return r
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteLaxMode:
		return "lax"
	case http.SameSiteNoneMode:
		return "none"
	default:
		return "default"
	}
}
