package internaldefs

import (
	"github.com/MrEthical07/goSession"
)

type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Failed logins."},
	{ID: goSession.MetricLoginRateLimited, Name: "gosession_login_rate_limited_total", Help: "Logins rejected by the throttle."},
	{ID: goSession.MetricLoginUnverified, Name: "gosession_login_unverified_total", Help: "Logins rejected for an unverified email."},
	{ID: goSession.MetricLoginCookieRevoked, Name: "gosession_login_cookie_revoked_total", Help: "Logins that retired sessions named by a presented refresh cookie."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: goSession.MetricRefreshReuseDetected, Name: "gosession_refresh_reuse_detected_total", Help: "Replays of already-rotated refresh tokens."},
	{ID: goSession.MetricRefreshOwnerMismatch, Name: "gosession_refresh_owner_mismatch_total", Help: "Refresh tokens whose subject differs from the stored owner."},
	{ID: goSession.MetricSessionCreated, Name: "gosession_session_created_total", Help: "Sessions inserted."},
	{ID: goSession.MetricSessionInsertConflict, Name: "gosession_session_insert_conflict_total", Help: "Session inserts rejected because the token already existed."},
	{ID: goSession.MetricSessionsRevoked, Name: "gosession_sessions_revoked_total", Help: "Sessions deleted by owner sweeps."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Single-session logouts."},
	{ID: goSession.MetricLogoutStoreError, Name: "gosession_logout_store_error_total", Help: "Logouts whose store delete failed."},
	{ID: goSession.MetricLogoutAll, Name: "gosession_logout_all_total", Help: "Logout-all operations."},
	{ID: goSession.MetricValidateFailure, Name: "gosession_validate_failure_total", Help: "Rejected access tokens."},
	{ID: goSession.MetricStoreError, Name: "gosession_store_error_total", Help: "Session store failures."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricRefreshLatency, Name: "gosession_refresh_latency_seconds", Help: "Refresh latency."},
	{ID: goSession.MetricValidateLatency, Name: "gosession_validate_latency_seconds", Help: "Access token validation latency."},
}

const (
	AuditDroppedName = "gosession_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."
)

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth
// engine bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, padding with
// zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
