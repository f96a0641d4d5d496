package goSession

import "errors"

var (
	// ErrUnauthorized is returned when the caller could not be authenticated:
	// unknown user, wrong password, unverified email, or no refresh token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a refresh token was replayed, failed
	// verification, or did not match its recorded owner. When reuse is the
	// cause, the owner's sessions have already been revoked.
	ErrForbidden = errors.New("forbidden")
	// ErrInternal wraps store, codec and directory failures.
	ErrInternal = errors.New("internal error")

	// ErrAccountUnverified is wrapped by ErrUnauthorized when login is refused
	// for an unverified email address.
	ErrAccountUnverified = errors.New("account unverified")
	// ErrLoginRateLimited is wrapped by ErrUnauthorized when the login
	// throttle rejects the attempt.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrSessionRetired is wrapped into a failed Login or Refresh when the
	// presented refresh token was already retired before the failure. The
	// caller must still clear its refresh cookie.
	ErrSessionRetired = errors.New("presented session retired")
	// ErrUserNotFound is returned by a UserDirectory for unknown emails.
	ErrUserNotFound = errors.New("user not found")

	ErrEngineNotReady = errors.New("engine not initialized")
	ErrInvalidConfig  = errors.New("invalid config")
)
