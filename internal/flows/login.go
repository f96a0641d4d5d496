package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goSession/session"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureLimiter
	LoginFailureUserNotFound
	LoginFailureLookup
	LoginFailureBadCredential
	LoginFailureCredentialCheck
	LoginFailureUnverified
	LoginFailureCookieLookup
	LoginFailureCookieRevoke
	LoginFailureIssue
)

// CookieOutcome records how a refresh cookie presented at login was handled.
type CookieOutcome int

const (
	// CookieNone: no cookie presented.
	CookieNone CookieOutcome = iota
	// CookieOwn: the cookie belonged to the logging-in user; that one session
	// was deleted.
	CookieOwn
	// CookieUnknown: the cookie was not stored; the logging-in user's sessions
	// were swept.
	CookieUnknown
	// CookieForeign: the cookie belonged to another user; that user's sessions
	// were swept.
	CookieForeign
)

// LoginUserRecord is the directory view of a user needed by the login flow.
type LoginUserRecord struct {
	UserID        string
	Email         string
	PasswordHash  string
	EmailVerified bool
}

// LoginRequest is the input to RunLogin.
type LoginRequest struct {
	Email          string
	Password       string
	PresentedToken string
}

// LoginResult carries either the issued pair or failure metadata.
type LoginResult struct {
	Failure       LoginFailureKind
	Err           error
	UserID        string
	Pair          IssuedPair
	Cookie        CookieOutcome
	CookieOwnerID string
	Revoked       int
	ClearCookie   bool
}

type LoginRateLimiter interface {
	CheckLogin(ctx context.Context, identifier, ip string) error
	IncrementLogin(ctx context.Context, identifier, ip string) error
	ResetLogin(ctx context.Context, identifier, ip string) error
}

type LoginSessionStore interface {
	SessionReader
	SessionDeleter
	OwnerRevoker
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	FindUser         func(ctx context.Context, email string) (LoginUserRecord, error)
	VerifyCredential func(ctx context.Context, user LoginUserRecord, password string) (bool, error)
	UserNotFound     error
	RequireVerified  bool
	RateLimiter      LoginRateLimiter
	RateLimited      error
	ClientIP         func(context.Context) string
	Warn             func(msg string, args ...any)
	Sessions         LoginSessionStore
	Issue            IssueDeps
}

// RunLogin authenticates req and issues a fresh pair.
//
// Nothing in the session store changes until the user has been
// authenticated; a failed password never touches sessions.
func RunLogin(ctx context.Context, req LoginRequest, deps LoginDeps) LoginResult {
	identifier := strings.ToLower(strings.TrimSpace(req.Email))
	ip := ""
	if deps.ClientIP != nil {
		ip = deps.ClientIP(ctx)
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckLogin(ctx, identifier, ip); err != nil {
			if deps.RateLimited != nil && errors.Is(err, deps.RateLimited) {
				return LoginResult{Failure: LoginFailureRateLimited, Err: err}
			}
			return LoginResult{Failure: LoginFailureLimiter, Err: err}
		}
	}

	if identifier == "" || req.Password == "" {
		return LoginResult{Failure: LoginFailureBadCredential}
	}

	user, err := deps.FindUser(ctx, identifier)
	if err != nil {
		if deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound) {
			recordFailedAttempt(ctx, deps, identifier, ip)
			return LoginResult{Failure: LoginFailureUserNotFound, Err: err}
		}
		return LoginResult{Failure: LoginFailureLookup, Err: err}
	}

	ok, err := deps.VerifyCredential(ctx, user, req.Password)
	if err != nil {
		return LoginResult{Failure: LoginFailureCredentialCheck, Err: err, UserID: user.UserID}
	}
	if !ok {
		recordFailedAttempt(ctx, deps, identifier, ip)
		return LoginResult{Failure: LoginFailureBadCredential, UserID: user.UserID}
	}

	if deps.RequireVerified && !user.EmailVerified {
		return LoginResult{Failure: LoginFailureUnverified, UserID: user.UserID}
	}

	result := LoginResult{UserID: user.UserID}

	if req.PresentedToken != "" {
		result.ClearCookie = true
		if failed := handlePresentedCookie(ctx, req.PresentedToken, user.UserID, deps, &result); failed {
			return result
		}
	}

	pair, err := runIssue(ctx, user.UserID, deps.Issue)
	if err != nil {
		result.Failure = LoginFailureIssue
		result.Err = err
		return result
	}
	result.Pair = pair

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.ResetLogin(ctx, identifier, ip); err != nil && deps.Warn != nil {
			deps.Warn("goSession: login limiter reset failed", "error", err)
		}
	}

	return result
}

// handlePresentedCookie retires whatever session the presented cookie names
// and reports whether the login must stop.
func handlePresentedCookie(ctx context.Context, token, userID string, deps LoginDeps, result *LoginResult) bool {
	sess, err := deps.Sessions.Get(ctx, token)
	switch {
	case errors.Is(err, session.ErrNotFound):
		result.Cookie = CookieUnknown
		return sweepOwner(ctx, userID, deps, result)
	case err != nil:
		result.Failure = LoginFailureCookieLookup
		result.Err = err
		return true
	case sess.OwnerID != userID:
		result.Cookie = CookieForeign
		result.CookieOwnerID = sess.OwnerID
		return sweepOwner(ctx, sess.OwnerID, deps, result)
	}

	result.Cookie = CookieOwn
	result.CookieOwnerID = userID
	if err := deps.Sessions.DeleteByToken(ctx, token); err != nil && !errors.Is(err, session.ErrNotFound) {
		result.Failure = LoginFailureCookieRevoke
		result.Err = err
		return true
	}
	return false
}

func sweepOwner(ctx context.Context, ownerID string, deps LoginDeps, result *LoginResult) bool {
	revoked, err := deps.Sessions.DeleteAllByOwner(ctx, ownerID)
	if err != nil {
		result.Failure = LoginFailureCookieRevoke
		result.Err = err
		return true
	}
	result.Revoked = revoked
	return false
}

func recordFailedAttempt(ctx context.Context, deps LoginDeps, identifier, ip string) {
	if deps.RateLimiter == nil {
		return
	}
	if err := deps.RateLimiter.IncrementLogin(ctx, identifier, ip); err != nil &&
		!(deps.RateLimited != nil && errors.Is(err, deps.RateLimited)) && deps.Warn != nil {
		deps.Warn("goSession: login limiter increment failed", "error", err)
	}
}
