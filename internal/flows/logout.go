package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/session"
)

// LogoutOutcome describes what a logout did.
type LogoutOutcome int

const (
	// LogoutNothing: no token presented.
	LogoutNothing LogoutOutcome = iota
	// LogoutAlreadyGone: token unknown to the store.
	LogoutAlreadyGone
	// LogoutRevoked: the presented session was deleted.
	LogoutRevoked
	// LogoutStoreError: the delete failed; the caller still clears the cookie.
	LogoutStoreError
)

// LogoutResult never represents a caller-facing failure.
type LogoutResult struct {
	Outcome     LogoutOutcome
	ClearCookie bool
	Err         error
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	Sessions SessionDeleter
	Revoker  OwnerRevoker
}

// RunLogout deletes only the presented session. It never sweeps an owner.
func RunLogout(ctx context.Context, token string, deps LogoutDeps) LogoutResult {
	if token == "" {
		return LogoutResult{Outcome: LogoutNothing}
	}

	err := deps.Sessions.DeleteByToken(ctx, token)
	switch {
	case err == nil:
		return LogoutResult{Outcome: LogoutRevoked, ClearCookie: true}
	case errors.Is(err, session.ErrNotFound):
		return LogoutResult{Outcome: LogoutAlreadyGone, ClearCookie: true}
	default:
		return LogoutResult{Outcome: LogoutStoreError, ClearCookie: true, Err: err}
	}
}

// RunLogoutAll revokes every session of userID.
func RunLogoutAll(ctx context.Context, userID string, deps LogoutDeps) (int, error) {
	if userID == "" {
		return 0, errors.New("empty user id")
	}
	return deps.Revoker.DeleteAllByOwner(ctx, userID)
}
