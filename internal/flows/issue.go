package flows

import (
	"context"
	"fmt"
	"time"
)

// IssueDeps mints a pair and persists its refresh session.
type IssueDeps struct {
	Tokens   TokenIssuer
	Sessions SessionInserter
}

// IssuedPair is a freshly minted access/refresh pair whose refresh session is
// already stored.
type IssuedPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// runIssue returns a pair only when the refresh session insert succeeded.
// Insert errors, including session.ErrConflict, come back unchanged so the
// caller can tell an invariant violation from an outage.
func runIssue(ctx context.Context, userID string, deps IssueDeps) (IssuedPair, error) {
	access, accessExp, err := deps.Tokens.IssueAccess(userID)
	if err != nil {
		return IssuedPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshExp, err := deps.Tokens.IssueRefresh(userID)
	if err != nil {
		return IssuedPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	if _, err := deps.Sessions.Insert(ctx, refresh, userID, refreshExp); err != nil {
		return IssuedPair{}, err
	}

	return IssuedPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
