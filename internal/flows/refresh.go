package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	// RefreshFailureMissing: no token presented.
	RefreshFailureMissing
	// RefreshFailureTake: the store could not consume the token.
	RefreshFailureTake
	// RefreshFailureReuse: a verified token that is no longer stored was
	// replayed. Every session of its subject has been revoked.
	RefreshFailureReuse
	// RefreshFailureUnknownToken: not stored and either not verifiable or
	// already past its exp. Nothing revoked.
	RefreshFailureUnknownToken
	// RefreshFailureInvalid: stored, consumed, but failed verification.
	RefreshFailureInvalid
	// RefreshFailureOwnerMismatch: stored under a different owner than its
	// subject claim. The recorded owner's sessions have been revoked.
	RefreshFailureOwnerMismatch
	// RefreshFailureRevoke: a revocation sweep failed, so Forbidden cannot be
	// reported truthfully.
	RefreshFailureRevoke
	// RefreshFailureIssue: minting or storing the replacement failed.
	RefreshFailureIssue
)

// RefreshResult carries either the rotated pair or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	UserID  string
	Revoked int
	Pair    IssuedPair
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Taker    session.Taker
	Verifier RefreshVerifier
	Revoker  OwnerRevoker
	Issue    IssueDeps
	// Now is the clock used to tell a replay from an expired token. Nil
	// means time.Now.
	Now func() time.Time
}

// RunRefresh consumes token and rotates it into a new pair.
//
// The token is taken (deleted and returned in one atomic step) before it is
// verified, so of two concurrent calls presenting the same token only one can
// reach issuance; the other lands in the reuse branch.
func RunRefresh(ctx context.Context, token string, deps RefreshDeps) RefreshResult {
	if token == "" {
		return RefreshResult{Failure: RefreshFailureMissing}
	}

	sess, err := deps.Taker.Take(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return runReuse(ctx, token, deps)
		}
		return RefreshResult{Failure: RefreshFailureTake, Err: err}
	}

	claims, err := deps.Verifier.VerifyRefresh(token)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureInvalid,
			Err:     err,
			UserID:  sess.OwnerID,
		}
	}

	if claims.Subject != sess.OwnerID {
		revoked, revokeErr := deps.Revoker.DeleteAllByOwner(ctx, sess.OwnerID)
		if revokeErr != nil {
			return RefreshResult{Failure: RefreshFailureRevoke, Err: revokeErr, UserID: sess.OwnerID}
		}
		return RefreshResult{
			Failure: RefreshFailureOwnerMismatch,
			UserID:  sess.OwnerID,
			Revoked: revoked,
		}
	}

	pair, err := runIssue(ctx, sess.OwnerID, deps.Issue)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, UserID: sess.OwnerID}
	}

	return RefreshResult{
		Failure: RefreshFailureNone,
		UserID:  sess.OwnerID,
		Pair:    pair,
	}
}

// runReuse handles a token the store no longer knows. The sweep completes
// before the result is returned so a client cannot race a second request
// against an in-flight revocation.
func runReuse(ctx context.Context, token string, deps RefreshDeps) RefreshResult {
	claims, err := deps.Verifier.VerifyRefresh(token)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureUnknownToken, Err: err}
	}

	// Past exp but inside verifier leeway: a store may already have evicted
	// the row, so absence says nothing about reuse.
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	if !now().Before(claims.Expiry()) {
		return RefreshResult{
			Failure: RefreshFailureUnknownToken,
			Err:     fmt.Errorf("%w: expired before presentation", jwt.ErrExpiredToken),
			UserID:  claims.Subject,
		}
	}

	revoked, err := deps.Revoker.DeleteAllByOwner(ctx, claims.Subject)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureRevoke, Err: err, UserID: claims.Subject}
	}

	return RefreshResult{
		Failure: RefreshFailureReuse,
		UserID:  claims.Subject,
		Revoked: revoked,
	}
}
