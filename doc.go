// Package goSession authenticates users and manages refresh-token sessions
// with rotation and reuse detection.
//
// Every successful login or refresh hands out a short-lived access token and
// a long-lived refresh token. A refresh token is single-use: presenting it
// consumes its session and yields a new pair. Presenting a token that has
// already been consumed is treated as theft, and every session of the token's
// owner is revoked before the call returns.
//
// # Architecture boundaries
//
// goSession is the public surface: [Engine], [Builder], [Config] and value
// types. Token minting lives in the jwt package, persistence in session, and
// flow orchestration in internal/flows. HTTP concerns (cookies, status codes)
// belong to httpapi and middleware.
//
// # What this package must NOT do
//
//   - Return an access token without a stored refresh session.
//   - Mutate the session store before a user is authenticated.
//   - Bulk-revoke sessions on logout.
//
// Engine methods are safe for concurrent use after [Builder.Build].
package goSession
