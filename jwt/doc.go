// Package jwt mints and verifies the two signed token kinds used by goSession:
// short-lived access tokens and long-lived refresh tokens.
//
// Both kinds are HS256 JWTs carrying only a subject, a random token id (jti),
// a kind marker and the registered time claims. Each kind is signed with its
// own secret, so an access token can never verify as a refresh token.
//
// # Architecture boundaries
//
// The Manager is stateless. It never touches the session store and never
// decides what a verification failure means for a session; the Engine does.
//
// # What this package must NOT do
//
//   - Persist or cache tokens.
//   - Read secrets from process-wide state.
package jwt
