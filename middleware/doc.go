// Package middleware exposes HTTP middleware that authenticates requests with
// access tokens issued by goSession.Engine.
//
// # Guards
//
//   - [Guard] rejects requests without a valid bearer token.
//   - [Optional] attaches the identity when a valid token is present and
//     lets anonymous requests through.
//
// Each guard reads the Authorization header, calls Engine.ValidateAccess, and
// stores the result in the request context for [AuthResultFromContext].
//
// Access validation is stateless. Revoking a session stops refresh but does
// not invalidate access tokens already issued for it.
package middleware
