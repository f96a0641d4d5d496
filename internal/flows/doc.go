// Package flows contains the pure-function orchestrators behind Engine.Login,
// Engine.Refresh and Engine.Logout.
//
// Each RunX function takes a typed dependency struct and returns a result that
// carries a failure kind instead of a public error. The Engine maps kinds to
// goSession errors, metrics, audit events and log lines.
//
// # Architecture boundaries
//
// Flows drive the session store, token manager and login limiter through the
// small interfaces declared in deps.go. They own none of these resources.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Retry a rotation: a re-driven insert after an ambiguous failure could
//     create two live sessions for one login.
package flows
