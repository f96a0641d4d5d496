// Package rate implements the Redis-backed login throttle.
//
// # Window semantics
//
// Fixed-window counters. A failed attempt runs INCR and TTL in one
// transaction and starts the window with EXPIRE when the key has none.
// Keys:
//   - <prefix>:ll:<identifier>: failed logins per account identifier
//   - <prefix>:li:<ip>: failed logins per client IP
//
// # What this package must NOT do
//
//   - Decide what a throttled login means for sessions.
//   - Be imported outside the goSession module.
package rate
