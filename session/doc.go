// Package session persists refresh-token sessions.
//
// A [Session] binds one live refresh token to the user that owns it. Every
// backend satisfies the same four-operation [Store] contract (get, insert,
// delete-by-token, delete-all-by-owner) and, where the backend allows it, the
// atomic [Taker] extension used by rotation. [LockingTaker] supplies Take for
// stores that cannot delete-and-return in one step.
//
// Rows are keyed by [HashToken] of the token so the store never holds live
// bearer credentials.
//
// # Backends
//
//   - [RedisStore]: token rows with PX expiry plus a per-owner index set.
//     Insert and bulk delete run as Lua scripts; Take uses GETDEL.
//   - [PostgresStore]: one table with a unique token index and an owner index.
//     Take is DELETE ... RETURNING.
//   - [MemoryStore]: process-local maps for tests and single-node use.
//
// # What this package must NOT do
//
//   - Import goSession or jwt (no upward imports).
//   - Interpret tokens or decide what a missing row means.
package session
