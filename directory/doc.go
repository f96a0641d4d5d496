// Package directory provides goSession.UserDirectory implementations: an
// in-memory directory for tests and examples, and a Postgres directory over
// the users table created by the goSessiond migrations.
//
// Both verify passwords with password.Verify and, when given a hasher,
// rewrite legacy or under-cost hashes after a successful check.
package directory
