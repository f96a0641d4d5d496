// Package password hashes and verifies user passwords for the user directory.
//
// New hashes are Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Verify] also accepts bcrypt hashes so directories imported from older
// systems keep authenticating; [IsLegacy] flags them for re-hashing.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Log plaintext passwords or hash parameters.
package password
