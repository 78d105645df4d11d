// Package password hashes and verifies account passwords with Argon2id for the
// local stub authentication API.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The package never stores or logs plaintext; callers supply it and receive hashes.
package password
