// Package session provides durable persistence of the console's authenticated session:
// the bearer token with its declared expiry, and the user record it belongs to.
//
// # Storage layout
//
// A persisted session is exactly two entries: the token entry (a compact, versioned
// binary encoding of token and expiry, see [EncodeToken]) and the user entry (JSON).
// Every backend writes both entries together and clears both together; a store that
// finds only one of them reports [ErrCorrupt] so the caller can discard the pair.
//
// # Backends
//
//   - [MemoryStore] keeps the pair in process memory.
//   - [FileStore] keeps the pair in one file, serialised by an OS file lock and
//     replaced by atomic rename.
//   - [RedisStore] keeps the pair in two keys written in one MULTI/EXEC.
//
// # What this package must NOT do
//
//   - Decide whether a token is still usable (that belongs to the token package).
//   - Contact the authentication API.
//   - Import opsauth, gateway, or middleware.
package session
