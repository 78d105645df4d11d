// Package token holds the offline bearer-token validator used before a persisted
// session is trusted, and an access-token issuer for the local stub API.
//
// # Validation
//
// [Validator] never contacts the server. It answers one question: is this token
// present, correctly shaped, and not past its expiry? Anything it cannot parse is
// invalid. Server-side revocation is out of its reach; callers reconfirm with the
// authentication API after a token passes.
//
// # What this package must NOT do
//
//   - Perform network or storage I/O.
//   - Treat an unverified JWT claim as proof of identity (only exp is read).
package token
