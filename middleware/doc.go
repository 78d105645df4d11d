// Package middleware guards HTTP handlers with the console's role rules.
//
// # Identity
//
// Guards read the caller from the request context ([opsauth.UserFromContext]).
// Two adapters put it there:
//
//   - [SessionUser] uses the user logged in on a [opsauth.Manager].
//   - [BearerUser] resolves an Authorization: Bearer token against the
//     authentication API.
//
// # Guards
//
// There is one guard, [Guard], parameterised by a [Check]. The stock checks are
// [Authenticated], [Roles] and [Route]. A request without a user gets 401, a
// user failing the check gets 403, unless [WithFallback] replaces both.
//
// [EchoGuard] applies the same rules to echo handlers.
package middleware
