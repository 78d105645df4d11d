// Package permission provides the closed role set of the operations console and the
// pure decision functions used for role-based authorization.
//
// # Administrator override
//
// [RoleAdministrator] satisfies every role check. The override is applied in exactly
// one place, [HasRole]; every other decision ([HasAnyRole], [RouteTable.CanAccess])
// is expressed in terms of it so the rule cannot drift between call sites.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. It has no notion of
// sessions, tokens, or HTTP; callers pass role values and route paths.
//
// # What this package must NOT do
//
//   - Access storage, the network, or the clock.
//   - Import opsauth, session, gateway, or middleware.
//   - Panic on unknown role strings.
package permission
