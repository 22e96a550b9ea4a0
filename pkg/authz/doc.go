// Package authz is the authorization core of Deskhive.
//
// # Overview
//
// Every access decision in the platform flows through one function,
// Evaluator.CanAccess, which composes three pieces:
//
//   - the role hierarchy: a total order over the five platform roles
//     (END_USER < CLIENT_ADMIN < COWORK_USER < COWORK_ADMIN < SUPER_ADMIN)
//   - the permission table: a data-driven (role, resource, action) lookup
//     with default deny
//   - the tenant and ownership predicates: SUPER_ADMIN crosses tenants,
//     everyone else is pinned to their own cowork; bookings and access logs
//     are additionally visible only to their owning user or to admins
//
// The evaluator is pure and stateless: deny is a return value, not an
// error, and identical inputs always produce identical decisions. Handlers
// must never compare role strings directly; route-level minimums go
// through AtLeast, everything else through CanAccess.
//
// # Database mirror
//
// The same permission table compiles into PostgreSQL row-level-security
// policies (see pkg/rlspolicy). RolesAllowed exists for that compiler so
// the application verdict and the database predicate cannot drift
// independently; tests assert they agree over a role x tenant x ownership
// cross-product.
//
// # Usage Example
//
//	eval := authz.NewEvaluator(nil)
//	d := eval.CanAccess(subject, authz.TenantResource(authz.ResourceClient, tenantID), authz.ActionUpdate)
//	if !d.Allowed {
//		// log d.Reason server-side, return a generic 403
//	}
//
// # Related Packages
//
//   - pkg/identity: resolves the Subject passed into every check
//   - pkg/rlspolicy: compiles the table into row-level-security policies
//   - pkg/invites: enforces AssignableRoles on invitation creation
package authz
