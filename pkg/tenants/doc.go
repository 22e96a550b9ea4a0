// Package tenants manages coworking operators and their memberships.
//
// Tenant creation, suspension, and deletion are platform-level operations;
// everything else is scoped to the actor's own tenant by the evaluator.
// Member role changes are double-bounded: both the member's current role and
// the requested role must be within the actor's assignable range.
package tenants
