// Package invites manages the invitation lifecycle for tenant onboarding.
//
// # Overview
//
// Invitations are the only path by which a subject gains a role in a tenant.
// An invitation starts PENDING and moves exactly once, to ACCEPTED, REVOKED,
// or EXPIRED. Transitions are conditional updates keyed on the PENDING
// status, so concurrent accept and revoke can never both succeed.
//
// The invited role is bounded by authz.AssignableRoles of the inviter, and
// the tenant is always the inviter's own (SUPER_ADMIN excepted). Requesting
// a role outside those bounds fails loudly with ErrInvalidRoleAssignment.
//
// # Usage Example
//
//	inv, err := service.Create(ctx, inviter, 0, "new.user@example.com", authz.RoleCoworkUser)
//	accepted, err := service.Accept(ctx, signedInSubject, token)
//
// # Related Packages
//
//   - pkg/authz: assignability bounds and permission checks
//   - pkg/identity: role assignment applied on accept
package invites
