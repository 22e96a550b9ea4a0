package authz

import "errors"

// Sentinel errors for the authorization layer. An ordinary deny from the
// evaluator is a Decision value, not an error; these are returned by the
// surrounding services when an operation cannot proceed.
var (
	// ErrUnauthenticated is returned when no verifiable subject exists for
	// the request.
	ErrUnauthenticated = errors.New("authz: unauthenticated")

	// ErrNotAuthorized is returned when a verified subject is denied by
	// policy. User-visible messages stay generic; rule detail is logged
	// server-side only.
	ErrNotAuthorized = errors.New("authz: not authorized")

	// ErrInvalidRoleAssignment is returned when an invitation or role change
	// requests a role the granting subject cannot assign.
	ErrInvalidRoleAssignment = errors.New("authz: invalid role assignment")

	// ErrTenantMismatch is returned when a request targets a resource outside
	// the subject's tenant without SUPER_ADMIN.
	ErrTenantMismatch = errors.New("authz: tenant mismatch")

	// ErrInvalidStateTransition is returned when an invitation accept or
	// revoke hits a non-PENDING invitation.
	ErrInvalidStateTransition = errors.New("authz: invalid state transition")
)
