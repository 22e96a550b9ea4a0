package authz

// Role represents an account role in the platform
type Role string

const (
	RoleEndUser     Role = "END_USER"     // Member of a client company, books for themselves
	RoleClientAdmin Role = "CLIENT_ADMIN" // Administers a client company inside a cowork
	RoleCoworkUser  Role = "COWORK_USER"  // Cowork staff member
	RoleCoworkAdmin Role = "COWORK_ADMIN" // Administers a single cowork (tenant)
	RoleSuperAdmin  Role = "SUPER_ADMIN"  // Platform operator, crosses tenant boundaries
)

// roleRanks orders roles by privilege. Rank is monotonic: every capability
// of rank N contains rank N-1 within the same tenant scope, and only
// SUPER_ADMIN crosses tenants.
var roleRanks = map[Role]int{
	RoleEndUser:     1,
	RoleClientAdmin: 2,
	RoleCoworkUser:  3,
	RoleCoworkAdmin: 4,
	RoleSuperAdmin:  5,
}

// AllRoles returns every role in ascending rank order.
func AllRoles() []Role {
	return []Role{RoleEndUser, RoleClientAdmin, RoleCoworkUser, RoleCoworkAdmin, RoleSuperAdmin}
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the numeric privilege rank of a role. Unknown roles rank 0,
// below every valid role.
func Rank(r Role) int {
	return roleRanks[r]
}

// AtLeast reports whether role meets a minimum role requirement.
func AtLeast(role, min Role) bool {
	return Rank(role) >= Rank(min)
}

// assignableRoles maps an inviter role to the set of roles it may grant.
// A role may only be granted by a subject that outranks it; SUPER_ADMIN and
// COWORK_ADMIN are grantable by SUPER_ADMIN alone.
var assignableRoles = map[Role][]Role{
	RoleSuperAdmin:  {RoleEndUser, RoleClientAdmin, RoleCoworkUser, RoleCoworkAdmin, RoleSuperAdmin},
	RoleCoworkAdmin: {RoleEndUser, RoleClientAdmin, RoleCoworkUser},
	RoleCoworkUser:  {},
	RoleClientAdmin: {RoleEndUser},
	RoleEndUser:     {},
}

// AssignableRoles returns the roles the subject may grant through
// invitations or membership role changes. The returned slice is a copy.
func AssignableRoles(s Subject) []Role {
	roles := assignableRoles[s.Role]
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// CanAssign reports whether the subject may grant the target role.
func CanAssign(s Subject, target Role) bool {
	for _, r := range assignableRoles[s.Role] {
		if r == target {
			return true
		}
	}
	return false
}
