package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankOrdering(t *testing.T) {
	roles := AllRoles()
	for i := 1; i < len(roles); i++ {
		assert.Greater(t, Rank(roles[i]), Rank(roles[i-1]),
			"%s should outrank %s", roles[i], roles[i-1])
	}
}

func TestRankUnknownRole(t *testing.T) {
	assert.Equal(t, 0, Rank(Role("MANAGER")))
	assert.False(t, Role("MANAGER").Valid())
	assert.False(t, AtLeast(Role("MANAGER"), RoleEndUser))
}

func TestAtLeast(t *testing.T) {
	tests := []struct {
		role Role
		min  Role
		want bool
	}{
		{RoleSuperAdmin, RoleCoworkAdmin, true},
		{RoleCoworkAdmin, RoleCoworkAdmin, true},
		{RoleCoworkUser, RoleCoworkAdmin, false},
		{RoleClientAdmin, RoleEndUser, true},
		{RoleEndUser, RoleClientAdmin, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AtLeast(tt.role, tt.min), "AtLeast(%s, %s)", tt.role, tt.min)
	}
}

func TestAssignableRolesNeverEscalate(t *testing.T) {
	for _, inviter := range AllRoles() {
		subject := Subject{ID: 1, Role: inviter}
		for _, target := range AssignableRoles(subject) {
			if inviter == RoleSuperAdmin {
				continue
			}
			assert.NotEqual(t, RoleSuperAdmin, target,
				"%s must never assign SUPER_ADMIN", inviter)
			assert.NotEqual(t, RoleCoworkAdmin, target,
				"%s must never assign COWORK_ADMIN", inviter)
			assert.Less(t, Rank(target), Rank(inviter),
				"%s assigned %s without outranking it", inviter, target)
		}
	}
}

func TestAssignableRolesCoverage(t *testing.T) {
	super := Subject{ID: 1, Role: RoleSuperAdmin}
	assert.ElementsMatch(t, AllRoles(), AssignableRoles(super))

	coworkAdmin := Subject{ID: 2, Role: RoleCoworkAdmin}
	assert.ElementsMatch(t,
		[]Role{RoleEndUser, RoleClientAdmin, RoleCoworkUser},
		AssignableRoles(coworkAdmin))

	clientAdmin := Subject{ID: 3, Role: RoleClientAdmin}
	assert.Equal(t, []Role{RoleEndUser}, AssignableRoles(clientAdmin))

	assert.Empty(t, AssignableRoles(Subject{ID: 4, Role: RoleCoworkUser}))
	assert.Empty(t, AssignableRoles(Subject{ID: 5, Role: RoleEndUser}))
}

func TestCanAssign(t *testing.T) {
	assert.True(t, CanAssign(Subject{Role: RoleSuperAdmin}, RoleSuperAdmin))
	assert.True(t, CanAssign(Subject{Role: RoleCoworkAdmin}, RoleEndUser))
	assert.False(t, CanAssign(Subject{Role: RoleCoworkAdmin}, RoleCoworkAdmin))
	assert.False(t, CanAssign(Subject{Role: RoleCoworkAdmin}, RoleSuperAdmin))
	assert.False(t, CanAssign(Subject{Role: RoleClientAdmin}, RoleCoworkUser))
	assert.False(t, CanAssign(Subject{Role: RoleEndUser}, RoleEndUser))
}

func TestAssignableRolesReturnsCopy(t *testing.T) {
	s := Subject{Role: RoleCoworkAdmin}
	first := AssignableRoles(s)
	first[0] = RoleSuperAdmin
	assert.NotContains(t, AssignableRoles(s), RoleSuperAdmin)
}
