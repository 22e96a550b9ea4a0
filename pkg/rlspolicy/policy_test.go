package rlspolicy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhive/deskhive/pkg/authz"
)

func findPolicy(t *testing.T, policies []Policy, resource authz.Resource, action authz.Action) Policy {
	t.Helper()
	for _, p := range policies {
		if p.Resource == resource && p.Action == action {
			return p
		}
	}
	t.Fatalf("no policy compiled for %s/%s", resource, action)
	return Policy{}
}

// The evaluator and the compiled policies read the same grants. This test
// pins the agreement: for every table-backed resource, action, and role, the
// database admits the role exactly when the in-process evaluator does.
func TestCompile_AgreesWithEvaluator(t *testing.T) {
	table := authz.DefaultTable()
	policies := Compile(table)

	byKey := make(map[string]Policy)
	for _, p := range policies {
		byKey[string(p.Resource)+"/"+string(p.Action)] = p
	}

	for resource := range resourceBindings {
		for _, action := range authz.AllActions() {
			policy, compiled := byKey[string(resource)+"/"+string(action)]
			for _, role := range authz.AllRoles() {
				appAllows := table.Allows(role, resource, action)
				dbAllows := compiled && policy.AllowsRole(role)
				assert.Equal(t, appAllows, dbAllows,
					"app/db disagreement for role=%s resource=%s action=%s", role, resource, action)
			}
		}
	}
}

func TestCompile_SkipsPseudoResources(t *testing.T) {
	policies := Compile(authz.DefaultTable())
	for _, p := range policies {
		assert.NotEqual(t, authz.ResourceBilling, p.Resource)
		assert.NotEqual(t, authz.ResourceReports, p.Resource)
		assert.NotEqual(t, authz.ResourceSystemSettings, p.Resource)
	}
}

func TestCompile_OwnerScopeSplit(t *testing.T) {
	policies := Compile(authz.DefaultTable())

	p := findPolicy(t, policies, authz.ResourceBooking, authz.ActionView)

	assert.Contains(t, p.OwnerBoundRoles, authz.RoleEndUser)
	assert.Contains(t, p.OwnerBoundRoles, authz.RoleClientAdmin)
	assert.Contains(t, p.OwnerBoundRoles, authz.RoleCoworkUser)
	assert.Contains(t, p.TenantBoundRoles, authz.RoleCoworkAdmin)
	assert.NotContains(t, p.TenantBoundRoles, authz.RoleSuperAdmin,
		"SUPER_ADMIN is handled by its own clause, not role lists")
}

func TestCompile_TenantResourceUsesIDColumn(t *testing.T) {
	policies := Compile(authz.DefaultTable())

	p := findPolicy(t, policies, authz.ResourceTenant, authz.ActionView)
	assert.Contains(t, p.Expression(), "id::text = current_setting('app.tenant_id', true)")
	assert.NotContains(t, p.Expression(), "tenant_id::text")
}

func TestPolicy_CreateSQL(t *testing.T) {
	policies := Compile(authz.DefaultTable())

	t.Run("select policy uses USING", func(t *testing.T) {
		p := findPolicy(t, policies, authz.ResourceClient, authz.ActionView)
		sql := p.CreateSQL()
		assert.True(t, strings.HasPrefix(sql, "CREATE POLICY deskhive_clients_select ON clients FOR SELECT USING ("))
		assert.NotContains(t, sql, "WITH CHECK")
	})

	t.Run("insert policy uses WITH CHECK", func(t *testing.T) {
		p := findPolicy(t, policies, authz.ResourceClient, authz.ActionCreate)
		sql := p.CreateSQL()
		assert.Contains(t, sql, "FOR INSERT WITH CHECK (")
		assert.NotContains(t, sql, "USING")
	})

	t.Run("update policy carries both clauses", func(t *testing.T) {
		p := findPolicy(t, policies, authz.ResourceClient, authz.ActionUpdate)
		sql := p.CreateSQL()
		assert.Contains(t, sql, "FOR UPDATE USING (")
		assert.Contains(t, sql, "WITH CHECK (")
	})

	t.Run("every policy admits SUPER_ADMIN", func(t *testing.T) {
		for _, p := range policies {
			assert.Contains(t, p.Expression(),
				"current_setting('app.role', true) = 'SUPER_ADMIN'",
				"policy %s", p.Name)
		}
	})
}

func TestPolicy_OwnerClauseColumns(t *testing.T) {
	policies := Compile(authz.DefaultTable())

	booking := findPolicy(t, policies, authz.ResourceBooking, authz.ActionView)
	assert.Contains(t, booking.Expression(), "owner_id::text = current_setting('app.subject_id', true)")

	accessLog := findPolicy(t, policies, authz.ResourceAccessLog, authz.ActionView)
	assert.Contains(t, accessLog.Expression(), "subject_id::text = current_setting('app.subject_id', true)")
}

func TestCompile_SuperAdminOnlyGrantStillCompiles(t *testing.T) {
	policies := Compile(authz.DefaultTable())

	// Tenant delete is reserved to SUPER_ADMIN; a policy must still exist so
	// platform operators can act, while every tenant role is denied.
	p := findPolicy(t, policies, authz.ResourceTenant, authz.ActionDelete)
	assert.Empty(t, p.TenantBoundRoles)
	assert.Empty(t, p.OwnerBoundRoles)
	for _, role := range authz.AllRoles() {
		if role == authz.RoleSuperAdmin {
			assert.True(t, p.AllowsRole(role))
			continue
		}
		assert.False(t, p.AllowsRole(role), "role %s", role)
	}
}

func TestManagedTables(t *testing.T) {
	tables := ManagedTables()
	require.Contains(t, tables, "bookings")
	require.Contains(t, tables, "invitations")
	require.Contains(t, tables, "tenants")
	assert.IsIncreasing(t, tables)
}
