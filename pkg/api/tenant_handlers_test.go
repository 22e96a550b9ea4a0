package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhive/deskhive/pkg/authz"
	"github.com/deskhive/deskhive/pkg/identity"
	"github.com/deskhive/deskhive/pkg/tenants"
)

func TestCreateTenant_SuperAdmin(t *testing.T) {
	server, _ := newTestServer(t, newRecord(1, authz.RoleSuperAdmin, nil))

	rec := doJSON(t, server, "POST", "/api/v1/tenants", CreateTenantRequest{Name: "Hub Central", Slug: "hub-central"})

	require.Equal(t, http.StatusCreated, rec.Code)
	var tenant tenants.Tenant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tenant))
	assert.Equal(t, "Hub Central", tenant.Name)
	assert.NotZero(t, tenant.ID)
}

func TestCreateTenant_DeniedForTenantAdmin(t *testing.T) {
	server, _ := newTestServer(t, newRecord(1, authz.RoleCoworkAdmin, int64ptr(1)))

	rec := doJSON(t, server, "POST", "/api/v1/tenants", CreateTenantRequest{Name: "Rogue Hub", Slug: "rogue"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateTenant_MissingName(t *testing.T) {
	server, _ := newTestServer(t, newRecord(1, authz.RoleSuperAdmin, nil))

	rec := doJSON(t, server, "POST", "/api/v1/tenants", CreateTenantRequest{Slug: "anon"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTenant_ScopedToOwnTenant(t *testing.T) {
	admin := newRecord(1, authz.RoleSuperAdmin, nil)
	server, db := newTestServer(t, admin)
	created := seedTenant(t, db, "Hub One", "hub-one")

	member := newRecord(2, authz.RoleCoworkAdmin, int64ptr(created))
	server = NewServer(Dependencies{
		Authenticator: asSubject(member),
		Tenants:       server.deps.Tenants,
		Logger:        testLogger(),
	})

	rec := doJSON(t, server, "GET", "/api/v1/tenants/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, "GET", "/api/v1/tenants/99", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSuspendTenant_SuperAdminOnly(t *testing.T) {
	server, db := newTestServer(t, newRecord(1, authz.RoleSuperAdmin, nil))
	id := seedTenant(t, db, "Hub Two", "hub-two")

	rec := doJSON(t, server, "POST", "/api/v1/tenants/1/suspend", SuspendTenantRequest{Suspended: true})
	require.Equal(t, http.StatusNoContent, rec.Code)

	admin := newRecord(2, authz.RoleCoworkAdmin, int64ptr(id))
	server = NewServer(Dependencies{
		Authenticator: asSubject(admin),
		Tenants:       server.deps.Tenants,
		Logger:        testLogger(),
	})
	rec = doJSON(t, server, "POST", "/api/v1/tenants/1/suspend", SuspendTenantRequest{Suspended: false})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSetMemberRole_EscalationRejected(t *testing.T) {
	admin := newRecord(10, authz.RoleCoworkAdmin, int64ptr(1))
	server, db := newTestServer(t, admin)
	seedTenant(t, db, "Hub Three", "hub-three")
	member := newRecord(20, authz.RoleEndUser, int64ptr(1))
	seedSubject(t, db, member)

	rec := doJSON(t, server, "PUT", "/api/v1/members/20/role", SetMemberRoleRequest{Role: authz.RoleCoworkUser})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// COWORK_ADMIN may not mint another COWORK_ADMIN.
	rec = doJSON(t, server, "PUT", "/api/v1/members/20/role", SetMemberRoleRequest{Role: authz.RoleCoworkAdmin})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListMembers(t *testing.T) {
	admin := newRecord(10, authz.RoleCoworkAdmin, int64ptr(1))
	server, db := newTestServer(t, admin)
	seedTenant(t, db, "Hub Four", "hub-four")
	seedSubject(t, db, admin)
	seedSubject(t, db, newRecord(11, authz.RoleEndUser, int64ptr(1)))

	rec := doJSON(t, server, "GET", "/api/v1/tenants/1/members", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var members []*identity.SubjectRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &members))
	assert.Len(t, members, 2)
}

func TestDeactivateMember_CrossTenantDenied(t *testing.T) {
	admin := newRecord(10, authz.RoleCoworkAdmin, int64ptr(1))
	server, db := newTestServer(t, admin)
	seedTenant(t, db, "Hub Five", "hub-five")
	outsider := newRecord(30, authz.RoleEndUser, int64ptr(2))
	seedSubject(t, db, outsider)

	rec := doJSON(t, server, "DELETE", "/api/v1/members/30", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
