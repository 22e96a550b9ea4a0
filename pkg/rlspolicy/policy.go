package rlspolicy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/deskhive/deskhive/pkg/authz"
)

// tableBinding describes how a resource maps onto a physical table for row
// level security purposes.
type tableBinding struct {
	Table        string
	TenantColumn string
	OwnerColumn  string // empty when the resource is not owner scoped
}

// resourceBindings maps every resource backed by a physical table. Pseudo
// resources (billing, reports, system_settings) gate API surface only and
// have no rows to protect.
var resourceBindings = map[authz.Resource]tableBinding{
	authz.ResourceTenant:     {Table: "tenants", TenantColumn: "id"},
	authz.ResourceUser:       {Table: "subjects", TenantColumn: "tenant_id"},
	authz.ResourceClient:     {Table: "clients", TenantColumn: "tenant_id"},
	authz.ResourceQuotation:  {Table: "quotations", TenantColumn: "tenant_id"},
	authz.ResourceBooking:    {Table: "bookings", TenantColumn: "tenant_id", OwnerColumn: "owner_id"},
	authz.ResourceInvoice:    {Table: "invoices", TenantColumn: "tenant_id"},
	authz.ResourceSpace:      {Table: "spaces", TenantColumn: "tenant_id"},
	authz.ResourceService:    {Table: "services", TenantColumn: "tenant_id"},
	authz.ResourceMembership: {Table: "memberships", TenantColumn: "tenant_id"},
	authz.ResourceActivity:   {Table: "activities", TenantColumn: "tenant_id"},
	authz.ResourceAccessLog:  {Table: "access_logs", TenantColumn: "tenant_id", OwnerColumn: "subject_id"},
	authz.ResourceInvitation: {Table: "invitations", TenantColumn: "tenant_id"},
}

// actionCommands maps permission actions to SQL commands.
var actionCommands = map[authz.Action]string{
	authz.ActionView:   "SELECT",
	authz.ActionCreate: "INSERT",
	authz.ActionUpdate: "UPDATE",
	authz.ActionDelete: "DELETE",
}

// Policy is one compiled row level security policy.
type Policy struct {
	Name     string
	Table    string
	Command  string
	Resource authz.Resource
	Action   authz.Action

	// TenantBoundRoles may act on any row in their own tenant.
	// OwnerBoundRoles are additionally restricted to rows they own.
	TenantBoundRoles []authz.Role
	OwnerBoundRoles  []authz.Role

	binding tableBinding
}

// ManagedTables returns the tables covered by compiled policies, sorted.
func ManagedTables() []string {
	tables := make([]string, 0, len(resourceBindings))
	for _, b := range resourceBindings {
		tables = append(tables, b.Table)
	}
	sort.Strings(tables)
	return tables
}

// Compile derives the full policy set from a permission table. Policies and
// the in-process evaluator read the same grants, so a change to the table
// lands on both sides or neither.
func Compile(table *authz.PermissionTable) []Policy {
	var policies []Policy

	resources := authz.AllResources()
	for _, resource := range resources {
		binding, ok := resourceBindings[resource]
		if !ok {
			continue
		}
		for _, action := range authz.AllActions() {
			roles := table.RolesAllowed(resource, action)
			policy := compileOne(resource, action, binding, roles)
			if policy == nil {
				continue
			}
			policies = append(policies, *policy)
		}
	}

	sort.Slice(policies, func(i, j int) bool {
		if policies[i].Table != policies[j].Table {
			return policies[i].Table < policies[j].Table
		}
		return policies[i].Command < policies[j].Command
	})
	return policies
}

func compileOne(resource authz.Resource, action authz.Action, binding tableBinding, roles []authz.Role) *Policy {
	var tenantBound, ownerBound []authz.Role
	for _, role := range roles {
		if role == authz.RoleSuperAdmin {
			// SUPER_ADMIN bypasses tenancy entirely and is handled by a
			// dedicated clause in the generated expression.
			continue
		}
		if binding.OwnerColumn != "" && !authz.AtLeast(role, authz.RoleCoworkAdmin) {
			ownerBound = append(ownerBound, role)
		} else {
			tenantBound = append(tenantBound, role)
		}
	}

	if len(tenantBound) == 0 && len(ownerBound) == 0 && !containsSuperAdmin(roles) {
		// No policy at all: RLS denies by default.
		return nil
	}

	return &Policy{
		Name:             fmt.Sprintf("deskhive_%s_%s", binding.Table, strings.ToLower(actionCommands[action])),
		Table:            binding.Table,
		Command:          actionCommands[action],
		Resource:         resource,
		Action:           action,
		TenantBoundRoles: tenantBound,
		OwnerBoundRoles:  ownerBound,
		binding:          binding,
	}
}

func containsSuperAdmin(roles []authz.Role) bool {
	for _, role := range roles {
		if role == authz.RoleSuperAdmin {
			return true
		}
	}
	return false
}

// AllowsRole reports whether the compiled policy admits the role at all,
// before row predicates. Used by the agreement tests to compare the policy
// set against evaluator verdicts.
func (p Policy) AllowsRole(role authz.Role) bool {
	if role == authz.RoleSuperAdmin {
		return true
	}
	for _, r := range p.TenantBoundRoles {
		if r == role {
			return true
		}
	}
	for _, r := range p.OwnerBoundRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Expression renders the policy predicate used for both USING and WITH CHECK.
func (p Policy) Expression() string {
	var clauses []string

	clauses = append(clauses, fmt.Sprintf("current_setting('app.role', true) = '%s'", authz.RoleSuperAdmin))

	tenantMatch := fmt.Sprintf("%s::text = current_setting('app.tenant_id', true)", p.binding.TenantColumn)

	if len(p.TenantBoundRoles) > 0 {
		clauses = append(clauses, fmt.Sprintf(
			"(current_setting('app.role', true) IN (%s) AND %s)",
			quoteRoles(p.TenantBoundRoles), tenantMatch))
	}

	if len(p.OwnerBoundRoles) > 0 {
		clauses = append(clauses, fmt.Sprintf(
			"(current_setting('app.role', true) IN (%s) AND %s AND %s::text = current_setting('app.subject_id', true))",
			quoteRoles(p.OwnerBoundRoles), tenantMatch, p.binding.OwnerColumn))
	}

	return strings.Join(clauses, "\n    OR ")
}

// CreateSQL renders the CREATE POLICY statement.
func (p Policy) CreateSQL() string {
	expr := p.Expression()
	switch p.Command {
	case "INSERT":
		return fmt.Sprintf("CREATE POLICY %s ON %s FOR INSERT WITH CHECK (\n    %s\n)", p.Name, p.Table, expr)
	case "UPDATE":
		return fmt.Sprintf("CREATE POLICY %s ON %s FOR UPDATE USING (\n    %s\n) WITH CHECK (\n    %s\n)", p.Name, p.Table, expr, expr)
	default:
		return fmt.Sprintf("CREATE POLICY %s ON %s FOR %s USING (\n    %s\n)", p.Name, p.Table, p.Command, expr)
	}
}

// DropSQL renders the matching DROP POLICY statement.
func (p Policy) DropSQL() string {
	return fmt.Sprintf("DROP POLICY IF EXISTS %s ON %s", p.Name, p.Table)
}

func quoteRoles(roles []authz.Role) string {
	quoted := make([]string, len(roles))
	for i, role := range roles {
		quoted[i] = "'" + string(role) + "'"
	}
	return strings.Join(quoted, ", ")
}
