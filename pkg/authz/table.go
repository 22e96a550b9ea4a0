package authz

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Grant is a set of actions a role holds on one resource type.
type Grant struct {
	Resource Resource `yaml:"resource"`
	Actions  []Action `yaml:"actions"`
}

// PermissionTable answers role/resource/action lookups. The table is data,
// not code: the built-in grants below are the authoritative policy, and
// deployments may override individual role/resource pairs from a YAML file.
// Lookups are total: anything not granted is denied.
type PermissionTable struct {
	grants map[Role]map[Resource]map[Action]bool
}

func crud() []Action {
	return []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete}
}

// defaultGrants is the built-in permission matrix. SUPER_ADMIN is handled
// separately in Allows and holds every action on every resource.
var defaultGrants = map[Role][]Grant{
	RoleCoworkAdmin: {
		{ResourceTenant, []Action{ActionView, ActionUpdate}},
		{ResourceUser, crud()},
		{ResourceClient, crud()},
		{ResourceQuotation, crud()},
		{ResourceBooking, crud()},
		{ResourceInvoice, crud()},
		{ResourceSpace, crud()},
		{ResourceService, crud()},
		{ResourceMembership, crud()},
		{ResourceActivity, crud()},
		{ResourceAccessLog, []Action{ActionView}},
		{ResourceInvitation, crud()},
		{ResourceBilling, []Action{ActionView, ActionUpdate}},
		{ResourceReports, []Action{ActionView}},
	},
	RoleCoworkUser: {
		{ResourceTenant, []Action{ActionView}},
		{ResourceUser, []Action{ActionView}},
		{ResourceClient, []Action{ActionView, ActionCreate, ActionUpdate}},
		{ResourceQuotation, []Action{ActionView, ActionCreate, ActionUpdate}},
		{ResourceBooking, []Action{ActionView, ActionCreate, ActionUpdate}},
		{ResourceInvoice, []Action{ActionView}},
		{ResourceSpace, []Action{ActionView}},
		{ResourceService, []Action{ActionView}},
		{ResourceMembership, []Action{ActionView}},
		{ResourceActivity, []Action{ActionView, ActionCreate, ActionUpdate}},
		{ResourceAccessLog, []Action{ActionView}},
		{ResourceInvitation, []Action{ActionView}},
		{ResourceReports, []Action{ActionView}},
	},
	RoleClientAdmin: {
		{ResourceTenant, []Action{ActionView}},
		{ResourceUser, []Action{ActionView}},
		{ResourceClient, []Action{ActionView, ActionUpdate}},
		{ResourceQuotation, []Action{ActionView}},
		{ResourceBooking, []Action{ActionView, ActionCreate, ActionUpdate}},
		{ResourceInvoice, []Action{ActionView}},
		{ResourceSpace, []Action{ActionView}},
		{ResourceService, []Action{ActionView}},
		{ResourceMembership, []Action{ActionView}},
		{ResourceAccessLog, []Action{ActionView}},
		{ResourceInvitation, []Action{ActionView, ActionCreate}},
	},
	RoleEndUser: {
		{ResourceBooking, []Action{ActionView, ActionCreate, ActionUpdate}},
		{ResourceSpace, []Action{ActionView}},
		{ResourceService, []Action{ActionView}},
		{ResourceMembership, []Action{ActionView}},
		{ResourceAccessLog, []Action{ActionView}},
	},
}

// DefaultTable builds the built-in permission table.
func DefaultTable() *PermissionTable {
	t := &PermissionTable{grants: make(map[Role]map[Resource]map[Action]bool)}
	for role, grants := range defaultGrants {
		for _, g := range grants {
			t.set(role, g.Resource, g.Actions)
		}
	}
	return t
}

func (t *PermissionTable) set(role Role, resource Resource, actions []Action) {
	byResource, ok := t.grants[role]
	if !ok {
		byResource = make(map[Resource]map[Action]bool)
		t.grants[role] = byResource
	}
	actionSet := make(map[Action]bool, len(actions))
	for _, a := range actions {
		actionSet[a] = true
	}
	byResource[resource] = actionSet
}

// Allows reports whether the role holds the action on the resource type,
// independent of tenant. Unknown roles, resources, and actions are denied.
func (t *PermissionTable) Allows(role Role, resource Resource, action Action) bool {
	if role == RoleSuperAdmin {
		return role.Valid()
	}
	return t.grants[role][resource][action]
}

// RolesAllowed returns the roles granted the action on the resource, in
// ascending rank order. Used to compile database-side policy predicates from
// the same data that drives Allows.
func (t *PermissionTable) RolesAllowed(resource Resource, action Action) []Role {
	var roles []Role
	for _, role := range AllRoles() {
		if t.Allows(role, resource, action) {
			roles = append(roles, role)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return Rank(roles[i]) < Rank(roles[j]) })
	return roles
}

// tableOverrideFile is the YAML shape for deployment overrides.
type tableOverrideFile struct {
	Roles map[Role][]Grant `yaml:"roles"`
}

// LoadTableFile builds a table from the built-in grants with per
// role/resource overrides applied from a YAML file. An override replaces
// the full action set for that role/resource pair. Unknown role, resource,
// or action names are rejected rather than silently dropped.
func LoadTableFile(path string) (*PermissionTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read permission overrides: %w", err)
	}

	var overrides tableOverrideFile
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse permission overrides: %w", err)
	}

	table := DefaultTable()
	validResources := make(map[Resource]bool)
	for _, r := range AllResources() {
		validResources[r] = true
	}
	validActions := make(map[Action]bool)
	for _, a := range AllActions() {
		validActions[a] = true
	}

	for role, grants := range overrides.Roles {
		if !role.Valid() {
			return nil, fmt.Errorf("unknown role %q in permission overrides", role)
		}
		if role == RoleSuperAdmin {
			return nil, fmt.Errorf("SUPER_ADMIN grants cannot be overridden")
		}
		for _, g := range grants {
			if !validResources[g.Resource] {
				return nil, fmt.Errorf("unknown resource %q in permission overrides", g.Resource)
			}
			for _, a := range g.Actions {
				if !validActions[a] {
					return nil, fmt.Errorf("unknown action %q in permission overrides", a)
				}
			}
			table.set(role, g.Resource, g.Actions)
		}
	}

	return table, nil
}
