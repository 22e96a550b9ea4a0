package authz

import (
	"fmt"
	"sync/atomic"
)

// Decision is the outcome of an access check. Deny is an expected value,
// never an error. Reason carries rule-level detail for server-side logs and
// must not be returned to clients.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"-"`
}

// Allow builds an allowing decision.
func Allow(reason string) Decision {
	return Decision{Allowed: true, Reason: reason}
}

// Deny builds a denying decision.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Evaluator is the single authorization entry point for application code.
// It composes the role hierarchy, the permission table, and the tenant and
// ownership predicates into one verdict; handlers must never compare role
// strings themselves. Safe for concurrent use; the table may be swapped at
// runtime when an override file changes.
type Evaluator struct {
	table atomic.Pointer[PermissionTable]
}

// NewEvaluator creates an evaluator over a permission table. A nil table
// selects the built-in one.
func NewEvaluator(table *PermissionTable) *Evaluator {
	if table == nil {
		table = DefaultTable()
	}
	e := &Evaluator{}
	e.table.Store(table)
	return e
}

// Table exposes the evaluator's permission table so the database policy
// compiler derives its predicates from the same data.
func (e *Evaluator) Table() *PermissionTable {
	return e.table.Load()
}

// Reload swaps the permission table. In-flight evaluations finish against
// the table they started with.
func (e *Evaluator) Reload(table *PermissionTable) {
	if table == nil {
		return
	}
	e.table.Store(table)
}

// CanAccess decides whether the subject may perform the action on the
// described resource. Evaluation order: role-action grant, tenant scope,
// then owner scope for owner-scoped resources. Identical inputs always
// produce identical output.
func (e *Evaluator) CanAccess(s Subject, res ResourceDescriptor, action Action) Decision {
	if !s.Role.Valid() {
		return Deny(fmt.Sprintf("unknown role %q", s.Role))
	}
	if !e.table.Load().Allows(s.Role, res.Type, action) {
		return Deny(fmt.Sprintf("role %s has no %s grant on %s", s.Role, action, res.Type))
	}
	if !InTenant(s, res.TenantID) {
		return Deny(fmt.Sprintf("subject tenant %s does not cover resource tenant %s",
			formatTenant(s.TenantID), formatTenant(res.TenantID)))
	}
	if OwnerScoped(res.Type) && !OwnsOrAdmin(s, res) {
		return Deny(fmt.Sprintf("%s is owner-scoped and subject %d is neither owner nor admin", res.Type, s.ID))
	}
	return Allow(fmt.Sprintf("role %s granted %s on %s", s.Role, action, res.Type))
}

func formatTenant(id *int64) string {
	if id == nil {
		return "<none>"
	}
	return fmt.Sprintf("%d", *id)
}
