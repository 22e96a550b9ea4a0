package authz

// Subject is the authenticated actor every authorization decision is made
// for. It is resolved once per request from the subjects table (never from
// client-supplied claims) and threaded explicitly through all checks.
type Subject struct {
	ID          int64  `json:"id"`
	TenantID    *int64 `json:"tenant_id,omitempty"` // nil for platform-level subjects
	Role        Role   `json:"role"`
	IsOnboarded bool   `json:"is_onboarded"`
}

// InTenant reports whether the subject may touch resources belonging to the
// given tenant. SUPER_ADMIN crosses tenant boundaries; everyone else must
// match exactly. A nil resourceTenantID marks a platform-scoped resource.
func InTenant(s Subject, resourceTenantID *int64) bool {
	if s.Role == RoleSuperAdmin {
		return true
	}
	if resourceTenantID == nil || s.TenantID == nil {
		return false
	}
	return *s.TenantID == *resourceTenantID
}

// OwnsOrAdmin composes the tenant predicate with owner scoping: within the
// resource's tenant, the row is visible to its owning user and to cowork
// admins and above. It never substitutes for InTenant.
func OwnsOrAdmin(s Subject, res ResourceDescriptor) bool {
	if !InTenant(s, res.TenantID) {
		return false
	}
	if AtLeast(s.Role, RoleCoworkAdmin) {
		return true
	}
	return res.OwnerID != nil && *res.OwnerID == s.ID
}
