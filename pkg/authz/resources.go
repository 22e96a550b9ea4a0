package authz

// Resource represents a resource type in the system
type Resource string

const (
	ResourceTenant     Resource = "tenant"
	ResourceUser       Resource = "user"
	ResourceClient     Resource = "client"
	ResourceQuotation  Resource = "quotation"
	ResourceBooking    Resource = "booking"
	ResourceInvoice    Resource = "invoice"
	ResourceSpace      Resource = "space"
	ResourceService    Resource = "service"
	ResourceMembership Resource = "membership"
	ResourceActivity   Resource = "activity"
	ResourceAccessLog  Resource = "access_log"
	ResourceInvitation Resource = "invitation"

	// Pseudo-resources for capabilities that do not map to a single table.
	ResourceBilling        Resource = "billing"
	ResourceReports        Resource = "reports"
	ResourceSystemSettings Resource = "system_settings"
)

// Action represents an action that can be performed on a resource
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// AllResources returns every resource type, table-backed and pseudo.
func AllResources() []Resource {
	return []Resource{
		ResourceTenant, ResourceUser, ResourceClient, ResourceQuotation,
		ResourceBooking, ResourceInvoice, ResourceSpace, ResourceService,
		ResourceMembership, ResourceActivity, ResourceAccessLog,
		ResourceInvitation, ResourceBilling, ResourceReports,
		ResourceSystemSettings,
	}
}

// AllActions returns the fixed action set.
func AllActions() []Action {
	return []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete}
}

// ownerScoped marks resources that carry an owning user id and apply the
// narrower owner-or-admin visibility rule on top of tenant scoping.
var ownerScoped = map[Resource]bool{
	ResourceBooking:   true,
	ResourceAccessLog: true,
}

// OwnerScoped reports whether rows of this resource type are additionally
// scoped to an owning user.
func OwnerScoped(r Resource) bool {
	return ownerScoped[r]
}

// ResourceDescriptor identifies a concrete resource row (or a pseudo-resource)
// for an access check. TenantID must be the row's resolved tenant: resources
// that only reference a tenant through a parent (quotation items hang off
// quotations) resolve the parent's tenant id before the check; skipping
// that join is a tenant-isolation breach.
type ResourceDescriptor struct {
	Type     Resource
	TenantID *int64 // nil for platform-scoped resources
	OwnerID  *int64 // owning user id, set for owner-scoped rows
}

// TenantResource builds a descriptor for a tenant-owned row.
func TenantResource(t Resource, tenantID int64) ResourceDescriptor {
	return ResourceDescriptor{Type: t, TenantID: &tenantID}
}

// OwnedResource builds a descriptor for an owner-scoped row.
func OwnedResource(t Resource, tenantID, ownerID int64) ResourceDescriptor {
	return ResourceDescriptor{Type: t, TenantID: &tenantID, OwnerID: &ownerID}
}

// PlatformResource builds a descriptor for a platform-scoped resource.
func PlatformResource(t Resource) ResourceDescriptor {
	return ResourceDescriptor{Type: t}
}
