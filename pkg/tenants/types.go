package tenants

import "time"

// Tenant is one coworking operator on the platform. Every tenant-scoped row
// in the system hangs off a tenant id, and suspended tenants keep their data
// but lose all access.
type Tenant struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	IsSuspended bool      `json:"is_suspended"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
