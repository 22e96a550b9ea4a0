package api

import (
	"time"

	"github.com/deskhive/deskhive/pkg/authz"
	"github.com/deskhive/deskhive/pkg/identity"
)

// MeResponse is the body of /me and the login callback.
type MeResponse struct {
	Subject         *identity.SubjectRecord `json:"subject"`
	AssignableRoles []authz.Role            `json:"assignable_roles"`
}

// CreateTenantRequest creates a workspace tenant.
type CreateTenantRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// RenameTenantRequest renames a tenant.
type RenameTenantRequest struct {
	Name string `json:"name"`
}

// SuspendTenantRequest toggles a tenant's suspension.
type SuspendTenantRequest struct {
	Suspended bool `json:"suspended"`
}

// SetMemberRoleRequest changes a member's role.
type SetMemberRoleRequest struct {
	Role authz.Role `json:"role"`
}

// CreateInvitationRequest invites an email into a tenant at a role.
type CreateInvitationRequest struct {
	Email string     `json:"email"`
	Role  authz.Role `json:"role"`
}

// CreateInvitationResponse returns the invitation plus its one-time token.
// The token is only ever surfaced here.
type CreateInvitationResponse struct {
	ID        int64      `json:"id"`
	TenantID  int64      `json:"tenant_id"`
	Email     string     `json:"email"`
	Role      authz.Role `json:"role"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// CreateBookingRequest reserves a space for a time window.
type CreateBookingRequest struct {
	SpaceID  *int64    `json:"space_id,omitempty"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// Booking is a space reservation row.
type Booking struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	OwnerID   int64     `json:"owner_id"`
	SpaceID   *int64    `json:"space_id,omitempty"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	CreatedAt time.Time `json:"created_at"`
}

// AccessLog is a door or gate entry event.
type AccessLog struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	SubjectID int64     `json:"subject_id"`
	SpaceID   *int64    `json:"space_id,omitempty"`
	EnteredAt time.Time `json:"entered_at"`
}
