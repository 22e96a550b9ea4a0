package invites

import (
	"time"

	"github.com/deskhive/deskhive/pkg/authz"
)

// InvitationStatus is the lifecycle state of an invitation.
type InvitationStatus string

const (
	// StatusPending is the only state transitions start from.
	StatusPending InvitationStatus = "PENDING"
	// StatusAccepted is terminal.
	StatusAccepted InvitationStatus = "ACCEPTED"
	// StatusRevoked is terminal.
	StatusRevoked InvitationStatus = "REVOKED"
	// StatusExpired is terminal, set by the sweeper once expires_at passes.
	StatusExpired InvitationStatus = "EXPIRED"
)

// Terminal reports whether no further transition is possible.
func (s InvitationStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRevoked || s == StatusExpired
}

// Invitation invites an email address into a tenant with a specific role.
// The tenant is always the inviter's tenant and the role is bounded by what
// the inviter may assign.
type Invitation struct {
	ID         int64            `json:"id"`
	TenantID   int64            `json:"tenant_id"`
	Email      string           `json:"email"`
	Role       authz.Role       `json:"role"`
	Token      string           `json:"-"`
	Status     InvitationStatus `json:"status"`
	InvitedBy  int64            `json:"invited_by"`
	AcceptedBy *int64           `json:"accepted_by,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	ExpiresAt  time.Time        `json:"expires_at"`
}

// DefaultTTL is how long an invitation stays acceptable.
const DefaultTTL = 7 * 24 * time.Hour
