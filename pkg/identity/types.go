package identity

import (
	"time"

	"github.com/deskhive/deskhive/pkg/authz"
)

// Claim is the verified identity assertion extracted from the provider's ID
// token. Only ExternalID, Email, and name fields are used for provisioning;
// Metadata carries any provider-asserted extras (including role or tenant
// hints) and is retained for diagnostics only; authorization never reads
// it. Role and tenant always come from the subjects table.
type Claim struct {
	ExternalID string
	Email      string
	FullName   string
	Metadata   map[string]string
}

// SubjectRecord is the system-of-record row backing an authenticated
// subject. Subjects are deactivated, never deleted.
type SubjectRecord struct {
	ID          int64      `json:"id"`
	ExternalID  string     `json:"external_id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name,omitempty"`
	TenantID    *int64     `json:"tenant_id,omitempty"`
	Role        authz.Role `json:"role"`
	IsOnboarded bool       `json:"is_onboarded"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Subject converts the record into the pure value threaded through
// authorization checks.
func (r *SubjectRecord) Subject() authz.Subject {
	return authz.Subject{
		ID:          r.ID,
		TenantID:    r.TenantID,
		Role:        r.Role,
		IsOnboarded: r.IsOnboarded,
	}
}
