package audit

import (
	"time"

	"github.com/deskhive/deskhive/pkg/authz"
)

// DecisionEvent is one recorded authorization decision. The denial reason is
// stored for operators; it is never part of an API response.
type DecisionEvent struct {
	ID          int64       `json:"id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	RequestID   string      `json:"request_id,omitempty"`
	SubjectID   int64       `json:"subject_id"`
	SubjectRole authz.Role  `json:"subject_role"`
	TenantID    *int64      `json:"tenant_id,omitempty"`
	Resource    authz.Resource `json:"resource"`
	Action      authz.Action   `json:"action"`
	Allowed     bool        `json:"allowed"`
	Reason      string      `json:"-"`
}

// SearchFilter narrows a decision trail query. Zero values mean "any".
type SearchFilter struct {
	SubjectID int64
	TenantID  int64
	Resource  authz.Resource
	Allowed   *bool
	Since     time.Time
	Limit     int
}
