package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/deskhive/deskhive/pkg/authz"
	"github.com/deskhive/deskhive/pkg/observability"
)

// subjectStore is the persistence surface the resolver needs.
type subjectStore interface {
	GetByExternalID(ctx context.Context, externalID string) (*SubjectRecord, error)
	Upsert(ctx context.Context, claim Claim) (*SubjectRecord, error)
}

// Resolver turns a verified identity claim into the Subject used for every
// authorization decision. Role and tenant are always re-derived from the
// subjects table keyed by the verified external id; any role or tenant the
// provider asserts in token metadata is ignored.
type Resolver struct {
	store  subjectStore
	logger *observability.Logger
}

// NewResolver creates an identity resolver.
func NewResolver(store *SubjectStore, logger *observability.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve returns the subject for a verified claim, provisioning one on
// first sign-in. Deactivated subjects resolve to ErrUnauthenticated: a valid
// provider token is not enough once the local record is disabled.
func (r *Resolver) Resolve(ctx context.Context, claim Claim) (*SubjectRecord, error) {
	if claim.ExternalID == "" {
		return nil, authz.ErrUnauthenticated
	}

	record, err := r.store.GetByExternalID(ctx, claim.ExternalID)
	if errors.Is(err, sql.ErrNoRows) {
		record, err = r.store.Upsert(ctx, claim)
		if err != nil {
			return nil, fmt.Errorf("failed to provision subject: %w", err)
		}
		r.logger.WithFields(map[string]interface{}{
			"subject_id":  record.ID,
			"external_id": claim.ExternalID,
		}).Info("provisioned new subject")
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up subject: %w", err)
	}

	if !record.IsActive {
		r.logger.WithField("subject_id", record.ID).Warn("deactivated subject attempted sign-in")
		return nil, authz.ErrUnauthenticated
	}

	if role, ok := claim.Metadata["role"]; ok && role != string(record.Role) {
		// Provider metadata disagreeing with the system of record is worth a
		// trace, but the stored role always wins.
		r.logger.WithFields(map[string]interface{}{
			"subject_id":    record.ID,
			"asserted_role": role,
			"stored_role":   string(record.Role),
		}).Debug("ignoring provider-asserted role")
	}

	return record, nil
}
