package invites

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/deskhive/deskhive/pkg/authz"
)

// InvitationStore persists invitations.
type InvitationStore struct {
	db *sql.DB
}

// NewInvitationStore creates an invitation store over an open database handle.
func NewInvitationStore(db *sql.DB) *InvitationStore {
	return &InvitationStore{db: db}
}

const invitationColumns = `id, tenant_id, email, role, token, status, invited_by, accepted_by, created_at, updated_at, expires_at`

// Create inserts a new pending invitation.
func (s *InvitationStore) Create(ctx context.Context, inv *Invitation) (*Invitation, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO invitations (tenant_id, email, role, token, status, invited_by, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8)
		RETURNING ` + invitationColumns
	row := s.db.QueryRowContext(ctx, query,
		inv.TenantID, inv.Email, inv.Role, inv.Token, StatusPending,
		inv.InvitedBy, now, inv.ExpiresAt)
	created, err := scanInvitation(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	return created, nil
}

// GetByID fetches a single invitation.
func (s *InvitationStore) GetByID(ctx context.Context, id int64) (*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`
	return scanInvitation(s.db.QueryRowContext(ctx, query, id))
}

// GetByToken fetches an invitation by its opaque token.
func (s *InvitationStore) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE token = $1`
	return scanInvitation(s.db.QueryRowContext(ctx, query, token))
}

// ListByTenant returns a tenant's invitations, newest first.
func (s *InvitationStore) ListByTenant(ctx context.Context, tenantID int64) ([]*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE tenant_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// Accept transitions PENDING to ACCEPTED for the given token. The status
// predicate makes the update a compare-and-set: when the invitation was
// already accepted, revoked, or expired, zero rows match and the caller gets
// ErrInvalidStateTransition regardless of who races whom.
func (s *InvitationStore) Accept(ctx context.Context, token string, acceptedBy int64) (*Invitation, error) {
	now := time.Now().UTC()
	query := `
		UPDATE invitations
		SET status = $1, accepted_by = $2, updated_at = $3
		WHERE token = $4 AND status = $5 AND expires_at > $3
		RETURNING ` + invitationColumns
	row := s.db.QueryRowContext(ctx, query, StatusAccepted, acceptedBy, now, token, StatusPending)
	inv, err := scanInvitation(row)
	if err == sql.ErrNoRows {
		return nil, authz.ErrInvalidStateTransition
	}
	if err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	return inv, nil
}

// Revoke transitions PENDING to REVOKED, same compare-and-set shape as
// Accept.
func (s *InvitationStore) Revoke(ctx context.Context, id int64) (*Invitation, error) {
	query := `
		UPDATE invitations
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + invitationColumns
	row := s.db.QueryRowContext(ctx, query, StatusRevoked, time.Now().UTC(), id, StatusPending)
	inv, err := scanInvitation(row)
	if err == sql.ErrNoRows {
		return nil, authz.ErrInvalidStateTransition
	}
	if err != nil {
		return nil, fmt.Errorf("failed to revoke invitation: %w", err)
	}
	return inv, nil
}

// ExpirePending marks every overdue pending invitation expired and returns
// how many were swept.
func (s *InvitationStore) ExpirePending(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	query := `UPDATE invitations SET status = $1, updated_at = $2 WHERE status = $3 AND expires_at <= $2`
	result, err := s.db.ExecContext(ctx, query, StatusExpired, now, StatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to expire invitations: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvitation(scanner rowScanner) (*Invitation, error) {
	var inv Invitation
	var acceptedBy sql.NullInt64

	err := scanner.Scan(
		&inv.ID, &inv.TenantID, &inv.Email, &inv.Role, &inv.Token,
		&inv.Status, &inv.InvitedBy, &acceptedBy,
		&inv.CreatedAt, &inv.UpdatedAt, &inv.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	if acceptedBy.Valid {
		id := acceptedBy.Int64
		inv.AcceptedBy = &id
	}

	return &inv, nil
}
