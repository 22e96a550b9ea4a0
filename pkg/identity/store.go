package identity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/deskhive/deskhive/pkg/authz"
)

// SubjectStore persists subjects in the relational store.
type SubjectStore struct {
	db *sql.DB
}

// NewSubjectStore creates a subject store over an open database handle.
func NewSubjectStore(db *sql.DB) *SubjectStore {
	return &SubjectStore{db: db}
}

const subjectColumns = `id, external_id, email, full_name, tenant_id, role, is_onboarded, is_active, created_at, updated_at, last_login_at`

// GetByExternalID fetches the subject provisioned for a verified external
// identity. Returns sql.ErrNoRows when none exists.
func (s *SubjectStore) GetByExternalID(ctx context.Context, externalID string) (*SubjectRecord, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE external_id = $1`
	return scanSubject(s.db.QueryRowContext(ctx, query, externalID))
}

// GetByID fetches a subject by internal id.
func (s *SubjectStore) GetByID(ctx context.Context, id int64) (*SubjectRecord, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE id = $1`
	return scanSubject(s.db.QueryRowContext(ctx, query, id))
}

// GetByEmail fetches a subject by email address.
func (s *SubjectStore) GetByEmail(ctx context.Context, email string) (*SubjectRecord, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE email = $1`
	return scanSubject(s.db.QueryRowContext(ctx, query, email))
}

// Upsert provisions a subject for a verified external identity, or refreshes
// the profile fields and login time of an existing one. The upsert is
// idempotent and keyed by external id; role and tenant are never written
// here; new subjects start as unassigned END_USERs until an invitation or
// an admin places them.
func (s *SubjectStore) Upsert(ctx context.Context, claim Claim) (*SubjectRecord, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO subjects (external_id, email, full_name, tenant_id, role, is_onboarded, is_active, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, NULL, $4, $5, $6, $7, $7, $7)
		ON CONFLICT (external_id) DO UPDATE
		SET email = EXCLUDED.email,
		    full_name = EXCLUDED.full_name,
		    updated_at = EXCLUDED.updated_at,
		    last_login_at = EXCLUDED.last_login_at
		RETURNING ` + subjectColumns
	row := s.db.QueryRowContext(ctx, query,
		claim.ExternalID, claim.Email, claim.FullName,
		authz.RoleEndUser, false, true, now)
	record, err := scanSubject(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert subject: %w", err)
	}
	return record, nil
}

// SetRole updates a subject's role and tenant assignment. Used by the
// invitation accept flow and by admin role changes; callers are responsible
// for validating the assignment against authz.AssignableRoles first.
func (s *SubjectStore) SetRole(ctx context.Context, subjectID int64, role authz.Role, tenantID *int64) error {
	query := `UPDATE subjects SET role = $1, tenant_id = $2, is_onboarded = $3, updated_at = $4 WHERE id = $5`
	result, err := s.db.ExecContext(ctx, query, role, tenantID, true, time.Now().UTC(), subjectID)
	if err != nil {
		return fmt.Errorf("failed to set subject role: %w", err)
	}
	return requireOneRow(result, "subject not found")
}

// Deactivate disables a subject without deleting the row.
func (s *SubjectStore) Deactivate(ctx context.Context, subjectID int64) error {
	query := `UPDATE subjects SET is_active = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, false, time.Now().UTC(), subjectID)
	if err != nil {
		return fmt.Errorf("failed to deactivate subject: %w", err)
	}
	return requireOneRow(result, "subject not found")
}

// ListByTenant returns all subjects assigned to a tenant.
func (s *SubjectStore) ListByTenant(ctx context.Context, tenantID int64) ([]*SubjectRecord, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE tenant_id = $1 ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer rows.Close()

	var records []*SubjectRecord
	for rows.Next() {
		record, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubject(scanner rowScanner) (*SubjectRecord, error) {
	var record SubjectRecord
	var fullName sql.NullString
	var tenantID sql.NullInt64
	var lastLogin sql.NullTime

	err := scanner.Scan(
		&record.ID, &record.ExternalID, &record.Email, &fullName,
		&tenantID, &record.Role, &record.IsOnboarded, &record.IsActive,
		&record.CreatedAt, &record.UpdatedAt, &lastLogin,
	)
	if err != nil {
		return nil, err
	}

	if fullName.Valid {
		record.FullName = fullName.String
	}
	if tenantID.Valid {
		id := tenantID.Int64
		record.TenantID = &id
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		record.LastLoginAt = &t
	}

	return &record, nil
}

func requireOneRow(result sql.Result, notFound string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s", notFound)
	}
	return nil
}
