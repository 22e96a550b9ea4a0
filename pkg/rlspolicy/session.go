package rlspolicy

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/deskhive/deskhive/pkg/authz"
)

// SessionClaims are the request-scoped settings the database policies read
// via current_setting. They mirror the authenticated Subject exactly; the
// middleware sets them per transaction so a connection returned to the pool
// carries nothing over.
type SessionClaims struct {
	SubjectID int64
	TenantID  *int64
	Role      authz.Role
}

// ClaimsFor derives session claims from a subject.
func ClaimsFor(s authz.Subject) SessionClaims {
	return SessionClaims{
		SubjectID: s.ID,
		TenantID:  s.TenantID,
		Role:      s.Role,
	}
}

// Apply sets the claims on the transaction with transaction-local scope.
func (c SessionClaims) Apply(ctx context.Context, tx *sql.Tx) error {
	tenantValue := ""
	if c.TenantID != nil {
		tenantValue = strconv.FormatInt(*c.TenantID, 10)
	}

	_, err := tx.ExecContext(ctx, `
		SELECT set_config('app.subject_id', $1, true),
		       set_config('app.tenant_id', $2, true),
		       set_config('app.role', $3, true)`,
		strconv.FormatInt(c.SubjectID, 10), tenantValue, string(c.Role))
	if err != nil {
		return fmt.Errorf("failed to set session claims: %w", err)
	}
	return nil
}

// WithSessionClaims runs fn inside a transaction that carries the subject's
// claims, so every statement in fn is filtered by the row level security
// policies.
func WithSessionClaims(ctx context.Context, db *sql.DB, claims SessionClaims, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	if err := claims.Apply(ctx, tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
