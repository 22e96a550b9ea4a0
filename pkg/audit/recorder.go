package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Recorder writes and queries the authorization decision trail.
type Recorder struct {
	db *sql.DB
}

// NewRecorder creates a recorder and ensures the trail table exists.
func NewRecorder(db *sql.DB) (*Recorder, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	r := &Recorder{db: db}
	if err := r.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure authz_decisions table: %w", err)
	}
	return r, nil
}

func (r *Recorder) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS authz_decisions (
		id BIGSERIAL PRIMARY KEY,
		occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
		request_id VARCHAR(100),
		subject_id BIGINT NOT NULL,
		subject_role VARCHAR(50) NOT NULL,
		tenant_id BIGINT,
		resource VARCHAR(50) NOT NULL,
		action VARCHAR(20) NOT NULL,
		allowed BOOLEAN NOT NULL,
		reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_authz_decisions_occurred_at ON authz_decisions(occurred_at DESC);
	CREATE INDEX IF NOT EXISTS idx_authz_decisions_subject_id ON authz_decisions(subject_id);
	CREATE INDEX IF NOT EXISTS idx_authz_decisions_tenant_id ON authz_decisions(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_authz_decisions_allowed ON authz_decisions(allowed);
	`
	_, err := r.db.Exec(query)
	return err
}

// Record appends one decision to the trail.
func (r *Recorder) Record(ctx context.Context, event *DecisionEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	query := `
		INSERT INTO authz_decisions (occurred_at, request_id, subject_id, subject_role, tenant_id, resource, action, allowed, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		event.OccurredAt, event.RequestID, event.SubjectID, event.SubjectRole,
		event.TenantID, event.Resource, event.Action, event.Allowed, event.Reason)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

// Search returns matching decisions, newest first.
func (r *Recorder) Search(ctx context.Context, filter SearchFilter) ([]*DecisionEvent, error) {
	var conditions []string
	var args []interface{}

	addCondition := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.SubjectID != 0 {
		addCondition("subject_id = $%d", filter.SubjectID)
	}
	if filter.TenantID != 0 {
		addCondition("tenant_id = $%d", filter.TenantID)
	}
	if filter.Resource != "" {
		addCondition("resource = $%d", filter.Resource)
	}
	if filter.Allowed != nil {
		addCondition("allowed = $%d", *filter.Allowed)
	}
	if !filter.Since.IsZero() {
		addCondition("occurred_at >= $%d", filter.Since)
	}

	query := `SELECT id, occurred_at, request_id, subject_id, subject_role, tenant_id, resource, action, allowed, reason FROM authz_decisions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY occurred_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search decisions: %w", err)
	}
	defer rows.Close()

	var events []*DecisionEvent
	for rows.Next() {
		var event DecisionEvent
		var requestID, reason sql.NullString
		var tenantID sql.NullInt64
		err := rows.Scan(
			&event.ID, &event.OccurredAt, &requestID, &event.SubjectID,
			&event.SubjectRole, &tenantID, &event.Resource, &event.Action,
			&event.Allowed, &reason,
		)
		if err != nil {
			return nil, err
		}
		event.RequestID = requestID.String
		event.Reason = reason.String
		if tenantID.Valid {
			id := tenantID.Int64
			event.TenantID = &id
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

// Cleanup deletes decisions older than the retention window and returns how
// many rows were removed.
func (r *Recorder) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	result, err := r.db.ExecContext(ctx, `DELETE FROM authz_decisions WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up decisions: %w", err)
	}
	return result.RowsAffected()
}
