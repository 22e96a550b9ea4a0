package tenants

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TenantStore persists tenants.
type TenantStore struct {
	db *sql.DB
}

// NewTenantStore creates a tenant store over an open database handle.
func NewTenantStore(db *sql.DB) *TenantStore {
	return &TenantStore{db: db}
}

const tenantColumns = `id, name, slug, is_suspended, created_at, updated_at`

// Create inserts a new tenant.
func (s *TenantStore) Create(ctx context.Context, name, slug string) (*Tenant, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO tenants (name, slug, is_suspended, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING ` + tenantColumns
	tenant, err := scanTenant(s.db.QueryRowContext(ctx, query, name, slug, false, now))
	if err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}
	return tenant, nil
}

// GetByID fetches a tenant by id.
func (s *TenantStore) GetByID(ctx context.Context, id int64) (*Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(s.db.QueryRowContext(ctx, query, id))
}

// GetBySlug fetches a tenant by slug.
func (s *TenantStore) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`
	return scanTenant(s.db.QueryRowContext(ctx, query, slug))
}

// List returns all tenants, oldest first.
func (s *TenantStore) List(ctx context.Context) ([]*Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

// UpdateName renames a tenant.
func (s *TenantStore) UpdateName(ctx context.Context, id int64, name string) error {
	query := `UPDATE tenants SET name = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, name, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	return requireOneRow(result, "tenant not found")
}

// IsSuspended reports whether a tenant is suspended. Returns sql.ErrNoRows
// when the tenant does not exist.
func (s *TenantStore) IsSuspended(ctx context.Context, id int64) (bool, error) {
	var suspended bool
	err := s.db.QueryRowContext(ctx, `SELECT is_suspended FROM tenants WHERE id = $1`, id).Scan(&suspended)
	if err != nil {
		return false, err
	}
	return suspended, nil
}

// SetSuspended flips the suspension flag.
func (s *TenantStore) SetSuspended(ctx context.Context, id int64, suspended bool) error {
	query := `UPDATE tenants SET is_suspended = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, suspended, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set tenant suspension: %w", err)
	}
	return requireOneRow(result, "tenant not found")
}

// Delete removes a tenant; tenant-scoped rows cascade at the schema level.
func (s *TenantStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	return requireOneRow(result, "tenant not found")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTenant(scanner rowScanner) (*Tenant, error) {
	var tenant Tenant
	err := scanner.Scan(
		&tenant.ID, &tenant.Name, &tenant.Slug, &tenant.IsSuspended,
		&tenant.CreatedAt, &tenant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tenant, nil
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
