package rlspolicy

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/deskhive/deskhive/pkg/authz"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the schema migrations for all policy-managed tables.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create tenants and subjects tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS tenants (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL UNIQUE,
					is_suspended BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE TABLE IF NOT EXISTS subjects (
					id BIGSERIAL PRIMARY KEY,
					external_id VARCHAR(255) NOT NULL UNIQUE,
					email VARCHAR(255) NOT NULL,
					full_name VARCHAR(255),
					tenant_id BIGINT REFERENCES tenants(id) ON DELETE SET NULL,
					role VARCHAR(50) NOT NULL,
					is_onboarded BOOLEAN NOT NULL DEFAULT FALSE,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL,
					last_login_at TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_subjects_tenant_id ON subjects(tenant_id);
				CREATE INDEX IF NOT EXISTS idx_subjects_email ON subjects(email);
			`,
		},
		{
			Version:     2,
			Description: "Create tenant-scoped business tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS clients (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					email VARCHAR(255),
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE TABLE IF NOT EXISTS spaces (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					capacity INT NOT NULL DEFAULT 1,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE TABLE IF NOT EXISTS services (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					price_cents BIGINT NOT NULL DEFAULT 0,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE TABLE IF NOT EXISTS memberships (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					client_id BIGINT REFERENCES clients(id) ON DELETE SET NULL,
					name VARCHAR(255) NOT NULL,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE TABLE IF NOT EXISTS quotations (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					client_id BIGINT REFERENCES clients(id) ON DELETE SET NULL,
					amount_cents BIGINT NOT NULL DEFAULT 0,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE TABLE IF NOT EXISTS invoices (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					client_id BIGINT REFERENCES clients(id) ON DELETE SET NULL,
					amount_cents BIGINT NOT NULL DEFAULT 0,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE TABLE IF NOT EXISTS activities (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_clients_tenant_id ON clients(tenant_id);
				CREATE INDEX IF NOT EXISTS idx_spaces_tenant_id ON spaces(tenant_id);
				CREATE INDEX IF NOT EXISTS idx_services_tenant_id ON services(tenant_id);
				CREATE INDEX IF NOT EXISTS idx_memberships_tenant_id ON memberships(tenant_id);
				CREATE INDEX IF NOT EXISTS idx_quotations_tenant_id ON quotations(tenant_id);
				CREATE INDEX IF NOT EXISTS idx_invoices_tenant_id ON invoices(tenant_id);
				CREATE INDEX IF NOT EXISTS idx_activities_tenant_id ON activities(tenant_id);
			`,
		},
		{
			Version:     3,
			Description: "Create owner-scoped tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS bookings (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					owner_id BIGINT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
					space_id BIGINT REFERENCES spaces(id) ON DELETE SET NULL,
					starts_at TIMESTAMP NOT NULL,
					ends_at TIMESTAMP NOT NULL,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE TABLE IF NOT EXISTS access_logs (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					subject_id BIGINT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
					space_id BIGINT REFERENCES spaces(id) ON DELETE SET NULL,
					entered_at TIMESTAMP NOT NULL,
					created_at TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_bookings_tenant_id ON bookings(tenant_id);
				CREATE INDEX IF NOT EXISTS idx_bookings_owner_id ON bookings(owner_id);
				CREATE INDEX IF NOT EXISTS idx_access_logs_tenant_id ON access_logs(tenant_id);
				CREATE INDEX IF NOT EXISTS idx_access_logs_subject_id ON access_logs(subject_id);
			`,
		},
		{
			Version:     4,
			Description: "Create invitations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS invitations (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					email VARCHAR(255) NOT NULL,
					role VARCHAR(50) NOT NULL,
					token VARCHAR(64) NOT NULL UNIQUE,
					status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
					invited_by BIGINT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
					accepted_by BIGINT REFERENCES subjects(id) ON DELETE SET NULL,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL,
					expires_at TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_invitations_tenant_id ON invitations(tenant_id);
				CREATE INDEX IF NOT EXISTS idx_invitations_status ON invitations(status);
				CREATE INDEX IF NOT EXISTS idx_invitations_email ON invitations(email);
			`,
		},
	}
}

// RunMigrations applies pending schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS deskhive_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM deskhive_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO deskhive_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// SyncPolicies enables row level security on every managed table and
// recreates the compiled policy set. Run at startup after migrations: drop
// and recreate keeps the database in lockstep with the current permission
// table, including grants removed since the last deploy.
//
// FORCE is set so policies bind the table owner too; the application role
// gets no bypass.
func SyncPolicies(ctx context.Context, db *sql.DB, table *authz.PermissionTable) error {
	policies := Compile(table)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	for _, name := range ManagedTables() {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ENABLE ROW LEVEL SECURITY", name)); err != nil {
			return fmt.Errorf("failed to enable RLS on %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s FORCE ROW LEVEL SECURITY", name)); err != nil {
			return fmt.Errorf("failed to force RLS on %s: %w", name, err)
		}
	}

	for _, policy := range policies {
		if _, err := tx.ExecContext(ctx, policy.DropSQL()); err != nil {
			return fmt.Errorf("failed to drop policy %s: %w", policy.Name, err)
		}
		if _, err := tx.ExecContext(ctx, policy.CreateSQL()); err != nil {
			return fmt.Errorf("failed to create policy %s: %w", policy.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit policy sync: %w", err)
	}
	return nil
}
