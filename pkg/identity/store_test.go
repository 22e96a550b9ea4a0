package identity

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhive/deskhive/pkg/authz"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE subjects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL,
			full_name TEXT,
			tenant_id INTEGER,
			role TEXT NOT NULL,
			is_onboarded INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			last_login_at TIMESTAMP
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestSubjectStore_UpsertProvisions(t *testing.T) {
	store := NewSubjectStore(setupTestDB(t))
	ctx := context.Background()

	record, err := store.Upsert(ctx, Claim{
		ExternalID: "oidc|alice",
		Email:      "alice@example.com",
		FullName:   "Alice Doe",
	})
	require.NoError(t, err)

	assert.NotZero(t, record.ID)
	assert.Equal(t, "oidc|alice", record.ExternalID)
	assert.Equal(t, "alice@example.com", record.Email)
	assert.Equal(t, authz.RoleEndUser, record.Role)
	assert.Nil(t, record.TenantID, "new subjects start without a tenant")
	assert.False(t, record.IsOnboarded)
	assert.True(t, record.IsActive)
	require.NotNil(t, record.LastLoginAt)
}

func TestSubjectStore_UpsertIsIdempotent(t *testing.T) {
	store := NewSubjectStore(setupTestDB(t))
	ctx := context.Background()

	first, err := store.Upsert(ctx, Claim{ExternalID: "oidc|bob", Email: "bob@example.com"})
	require.NoError(t, err)

	// Assign the subject a role, then sign in again: the upsert must
	// refresh profile fields without touching role or tenant.
	tenantID := int64(9)
	require.NoError(t, store.SetRole(ctx, first.ID, authz.RoleCoworkAdmin, &tenantID))

	second, err := store.Upsert(ctx, Claim{ExternalID: "oidc|bob", Email: "bob@corp.example.com"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "bob@corp.example.com", second.Email)
	assert.Equal(t, authz.RoleCoworkAdmin, second.Role)
	require.NotNil(t, second.TenantID)
	assert.Equal(t, tenantID, *second.TenantID)
	assert.True(t, second.IsOnboarded)
}

func TestSubjectStore_GetByExternalID(t *testing.T) {
	store := NewSubjectStore(setupTestDB(t))
	ctx := context.Background()

	_, err := store.GetByExternalID(ctx, "oidc|missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	created, err := store.Upsert(ctx, Claim{ExternalID: "oidc|carol", Email: "carol@example.com"})
	require.NoError(t, err)

	found, err := store.GetByExternalID(ctx, "oidc|carol")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestSubjectStore_SetRole(t *testing.T) {
	store := NewSubjectStore(setupTestDB(t))
	ctx := context.Background()

	record, err := store.Upsert(ctx, Claim{ExternalID: "oidc|dave", Email: "dave@example.com"})
	require.NoError(t, err)

	tenantID := int64(3)
	require.NoError(t, store.SetRole(ctx, record.ID, authz.RoleClientAdmin, &tenantID))

	updated, err := store.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, authz.RoleClientAdmin, updated.Role)
	require.NotNil(t, updated.TenantID)
	assert.Equal(t, tenantID, *updated.TenantID)
	assert.True(t, updated.IsOnboarded)

	err = store.SetRole(ctx, 99999, authz.RoleEndUser, nil)
	assert.Error(t, err)
}

func TestSubjectStore_Deactivate(t *testing.T) {
	store := NewSubjectStore(setupTestDB(t))
	ctx := context.Background()

	record, err := store.Upsert(ctx, Claim{ExternalID: "oidc|eve", Email: "eve@example.com"})
	require.NoError(t, err)

	require.NoError(t, store.Deactivate(ctx, record.ID))

	updated, err := store.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

func TestSubjectStore_ListByTenant(t *testing.T) {
	store := NewSubjectStore(setupTestDB(t))
	ctx := context.Background()

	tenantA := int64(1)
	tenantB := int64(2)

	a, err := store.Upsert(ctx, Claim{ExternalID: "oidc|a", Email: "a@example.com"})
	require.NoError(t, err)
	b, err := store.Upsert(ctx, Claim{ExternalID: "oidc|b", Email: "b@example.com"})
	require.NoError(t, err)
	c, err := store.Upsert(ctx, Claim{ExternalID: "oidc|c", Email: "c@example.com"})
	require.NoError(t, err)

	require.NoError(t, store.SetRole(ctx, a.ID, authz.RoleCoworkUser, &tenantA))
	require.NoError(t, store.SetRole(ctx, b.ID, authz.RoleEndUser, &tenantA))
	require.NoError(t, store.SetRole(ctx, c.ID, authz.RoleEndUser, &tenantB))

	members, err := store.ListByTenant(ctx, tenantA)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, a.ID, members[0].ID)
	assert.Equal(t, b.ID, members[1].ID)
}
