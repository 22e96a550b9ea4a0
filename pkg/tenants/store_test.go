package tenants

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE tenants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			is_suspended INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestTenantStore_CreateAndGet(t *testing.T) {
	store := NewTenantStore(setupTestDB(t))
	ctx := context.Background()

	tenant, err := store.Create(ctx, "Hive Works", "hive-works")
	require.NoError(t, err)
	assert.NotZero(t, tenant.ID)
	assert.False(t, tenant.IsSuspended)

	byID, err := store.GetByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hive Works", byID.Name)

	bySlug, err := store.GetBySlug(ctx, "hive-works")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, bySlug.ID)

	_, err = store.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTenantStore_DuplicateSlug(t *testing.T) {
	store := NewTenantStore(setupTestDB(t))
	ctx := context.Background()

	_, err := store.Create(ctx, "First", "taken")
	require.NoError(t, err)

	_, err = store.Create(ctx, "Second", "taken")
	assert.Error(t, err)
}

func TestTenantStore_UpdateName(t *testing.T) {
	store := NewTenantStore(setupTestDB(t))
	ctx := context.Background()

	tenant, err := store.Create(ctx, "Old Name", "rename-me")
	require.NoError(t, err)

	require.NoError(t, store.UpdateName(ctx, tenant.ID, "New Name"))

	updated, err := store.GetByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)

	assert.Error(t, store.UpdateName(ctx, 9999, "Nobody"))
}

func TestTenantStore_SetSuspended(t *testing.T) {
	store := NewTenantStore(setupTestDB(t))
	ctx := context.Background()

	tenant, err := store.Create(ctx, "Suspend Me", "suspend-me")
	require.NoError(t, err)

	require.NoError(t, store.SetSuspended(ctx, tenant.ID, true))

	updated, err := store.GetByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsSuspended)

	suspended, err := store.IsSuspended(ctx, tenant.ID)
	require.NoError(t, err)
	assert.True(t, suspended)

	require.NoError(t, store.SetSuspended(ctx, tenant.ID, false))
	suspended, err = store.IsSuspended(ctx, tenant.ID)
	require.NoError(t, err)
	assert.False(t, suspended)

	_, err = store.IsSuspended(ctx, 9999)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTenantStore_Delete(t *testing.T) {
	store := NewTenantStore(setupTestDB(t))
	ctx := context.Background()

	tenant, err := store.Create(ctx, "Ephemeral", "ephemeral")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, tenant.ID))

	_, err = store.GetByID(ctx, tenant.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.Error(t, store.Delete(ctx, tenant.ID))
}

func TestTenantStore_List(t *testing.T) {
	store := NewTenantStore(setupTestDB(t))
	ctx := context.Background()

	_, err := store.Create(ctx, "A", "a")
	require.NoError(t, err)
	_, err = store.Create(ctx, "B", "b")
	require.NoError(t, err)

	tenants, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, "a", tenants[0].Slug)
	assert.Equal(t, "b", tenants[1].Slug)
}
