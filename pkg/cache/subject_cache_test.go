package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhive/deskhive/pkg/authz"
	"github.com/deskhive/deskhive/pkg/identity"
	"github.com/deskhive/deskhive/pkg/observability"
)

func setupCache(t *testing.T) (*SubjectCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewSubjectCache(client, time.Minute, logger, nil), mr
}

func sampleRecord() *identity.SubjectRecord {
	tenantID := int64(4)
	return &identity.SubjectRecord{
		ID:         11,
		ExternalID: "oidc|alice",
		Email:      "alice@example.com",
		TenantID:   &tenantID,
		Role:       authz.RoleCoworkUser,
		IsActive:   true,
	}
}

func TestSubjectCache_SetAndGet(t *testing.T) {
	cache, _ := setupCache(t)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "oidc|alice")
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, sampleRecord()))

	record, ok := cache.Get(ctx, "oidc|alice")
	require.True(t, ok)
	assert.Equal(t, int64(11), record.ID)
	assert.Equal(t, authz.RoleCoworkUser, record.Role)
	require.NotNil(t, record.TenantID)
	assert.Equal(t, int64(4), *record.TenantID)
}

func TestSubjectCache_RedisTierSurvivesLocalEviction(t *testing.T) {
	cache, _ := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, sampleRecord()))

	// Purge the local tier; the record must come back from Redis.
	cache.local.Purge()

	record, ok := cache.Get(ctx, "oidc|alice")
	require.True(t, ok)
	assert.Equal(t, int64(11), record.ID)
}

func TestSubjectCache_Invalidate(t *testing.T) {
	cache, _ := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, sampleRecord()))
	require.NoError(t, cache.Invalidate(ctx, "oidc|alice"))

	_, ok := cache.Get(ctx, "oidc|alice")
	assert.False(t, ok)
}

func TestSubjectCache_RedisExpiry(t *testing.T) {
	cache, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, sampleRecord()))
	cache.local.Purge()
	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, "oidc|alice")
	assert.False(t, ok)
}

func TestSubjectCache_WorksWithoutRedis(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	cache := NewSubjectCache(nil, time.Minute, logger, nil)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, sampleRecord()))

	record, ok := cache.Get(ctx, "oidc|alice")
	require.True(t, ok)
	assert.Equal(t, int64(11), record.ID)

	require.NoError(t, cache.Invalidate(ctx, "oidc|alice"))
	_, ok = cache.Get(ctx, "oidc|alice")
	assert.False(t, ok)
}
