package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhive/deskhive/pkg/observability"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DESKHIVE_POSTGRES_URL", "postgres://localhost:5432/deskhive?sslmode=disable")
	t.Setenv("DESKHIVE_OIDC_ISSUER", "https://issuer.example.com")
	t.Setenv("DESKHIVE_OIDC_CLIENT_ID", "deskhive")
	t.Setenv("DESKHIVE_OIDC_CLIENT_SECRET", "secret")
	t.Setenv("DESKHIVE_OIDC_REDIRECT_URL", "https://app.example.com/auth/callback")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.False(t, cfg.Observability.OTelEnabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"openid", "profile", "email"}, cfg.OIDC.Scopes)
	assert.Equal(t, "@hourly", cfg.Authz.SweepSchedule)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DESKHIVE_PORT", "7070")
	t.Setenv("DESKHIVE_LOG_LEVEL", "debug")
	t.Setenv("DESKHIVE_CACHE_ENABLED", "true")
	t.Setenv("DESKHIVE_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DESKHIVE_CACHE_TTL", "45s")
	t.Setenv("DESKHIVE_OIDC_SCOPES", "openid, email")
	t.Setenv("DESKHIVE_AUTHZ_TABLE_PATH", "/etc/deskhive/permissions.yaml")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 45*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, []string{"openid", "email"}, cfg.OIDC.Scopes)
	assert.Equal(t, "/etc/deskhive/permissions.yaml", cfg.Authz.TableOverridePath)
}

func TestLoadConfig_ValidationFailures(t *testing.T) {
	t.Run("missing postgres URL", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DESKHIVE_POSTGRES_URL", "")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("missing oidc issuer", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DESKHIVE_OIDC_ISSUER", "")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("scopes without openid", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DESKHIVE_OIDC_SCOPES", "profile,email")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("cache enabled without redis URL", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DESKHIVE_CACHE_ENABLED", "true")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("clashing ports", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DESKHIVE_PORT", "9090")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}
