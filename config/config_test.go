package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_ACCESS_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
	t.Setenv("EMAIL", "noreply@example.com")
	t.Setenv("EMAIL_PASSWORD", "app-password")
	t.Setenv("GITHUB_CLIENT_ID", "cid")
	t.Setenv("GITHUB_CLIENT_SECRET", "csecret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "pokesphere", cfg.Mongo.DBName)
	assert.Equal(t, time.Hour, cfg.Auth.AccessDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshDuration)
	assert.Equal(t, 10*time.Minute, cfg.Auth.CodeDuration)
	assert.Equal(t, "noreply@example.com", cfg.Mail.From) // falls back to EMAIL
	assert.Equal(t, 465, cfg.Mail.Port)
	assert.Equal(t, "https://pokeapi.co/api/v2", cfg.Catalog.BaseURL)
	assert.Equal(t, 1025, cfg.Catalog.SyncLimit)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_ACCESS_DURATION", "30m")
	t.Setenv("VERIFICATION_CODE_DURATION", "5m")
	t.Setenv("SMTP_PORT", "587")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessDuration)
	assert.Equal(t, 5*time.Minute, cfg.Auth.CodeDuration)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestLoadConfigCollectsAllErrors(t *testing.T) {
	// Only one of the required variables set: every other missing key must
	// appear in the aggregated error.
	t.Setenv("JWT_ACCESS_SECRET", "only-this")

	_, err := LoadConfig()
	require.Error(t, err)
	msg := err.Error()
	for _, key := range []string{"JWT_REFRESH_SECRET", "EMAIL", "EMAIL_PASSWORD", "GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET"} {
		assert.True(t, strings.Contains(msg, key), "error should mention %s", key)
	}
}

func TestLoadConfigRejectsEqualSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_REFRESH_SECRET", "access-secret")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestLoadConfigBadDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_ACCESS_DURATION", "not-a-duration")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_ACCESS_DURATION")
}
