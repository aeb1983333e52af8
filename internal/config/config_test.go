package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE__HOST", "localhost")
	t.Setenv("DATABASE__USER", "modli")
	t.Setenv("DATABASE__NAME", "modli")
	t.Setenv("REDIS__ADDRESS", "localhost:6379")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfigFrom(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 330*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"https://modli.mekanizma.com", "http://localhost:8081", "http://localhost:19006"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 90, cfg.Expo.BatchSize)
	assert.Equal(t, 20*time.Second, cfg.Expo.Timeout)
	assert.Equal(t, "Modli", cfg.Expo.DisplayName)
	assert.Equal(t, 300*time.Second, cfg.Fal.Timeout)
	assert.Equal(t, DeliveryLogPostgres, cfg.DeliveryLog.Store)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.False(t, cfg.Supabase.Enabled())
	assert.False(t, cfg.RabbitMQ.Enabled())
	assert.False(t, cfg.Admin.Enabled())
}

func TestLoadConfig_LegacyAndSectionKeys(t *testing.T) {
	setRequired(t)
	t.Setenv("FAL_KEY", "fal-secret")
	t.Setenv("OPENWEATHER_API_KEY", "ow-secret")
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-role")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("SERVER__PORT", "9000")
	t.Setenv("EXPO__WORKERS", "4")
	t.Setenv("EXPO__TIMEOUT", "5s")

	cfg, err := LoadConfigFrom(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "fal-secret", cfg.Fal.APIKey)
	assert.Equal(t, "ow-secret", cfg.Weather.APIKey)
	assert.True(t, cfg.Supabase.Enabled())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 4, cfg.Expo.Workers)
	assert.Equal(t, 5*time.Second, cfg.Expo.Timeout)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	setRequired(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ADMIN__EMAIL=admin@modli.app\nADMIN__PASSWORD_HASH='$2a$10$hash'\nSERVER__LOG_LEVEL=debug\n"), 0o600))

	cfg, err := LoadConfigFrom(envFile)
	require.NoError(t, err)

	assert.Equal(t, "admin@modli.app", cfg.Admin.Email)
	assert.Equal(t, "$2a$10$hash", cfg.Admin.PasswordHash)
	assert.True(t, cfg.Admin.Enabled())
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoadConfig_Invalid(t *testing.T) {
	setRequired(t)
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Run("batch size above gateway limit", func(t *testing.T) {
		t.Setenv("EXPO__BATCH_SIZE", "500")
		_, err := LoadConfigFrom(missing)
		assert.Error(t, err)
	})

	t.Run("supabase log store without supabase", func(t *testing.T) {
		t.Setenv("DELIVERY_LOG__STORE", "supabase")
		_, err := LoadConfigFrom(missing)
		assert.ErrorContains(t, err, "delivery_log.store=supabase")
	})

	t.Run("unknown log store", func(t *testing.T) {
		t.Setenv("DELIVERY_LOG__STORE", "mongo")
		_, err := LoadConfigFrom(missing)
		assert.Error(t, err)
	})
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.port", envKey("SERVER__PORT"))
	assert.Equal(t, "delivery_log.store", envKey("DELIVERY_LOG__STORE"))
	assert.Equal(t, "fal.api_key", envKey("FAL_KEY"))
	assert.Equal(t, "", envKey("PATH"))
}
