package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{"JWT_SECRET": "s3cret"}))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, BackendPostgres, cfg.TelemetryBackend)
	assert.Equal(t, BackendPostgres, cfg.ResetTokenBackend)
	assert.Equal(t, "postgres://postgres:@localhost:5432/monitoring?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.SMTP.Enabled())
	assert.False(t, cfg.Seed.Enabled())
}

func TestFromEnvRequiresSecret(t *testing.T) {
	_, err := FromEnv(envMap(nil))
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestFromEnvInfluxNeedsCredentials(t *testing.T) {
	_, err := FromEnv(envMap(map[string]string{
		"JWT_SECRET":        "x",
		"TELEMETRY_BACKEND": "influx",
	}))
	assert.ErrorContains(t, err, "InfluxDB configuration is incomplete")
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"JWT_SECRET":           "x",
		"PORT":                 "8081",
		"DATABASE_URL":         "postgres://u:p@db/telemetry",
		"TOKEN_TTL":            "2h",
		"CORS_ALLOWED_ORIGINS": "http://a.test, http://b.test",
		"LOG_LEVEL":            "debug",
		"RESET_TOKEN_BACKEND":  "redis",
		"FRONTEND_URL":         "https://noc.example/",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "postgres://u:p@db/telemetry", cfg.DatabaseURL)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, BackendRedis, cfg.ResetTokenBackend)
	assert.Equal(t, "https://noc.example", cfg.FrontendURL)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	for key, val := range map[string]string{
		"TOKEN_TTL":           "forever",
		"SMTP_PORT":           "smtp",
		"DB_MAX_CONNS":        "0",
		"TELEMETRY_BACKEND":   "sqlite",
		"RESET_TOKEN_BACKEND": "memcached",
		"LOG_LEVEL":           "loud",
	} {
		_, err := FromEnv(envMap(map[string]string{"JWT_SECRET": "x", key: val}))
		assert.Error(t, err, key)
	}
}
