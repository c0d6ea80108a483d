package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"DB_DSN":     "postgres://localhost/ltrc",
		"JWT_SECRET": "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Empty(t, cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "always", cfg.AvailabilityMode)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5.0, cfg.SignInPerMinute)
	assert.Equal(t, 5, cfg.SignInBurst)
	assert.Equal(t, time.Local, cfg.Location)
	assert.False(t, cfg.TelegramEnabled())
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.CORSOrigins)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"ENV":               "production",
		"LOG_LEVEL":         " debug ",
		"DB_DSN":            "postgres://db/ltrc",
		"JWT_SECRET":        "s3cret",
		"HTTP_ADDR":         ":9000",
		"SESSION_TTL":       "2h",
		"AVAILABILITY_MODE": " Configured ",
		"TIMEZONE":          "UTC",
		"TELEGRAM_TOKEN":    "123:abc",
		"SIGNIN_RATE":       "0.5",
		"SIGNIN_BURST":      "3",
		"CORS_ORIGINS":      "https://ltrc.example.edu, ,http://localhost:3000",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "configured", cfg.AvailabilityMode)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.True(t, cfg.TelegramEnabled())
	assert.Equal(t, 0.5, cfg.SignInPerMinute)
	assert.Equal(t, 3, cfg.SignInBurst)
	assert.Equal(t, []string{"https://ltrc.example.edu", "http://localhost:3000"}, cfg.CORSOrigins)
}

func TestFromEnvErrors(t *testing.T) {
	base := map[string]string{"DB_DSN": "postgres://db/ltrc", "JWT_SECRET": "s3cret"}
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"missing dsn", "DB_DSN", ""},
		{"missing secret", "JWT_SECRET", ""},
		{"bad mode", "AVAILABILITY_MODE", "weekly"},
		{"bad ttl", "SESSION_TTL", "forever"},
		{"negative ttl", "SESSION_TTL", "-1h"},
		{"bad rate", "SIGNIN_RATE", "fast"},
		{"zero burst", "SIGNIN_BURST", "0"},
		{"bad zone", "TIMEZONE", "Mars/Olympus"},
		{"bad log level", "LOG_LEVEL", "chatty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := map[string]string{}
			for k, v := range base {
				env[k] = v
			}
			env[tt.key] = tt.val

			_, err := FromEnv(envOf(env))
			assert.ErrorContains(t, err, tt.key)
		})
	}
}
