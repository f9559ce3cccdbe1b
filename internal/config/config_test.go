package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "NODE_ENV", "PORT", "DATABASE_URL", "JWT_SECRET",
		"JWT_EXPIRES_IN", "JWT_COOKIE_EXPIRES_IN", "EMAIL_HOST", "EMAIL_PORT",
		"EMAIL_USERNAME", "EMAIL_PASSWORD", "EMAIL_FROM", "PHOTO_DIR",
		"CORS_ORIGINS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "5050", cfg.Port)
	assert.Equal(t, 90*24*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, 90*24*time.Hour, cfg.CookieExpiresIn)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, "public/img", cfg.PhotoDir)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ENV", "production")
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "postgres://localhost/natours")
	t.Setenv("JWT_SECRET", "super-secret")
	t.Setenv("JWT_EXPIRES_IN", "90")
	t.Setenv("EMAIL_PORT", "2525")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres://localhost/natours", cfg.DatabaseURL)
	assert.Equal(t, "super-secret", cfg.JWTSecret)
	assert.Equal(t, 90*24*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, 2525, cfg.EmailPort)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
}

func TestLoadFromEnv_YAMLOverlay(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\nemail_from: Natours <hello@natours.io>\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "Natours <hello@natours.io>", cfg.EmailFrom)

	// Environment wins over the file.
	t.Setenv("PORT", "7070")
	cfg, err = LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
}

func TestLoadFromEnv_BadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_EXPIRES_IN", "ninety")

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{DatabaseURL: "postgres://x", JWTSecret: "s"}
	assert.NoError(t, cfg.Validate())

	cfg.DatabaseURL = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissingDatabaseURL)

	cfg.DatabaseURL = "postgres://x"
	cfg.JWTSecret = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissingJWTSecret)
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("10")
	require.NoError(t, err)
	assert.Equal(t, 10*24*time.Hour, d)

	d, err = parseDuration("90m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)

	_, err = parseDuration("soon")
	assert.Error(t, err)
}
