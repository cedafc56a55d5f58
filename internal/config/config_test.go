package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/mediloop")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 8*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.RememberTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "dashboard.php", cfg.LoginRedirect)
	assert.Equal(t, "login.html", cfg.LogoutRedirect)
	assert.Equal(t, "http://localhost", cfg.CORSFallbackOrigin)
	assert.Contains(t, cfg.AllowedOrigins, "http://localhost:3000")
	assert.Equal(t, time.Duration(0), cfg.SweepInterval)
	assert.False(t, cfg.Email.Enabled())
	assert.Equal(t, 587, cfg.Email.Port)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/mediloop")
	t.Setenv("PORT", "9090")
	t.Setenv("BCRYPT_COST", "14")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://mediloop.org , ,https://www.mediloop.org")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8")
	t.Setenv("EMAIL_SERVER_HOST", "'smtp.example.com'")
	t.Setenv("EMAIL_FROM", "noreply@example.com")
	t.Setenv("APP_BASE_URL", "https://mediloop.org/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 14, cfg.BcryptCost)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"https://mediloop.org", "https://www.mediloop.org"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.TrustedProxies)
	assert.Equal(t, "smtp.example.com", cfg.Email.Host)
	assert.True(t, cfg.Email.Enabled())
	assert.Equal(t, "https://mediloop.org", cfg.BaseURL)
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_RejectsBadBcryptCost(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/mediloop")
	t.Setenv("BCRYPT_COST", "3")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RejectsWildcardFallbackOrigin(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/mediloop")
	t.Setenv("CORS_FALLBACK_ORIGIN", "*")

	_, err := Load()
	require.Error(t, err)
}
