package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DEPLOY_ENV", "")
	t.Setenv("SUPERADMIN_EMAILS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://192.168.33.10", cfg.Endpoints.APIBaseURL)
	assert.Equal(t, "http://localhost:9003", cfg.Endpoints.EventCalendarURL)
	assert.Equal(t, 60*time.Second, cfg.LoginTimeout)
	assert.Equal(t, "ticketlessAdminAuthToken", cfg.SessionCookie)
	assert.Empty(t, cfg.SuperadminEmails)
}

func TestLoad_ProductionEndpoints(t *testing.T) {
	t.Setenv("DEPLOY_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.ticketless.fi", cfg.Endpoints.APIBaseURL)
	assert.Equal(t, "https://app.ticketless.fi", cfg.Endpoints.AppBaseURL)
	assert.Equal(t, "https://event-calendar.ticketless.fi", cfg.Endpoints.EventCalendarURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DEPLOY_ENV", "development")
	t.Setenv("API_BASE_URL", "http://backend.test/")
	t.Setenv("SUPERADMIN_EMAILS", " root@ticketless.fi, ops@ticketless.fi ,")
	t.Setenv("SESSION_TTL", "30m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://backend.test", cfg.Endpoints.APIBaseURL)
	assert.Equal(t, "https://dev-app.ticketless.fi", cfg.Endpoints.AppBaseURL)
	assert.Equal(t, []string{"root@ticketless.fi", "ops@ticketless.fi"}, cfg.SuperadminEmails)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("unknown env", func(t *testing.T) {
		t.Setenv("DEPLOY_ENV", "staging")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("DEPLOY_ENV", "local")
		t.Setenv("SESSION_TTL", "forever")
		_, err := Load()
		assert.ErrorContains(t, err, "SESSION_TTL")
	})

	t.Run("bad bool", func(t *testing.T) {
		t.Setenv("DEPLOY_ENV", "local")
		t.Setenv("TRACING_ENABLED", "maybe")
		_, err := Load()
		assert.ErrorContains(t, err, "TRACING_ENABLED")
	})

	t.Run("base url without scheme", func(t *testing.T) {
		t.Setenv("DEPLOY_ENV", "local")
		t.Setenv("APP_BASE_URL", "app.ticketless.fi")
		_, err := Load()
		assert.ErrorContains(t, err, "APP_BASE_URL")
	})
}

func TestLoad_FormIdleTimeout(t *testing.T) {
	t.Setenv("DEPLOY_ENV", "local")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.FormIdleTimeout)

	t.Setenv("FORM_IDLE_TIMEOUT", "5m")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.FormIdleTimeout)
}
