package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Env)
	require.True(t, cfg.Local())
	require.Equal(t, "4000", cfg.Port)
	require.Equal(t, "BUBTCONNECT", cfg.MongoDB)
	require.Equal(t, 20, cfg.Limits.ConnectionRequests)
	require.Equal(t, 24*time.Hour, cfg.Limits.Window)
	require.Equal(t, 24*time.Hour, cfg.Limits.ReminderDelay)
	require.Equal(t, []string{"*"}, cfg.CorsOrigins)
	require.Equal(t, 30*time.Second, cfg.SMTP.Timeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("WORKER_POLL_INTERVAL", "500ms")
	t.Setenv("SMTP_PORT", "2525")

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.Local())
	require.Equal(t, "memory", cfg.StoreDriver)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CorsOrigins)
	require.Equal(t, 500*time.Millisecond, cfg.Worker.PollInterval)
	require.Equal(t, 2525, cfg.SMTP.Port)
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := Load()
	require.ErrorContains(t, err, "JWT_SECRET is required")
	require.ErrorContains(t, err, "STORE_DRIVER")
}

func TestValidateRejectsSMTPTimeoutBeyondLease(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SMTP_TIMEOUT", "10m")
	t.Setenv("WORKER_LEASE", "5m")

	_, err := Load()
	require.ErrorContains(t, err, "SMTP_TIMEOUT")
}
