package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{"DATABASE_URL", "JWT_SECRET", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "RABBITMQ_URL", "TELEGRAM_BOT_TOKEN", "CONTACT_KEY"} {
		t.Setenv(env, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
database:
  url: postgres://localhost/panchayat
auth:
  jwt_secret: 0123456789abcdef0123
storage:
  endpoint: localhost:9000
geocoding:
  timeout: 3s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "issue-photos", cfg.Storage.Bucket)
	assert.Equal(t, "file://migrations", cfg.Database.MigrationsPath)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 3*time.Second, cfg.Geocoding.Timeout)
	assert.Equal(t, "PanchayatConnect/1.0", cfg.Geocoding.UserAgent)
	assert.Equal(t, "report_events", cfg.RabbitMQ.Queue)
	assert.EqualValues(t, 5<<20, cfg.Storage.MaxPhotoBytes)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://env/panchayat")
	t.Setenv("JWT_SECRET", "secret-from-environment")

	path := writeConfig(t, `
database:
  url: postgres://file/panchayat
storage:
  endpoint: localhost:9000
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/panchayat", cfg.Database.URL)
	assert.Equal(t, "secret-from-environment", cfg.Auth.JWTSecret)
}

func TestLoadConfig_Errors(t *testing.T) {
	clearEnv(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "database: [unclosed"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `
database:
  url: postgres://localhost/panchayat
auth:
  jwt_secret: short
storage:
  endpoint: localhost:9000
`))
	require.ErrorContains(t, err, "jwt_secret")

	_, err = LoadConfig(writeConfig(t, `
database:
  url: postgres://localhost/panchayat
auth:
  jwt_secret: 0123456789abcdef0123
storage:
  endpoint: localhost:9000
rabbitmq:
  enabled: true
`))
	require.ErrorContains(t, err, "rabbitmq.url")
}

func TestLoadConfig_RejectsNonPositiveLimits(t *testing.T) {
	base := `
database:
  url: postgres://localhost/panchayat
auth:
  jwt_secret: 0123456789abcdef0123
storage:
  endpoint: localhost:9000
`
	tests := []struct {
		name  string
		extra string
		want  string
	}{
		{"negative per minute", "server:\n  rate_limit_per_minute: -5\n", "rate_limit_per_minute"},
		{"negative burst", "server:\n  rate_limit_burst: -1\n", "rate_limit_burst"},
		{"negative geocoding rate", "geocoding:\n  rate_limit_per_second: -1\n", "rate_limit_per_second"},
		{"negative sweep interval", "photo_sweeper:\n  interval_seconds: -30\n", "interval_seconds"},
		{"negative max attempts", "photo_sweeper:\n  max_attempts: -2\n", "max_attempts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := LoadConfig(writeConfig(t, base+tt.extra))
			require.ErrorContains(t, err, tt.want)
		})
	}
}
