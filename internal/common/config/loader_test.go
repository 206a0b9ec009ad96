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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  postgres:
    host: localhost
    database: pwd_office
    user: pwd
  redis:
    address: localhost:6379
`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "pwd-access", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "APP", cfg.Applications.ReferencePrefix)
	assert.Equal(t, 5, cfg.Applications.ReferenceMaxAttempts)
	assert.Equal(t, 20, cfg.Applications.DefaultPageSize)
	assert.Equal(t, 50, cfg.Applications.MaxPageSize)
	assert.Equal(t, int64(1), cfg.Notifications.SuperAdminUserID)
	assert.Equal(t, 30, cfg.Renewals.WindowDays)
	assert.Equal(t, 7, cfg.Renewals.DedupeDays)
	assert.Equal(t, "0 6 * * *", cfg.Renewals.Schedule)
	assert.Equal(t, 5*time.Minute, GetDuration(cfg.Renewals.LockTTL))
	assert.Equal(t, int64(10<<20), cfg.Uploads.MaxBytes)
	assert.Equal(t, 5, cfg.Security.MaxFailedLogins)
	assert.False(t, cfg.Notifications.RelayEnabled())
	assert.Contains(t, cfg.Database.Postgres.GetDSN(), "dbname=pwd_office")
}

func TestLoadFromFile_EnvExpansionAndOverride(t *testing.T) {
	t.Setenv("PWD_DB_HOST", "db.internal")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("RENEWALS_WINDOW_DAYS", "45")
	path := writeConfig(t, `
database:
  postgres:
    host: ${PWD_DB_HOST}
    database: pwd_office
    user: pwd
  redis:
    address: localhost:6379
renewals:
  window_days: 30
`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Equal(t, 45, cfg.Renewals.WindowDays)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := map[string]string{
		"missing postgres host": `
database:
  postgres: {database: x, user: y}
  redis: {address: "localhost:6379"}
`,
		"missing redis": `
database:
  postgres: {host: h, database: x, user: y}
`,
		"email relay without sender": `
database:
  postgres: {host: h, database: x, user: y}
  redis: {address: "localhost:6379"}
notifications:
  relay:
    email: {enabled: true}
`,
		"tracing without endpoint": `
database:
  postgres: {host: h, database: x, user: y}
  redis: {address: "localhost:6379"}
tracing: {enabled: true}
`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
