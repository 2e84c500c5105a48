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

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, BackendMemory, cfg.Ledger.Backend)
	assert.Equal(t, "Transactions", cfg.Ledger.Sheets.TransactionsSheet)
	assert.Equal(t, "Budgets", cfg.Ledger.Sheets.BudgetsSheet)
	assert.Equal(t, AuthGoogle, cfg.Auth.Mode)
	assert.Equal(t, NotifierLog, cfg.Notifier.Mode)
	assert.Equal(t, "0 0 20 * * *", cfg.Digest.Cron)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Locale.Timezone)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
  read_timeout: 5s
log:
  level: debug
  format: json
ledger:
  backend: sheets
  sheets:
    spreadsheet_id: abc123
auth:
  mode: static
  static_email: me@example.com
digest:
  recipients: [a@example.com, b@example.com]
locale:
  timezone: UTC
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, BackendSheets, cfg.Ledger.Backend)
	assert.Equal(t, "abc123", cfg.Ledger.Sheets.SpreadsheetID)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Digest.Recipients)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"9090\"\n")
	t.Setenv("PORT", "7000")
	t.Setenv("LEDGER_BACKEND", "bigquery")
	t.Setenv("GCP_PROJECT", "my-project")
	t.Setenv("DIGEST_RECIPIENTS", " a@example.com, ,b@example.com ")
	t.Setenv("GCS_BUCKET", "exports")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, BackendBigQuery, cfg.Ledger.Backend)
	assert.Equal(t, "my-project", cfg.Ledger.BigQuery.ProjectID)
	assert.Equal(t, "finance", cfg.Ledger.BigQuery.DatasetID)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Digest.Recipients)
	assert.Equal(t, "exports", cfg.Export.Bucket)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Ledger.Backend = "postgres" }},
		{"bigquery without project", func(c *Config) { c.Ledger.Backend = BackendBigQuery }},
		{"static without email", func(c *Config) { c.Auth.Mode = AuthStatic }},
		{"unknown auth mode", func(c *Config) { c.Auth.Mode = "saml" }},
		{"unknown notifier", func(c *Config) { c.Notifier.Mode = "sms" }},
		{"bad timezone", func(c *Config) { c.Locale.Timezone = "Mars/Olympus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestClock(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	cfg.Locale.Timezone = "UTC"

	assert.Equal(t, time.UTC, cfg.Clock()().Location())
}
