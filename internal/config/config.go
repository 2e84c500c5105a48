// Package config loads service configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Ledger backends.
const (
	BackendMemory   = "memory"
	BackendSheets   = "sheets"
	BackendBigQuery = "bigquery"
)

// Auth modes.
const (
	AuthGoogle = "google"
	AuthStatic = "static"
)

// Notifier modes.
const (
	NotifierGmail = "gmail"
	NotifierLog   = "log"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port         string        `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Ledger struct {
		Backend string `yaml:"backend"`
		Sheets  struct {
			SpreadsheetID     string `yaml:"spreadsheet_id"`
			SpreadsheetName   string `yaml:"spreadsheet_name"`
			TransactionsSheet string `yaml:"transactions_sheet"`
			BudgetsSheet      string `yaml:"budgets_sheet"`
		} `yaml:"sheets"`
		BigQuery struct {
			ProjectID string `yaml:"project_id"`
			DatasetID string `yaml:"dataset_id"`
		} `yaml:"bigquery"`
	} `yaml:"ledger"`
	Auth struct {
		Mode            string `yaml:"mode"`
		StaticEmail     string `yaml:"static_email"`
		AllowedAudience string `yaml:"allowed_audience"`
	} `yaml:"auth"`
	Notifier struct {
		Mode   string `yaml:"mode"`
		Sender string `yaml:"sender"`
	} `yaml:"notifier"`
	Digest struct {
		Cron       string   `yaml:"cron"`
		Recipients []string `yaml:"recipients"`
	} `yaml:"digest"`
	Export struct {
		Bucket string `yaml:"bucket"`
	} `yaml:"export"`
	Locale struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"locale"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	override(&cfg.Server.Port, "PORT")
	override(&cfg.Log.Level, "LOG_LEVEL")
	override(&cfg.Ledger.Backend, "LEDGER_BACKEND")
	override(&cfg.Ledger.Sheets.SpreadsheetID, "SPREADSHEET_ID")
	override(&cfg.Ledger.BigQuery.ProjectID, "GCP_PROJECT")
	override(&cfg.Ledger.BigQuery.DatasetID, "BQ_DATASET")
	override(&cfg.Auth.Mode, "AUTH_MODE")
	override(&cfg.Auth.StaticEmail, "STATIC_USER_EMAIL")
	override(&cfg.Notifier.Mode, "NOTIFIER_MODE")
	override(&cfg.Notifier.Sender, "NOTIFIER_SENDER")
	override(&cfg.Digest.Cron, "DIGEST_CRON")
	override(&cfg.Export.Bucket, "GCS_BUCKET")
	override(&cfg.Locale.Timezone, "TZ_NAME")

	if v := os.Getenv("DIGEST_RECIPIENTS"); v != "" {
		cfg.Digest.Recipients = splitList(v)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = BackendMemory
	}
	if cfg.Ledger.Sheets.SpreadsheetName == "" {
		cfg.Ledger.Sheets.SpreadsheetName = "Finance Tracker"
	}
	if cfg.Ledger.Sheets.TransactionsSheet == "" {
		cfg.Ledger.Sheets.TransactionsSheet = "Transactions"
	}
	if cfg.Ledger.Sheets.BudgetsSheet == "" {
		cfg.Ledger.Sheets.BudgetsSheet = "Budgets"
	}
	if cfg.Ledger.BigQuery.DatasetID == "" {
		cfg.Ledger.BigQuery.DatasetID = "finance"
	}
	if cfg.Auth.Mode == "" {
		cfg.Auth.Mode = AuthGoogle
	}
	if cfg.Notifier.Mode == "" {
		cfg.Notifier.Mode = NotifierLog
	}
	if cfg.Digest.Cron == "" {
		cfg.Digest.Cron = "0 0 20 * * *"
	}
	if cfg.Locale.Timezone == "" {
		cfg.Locale.Timezone = "Asia/Ho_Chi_Minh"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch c.Ledger.Backend {
	case BackendMemory, BackendSheets:
	case BackendBigQuery:
		if c.Ledger.BigQuery.ProjectID == "" {
			return fmt.Errorf("ledger.bigquery.project_id is required for the bigquery backend")
		}
	default:
		return fmt.Errorf("ledger.backend %q is not one of memory, sheets, bigquery", c.Ledger.Backend)
	}

	switch c.Auth.Mode {
	case AuthGoogle:
	case AuthStatic:
		if c.Auth.StaticEmail == "" {
			return fmt.Errorf("auth.static_email is required in static mode")
		}
	default:
		return fmt.Errorf("auth.mode %q is not one of google, static", c.Auth.Mode)
	}

	switch c.Notifier.Mode {
	case NotifierLog, NotifierGmail:
	default:
		return fmt.Errorf("notifier.mode %q is not one of gmail, log", c.Notifier.Mode)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Locale.Timezone)
	if err != nil {
		return nil, fmt.Errorf("locale.timezone %q: %w", c.Locale.Timezone, err)
	}
	return loc, nil
}

// Clock returns the current time in the configured zone. The zone must have
// passed Validate.
func (c *Config) Clock() func() time.Time {
	loc, err := c.Location()
	if err != nil {
		loc = time.UTC
	}
	return func() time.Time { return time.Now().In(loc) }
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
