package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// validEnv sets the minimum required env vars for a valid config.
func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost:5432/testdb")
}

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

const validYAML = `
database:
  dsn: "postgres://u:p@localhost:5432/testdb"
  max_conns: 10
  min_conns: 2

log:
  level: "debug"
  format: "text"

ledger:
  max_loan_cycles: 60
  default_timezone: "UTC"

job:
  timeout: "90s"
`

func TestLoad_FromEnvOnly(t *testing.T) {
	validEnv(t)
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir()) // no config.yaml in cwd

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.DSN != "postgres://u:p@localhost:5432/testdb" {
		t.Errorf("unexpected DSN: %q", cfg.Database.DSN)
	}
	if cfg.Database.MaxConns != 25 {
		t.Errorf("MaxConns default = %d, want 25", cfg.Database.MaxConns)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log defaults = %q/%q, want info/json", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Ledger.MaxLoanCycles != 120 {
		t.Errorf("MaxLoanCycles default = %d, want 120", cfg.Ledger.MaxLoanCycles)
	}
	if cfg.Job.Timeout != 2*time.Minute {
		t.Errorf("Job.Timeout default = %v, want 2m", cfg.Job.Timeout)
	}
}

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.MaxConns != 10 {
		t.Errorf("MaxConns = %d, want 10", cfg.Database.MaxConns)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Ledger.MaxLoanCycles != 60 {
		t.Errorf("MaxLoanCycles = %d, want 60", cfg.Ledger.MaxLoanCycles)
	}
	if cfg.Job.Timeout != 90*time.Second {
		t.Errorf("Job.Timeout = %v, want 90s", cfg.Job.Timeout)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn (env wins)", cfg.Log.Level)
	}
}

func TestLoad_MissingDSN(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_DSN is missing")
	}
}

func TestLoad_ExplicitPathMissingFile(t *testing.T) {
	validEnv(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max_conns", func(c *Config) { c.Database.MaxConns = 0 }},
		{"min above max", func(c *Config) { c.Database.MinConns = 50 }},
		{"zero loan cycles", func(c *Config) { c.Ledger.MaxLoanCycles = 0 }},
		{"bad timezone", func(c *Config) { c.Ledger.DefaultTimezone = "Mars/Olympus" }},
		{"zero job timeout", func(c *Config) { c.Job.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Database: DatabaseConfig{DSN: "postgres://x", MaxConns: 10, MinConns: 2},
				Ledger:   LedgerConfig{MaxLoanCycles: 120, MaxMoneyDigits: 12, DefaultTimezone: "UTC"},
				Job:      JobConfig{Timeout: time.Minute},
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
