package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Job      JobConfig      `yaml:"job"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// LedgerConfig holds ledger-wide limits applied during input validation.
type LedgerConfig struct {
	MaxLoanCycles    int    `yaml:"max_loan_cycles"    env:"LEDGER_MAX_LOAN_CYCLES"    env-default:"120"`
	MaxMoneyDigits   int    `yaml:"max_money_digits"   env:"LEDGER_MAX_MONEY_DIGITS"   env-default:"12"`
	DefaultTimezone  string `yaml:"default_timezone"   env:"LEDGER_DEFAULT_TIMEZONE"   env-default:"UTC"`
}

// JobConfig holds settings for the one-shot job binaries
// (cycle-runner, penalty-sweep, migrate).
type JobConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"JOB_TIMEOUT" env-default:"2m"`
	DryRun  bool          `yaml:"dry_run" env:"JOB_DRY_RUN" env-default:"false"`
}
