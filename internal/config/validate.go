package config

import (
	"fmt"
	"time"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database.max_conns must be >= 1 (got %d)", c.Database.MaxConns)
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns must be between 0 and max_conns (got %d)", c.Database.MinConns)
	}

	if err := c.Ledger.validate(); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}

	if c.Job.Timeout <= 0 {
		return fmt.Errorf("job.timeout must be positive (got %v)", c.Job.Timeout)
	}

	return nil
}

func (l *LedgerConfig) validate() error {
	if l.MaxLoanCycles < 1 {
		return fmt.Errorf("max_loan_cycles must be >= 1 (got %d)", l.MaxLoanCycles)
	}
	if l.MaxMoneyDigits < 4 || l.MaxMoneyDigits > 18 {
		return fmt.Errorf("max_money_digits must be between 4 and 18 (got %d)", l.MaxMoneyDigits)
	}
	if _, err := time.LoadLocation(l.DefaultTimezone); err != nil {
		return fmt.Errorf("default_timezone: %w", err)
	}
	return nil
}
