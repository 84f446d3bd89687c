// Package config loads service configuration from the environment
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the configuration shared by the bank commands
type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	AmbarAddr    string        `env:"AMBAR_ADDR" envDefault:":8181"`
	SQLitePath   string        `env:"SQLITE_PATH" envDefault:"bank.db"`
	PostgresDSN  string        `env:"POSTGRES_DSN"`
	Memory       bool          `env:"MEMORY"`
	LogMode      string        `env:"LOG_MODE" envDefault:"development"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"100ms"`
	ReportEvery  time.Duration `env:"REPORT_EVERY" envDefault:"30s"`
	AmbarUser    string        `env:"AMBAR_USER"`
	AmbarPass    string        `env:"AMBAR_PASS"`
}

// Prefix is prepended to every environment variable name
const Prefix = "BANK_"

// Load parses Config from BANK_ prefixed environment variables
func Load() (Config, error) {
	var cfg Config

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

// Validate checks that the storage configuration is usable
func (c Config) Validate() error {
	if c.ReportEvery <= 0 {
		return fmt.Errorf("%sREPORT_EVERY must be positive", Prefix)
	}

	if c.Memory {
		return nil
	}

	if c.PostgresDSN == "" && c.SQLitePath == "" {
		return fmt.Errorf("either %sPOSTGRES_DSN or %sSQLITE_PATH must be set", Prefix, Prefix)
	}

	return nil
}
