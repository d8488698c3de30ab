// Package config holds the settings shared by every sgb subcommand.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/Neumenon/sgb/savefile"
)

// Config is read from the environment. Subcommand flags override it.
type Config struct {
	LogLevel       string `env:"SGB_LOG_LEVEL" envDefault:"info"`
	VerifyChecksum bool   `env:"SGB_VERIFY_CHECKSUM"`
	TrimV16        bool   `env:"SGB_TRIM_V16"`
	Backup         bool   `env:"SGB_BACKUP" envDefault:"true"`
	BackupDir      string `env:"SGB_BACKUP_DIR"`
	Workers        int    `env:"SGB_WORKERS" envDefault:"4"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load returns the Config described by the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("parse env: SGB_WORKERS must be at least 1, got %d", cfg.Workers)
	}
	return &cfg, nil
}

// ReadOptions returns the savefile options the config enables.
func (c *Config) ReadOptions() []savefile.ReadOption {
	var opts []savefile.ReadOption
	if c.VerifyChecksum {
		opts = append(opts, savefile.WithChecksumVerification())
	}
	if c.TrimV16 {
		opts = append(opts, savefile.WithV16Trim())
	}
	return opts
}
