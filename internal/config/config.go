// Package config loads environment-based configuration and the
// persisted user settings file.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for paygit.
type Config struct {
	// SessionToken, when set by a trusted host environment, bypasses
	// local credential storage and validation entirely.
	SessionToken string `env:"PAYGIT_SESSION_TOKEN"`

	// Provider endpoints and application identity.
	ProviderURL string `env:"PAYGIT_PROVIDER_URL"`
	AuthURL     string `env:"PAYGIT_AUTH_URL"`
	AppID       string `env:"PAYGIT_APP_ID" envDefault:"paygit"`

	// Destination handle and amount charged per gated operation.
	Destination string  `env:"PAYGIT_DESTINATION" envDefault:"paygit"`
	Amount      float64 `env:"PAYGIT_AMOUNT" envDefault:"0.01"`
	Currency    string  `env:"PAYGIT_CURRENCY" envDefault:"USD"`

	// CheckBalance enables the pre-flight balance query before paying.
	CheckBalance bool `env:"PAYGIT_CHECK_BALANCE" envDefault:"false"`

	// GitBinary is the wrapped tool. Overridable for testing.
	GitBinary string `env:"PAYGIT_GIT" envDefault:"git"`

	// ConfigDir overrides the default ~/.paygit state directory.
	ConfigDir string `env:"PAYGIT_CONFIG_DIR"`

	// Environment controls log verbosity and format.
	Environment string `env:"PAYGIT_ENV" envDefault:"development"`
}

// Load reads a local .env file if present, then parses the
// environment.
func Load() (*Config, error) {
	warnInsecureEnvFile()
	_ = godotenv.Load() // missing .env is fine

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// Dir resolves the per-user state directory holding the credential
// record, salt, and settings.
func (c *Config) Dir() (string, error) {
	if c.ConfigDir != "" {
		return c.ConfigDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".paygit"), nil
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. Group or world readable files risk
// exposing credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}
