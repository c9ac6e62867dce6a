package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const settingsFile = "settings.yaml"

// Settings are the persisted user preferences, stored next to the
// credential record.
type Settings struct {
	// PaymentMode selects the gating policy: "minimal" or "universal".
	PaymentMode string `yaml:"paymentMode"`
}

// LoadSettings reads the settings file from dir. An absent or
// unreadable file yields defaults (minimal gating) rather than an
// error; gating must never be blocked by a broken preferences file.
func LoadSettings(dir string) Settings {
	defaults := Settings{PaymentMode: "minimal"}

	data, err := os.ReadFile(filepath.Join(dir, settingsFile))
	if err != nil {
		return defaults
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return defaults
	}
	if s.PaymentMode == "" {
		s.PaymentMode = defaults.PaymentMode
	}
	return s
}

// SaveSettings writes the settings file with owner-only permissions,
// creating dir as needed.
func SaveSettings(dir string, s Settings) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, settingsFile), data, 0o600); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}
