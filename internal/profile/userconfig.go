package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const userConfigKey = "user-config"

// UserConfig holds the options remembered between runs.
type UserConfig struct {
	Mappings       []ColumnMapping `yaml:"mappings,omitempty"`
	MultipleSheets bool            `yaml:"multiple_sheets"`
	FormatCurrency bool            `yaml:"format_currency"`
	ShowAdvanced   bool            `yaml:"show_advanced"`
	LastUsed       time.Time       `yaml:"last_used"`
}

// DefaultUserConfig returns the settings used before anything is saved.
func DefaultUserConfig() UserConfig {
	return UserConfig{FormatCurrency: true}
}

// SaveUserConfig stores cfg, stamping LastUsed.
func (m *Manager) SaveUserConfig(ctx context.Context, cfg UserConfig) error {
	cfg.LastUsed = m.now().UTC()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding user config: %w", err)
	}
	return m.store.Put(ctx, userConfigKey, data)
}

// LoadUserConfig returns the saved settings. Missing or unreadable settings
// yield DefaultUserConfig; only store failures are errors.
func (m *Manager) LoadUserConfig(ctx context.Context) (UserConfig, error) {
	data, err := m.store.Get(ctx, userConfigKey)
	if errors.Is(err, ErrNotFound) {
		return DefaultUserConfig(), nil
	}
	if err != nil {
		return DefaultUserConfig(), err
	}

	cfg := DefaultUserConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultUserConfig(), nil
	}
	return cfg, nil
}

// ClearUserConfig removes the saved settings.
func (m *Manager) ClearUserConfig(ctx context.Context) error {
	return m.store.Delete(ctx, userConfigKey)
}
