// Package config loads canopy's layered configuration: a system settings
// file pointing at the data directory, a per-user config.toml inside it, and
// CANOPY_* environment overrides on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"canopy/provider"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

// ProviderConfig is one [[providers]] entry in config.toml. API keys live in
// the credentials file, never here.
type ProviderConfig struct {
	ID      string `toml:"id"`
	Name    string `toml:"name"`
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url,omitempty"`
	Model   string `toml:"model,omitempty"`
}

type SearchConfig struct {
	BaseURL    string `toml:"base_url"`
	NumResults int    `toml:"num_results"`
}

type UserConfig struct {
	ActiveProvider string           `toml:"active_provider"`
	Providers      []ProviderConfig `toml:"providers"`
	Search         SearchConfig     `toml:"search"`
}

// Config is the resolved runtime configuration.
type Config struct {
	DataDirectory  string
	ActiveProvider string
	Providers      []ProviderConfig
	Search         SearchConfig

	Credentials *CredentialStore
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// GraphPath is the sqlite database holding the canvas.
func (c *Config) GraphPath() string {
	return filepath.Join(c.DataDir(), "canvas.db")
}

// Provider resolves the named provider entry, or the active one for "".
func (c *Config) Provider(id string) (ProviderConfig, bool) {
	if id == "" {
		id = c.ActiveProvider
	}
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// ProviderClientConfig assembles the wire-level provider config for id,
// joining the config entry with its stored credential. A missing API key is
// not an error here; the orchestrator fails fast on it.
func (c *Config) ProviderClientConfig(id string) (provider.Config, error) {
	entry, ok := c.Provider(id)
	if !ok {
		return provider.Config{}, fmt.Errorf("provider %q is not configured", id)
	}
	var key string
	if c.Credentials != nil {
		key = c.Credentials.Get(entry.ID)
	}
	return provider.Config{
		Type:    provider.MapProviderIDToType(entry.ID),
		BaseURL: entry.BaseURL,
		Model:   entry.Model,
		APIKey:  key,
	}, nil
}

func (c *Config) applyEnvOverrides() {
	if dataDir := os.Getenv("CANOPY_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if providerID := os.Getenv("CANOPY_PROVIDER"); providerID != "" {
		c.ActiveProvider = providerID
	}
	if model := os.Getenv("CANOPY_MODEL"); model != "" {
		for i := range c.Providers {
			if c.Providers[i].ID == c.ActiveProvider {
				c.Providers[i].Model = model
			}
		}
	}
	if searchURL := os.Getenv("CANOPY_SEARCH_URL"); searchURL != "" {
		c.Search.BaseURL = searchURL
	}
}

// Load resolves the full configuration and loads credentials. Missing files
// are created with defaults.
func Load() (*Config, error) {
	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}

	cfg := &Config{DataDirectory: systemCfg.DataDirectory}
	if cfg.DataDirectory == "" {
		cfg.DataDirectory = GetDefaultDataDir()
	}

	dataDir := cfg.DataDir()
	if err := EnsureDir(dataDir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.ActiveProvider = userCfg.ActiveProvider
	cfg.Providers = userCfg.Providers
	cfg.Search = userCfg.Search

	cfg.applyEnvOverrides()

	cfg.Credentials = NewCredentialStore()
	if err := cfg.Credentials.Load(dataDir); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if key := os.Getenv("CANOPY_API_KEY"); key != "" {
		cfg.Credentials.Set(cfg.ActiveProvider, key)
	}

	return cfg, nil
}

func LoadSystemConfig() (*SystemConfig, error) {
	cfg := DefaultSystemConfig()
	settingsPath := GetSettingsFilePath()

	if !FileExists(settingsPath) {
		if err := CreateDefaultSystemConfig(); err != nil {
			return nil, fmt.Errorf("failed to create system config: %w", err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(settingsPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse system config: %w", err)
	}

	return cfg, nil
}

func LoadUserConfig(dataDir string) (*UserConfig, error) {
	cfg := DefaultUserConfig()
	userConfigPath := filepath.Join(dataDir, "config.toml")

	if !FileExists(userConfigPath) {
		if err := CreateDefaultUserConfig(dataDir); err != nil {
			return nil, fmt.Errorf("failed to create user config: %w", err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(userConfigPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}

	return cfg, nil
}

func SaveUserConfig(cfg *UserConfig, dataDir string) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	userConfigPath := filepath.Join(dataDir, "config.toml")
	// 0600 - user configuration data
	f, err := os.OpenFile(userConfigPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create user config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode user config: %w", err)
	}

	return nil
}

func CreateDefaultSystemConfig() error {
	configDir := GetConfigDir()
	if err := EnsureDir(configDir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	settingsPath := GetSettingsFilePath()
	if FileExists(settingsPath) {
		return nil
	}

	if err := os.WriteFile(settingsPath, []byte(systemConfigTemplate), 0600); err != nil {
		return fmt.Errorf("failed to write system config: %w", err)
	}

	return nil
}

func CreateDefaultUserConfig(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	userConfigPath := filepath.Join(dataDir, "config.toml")
	if FileExists(userConfigPath) {
		return nil
	}

	if err := os.WriteFile(userConfigPath, []byte(userConfigTemplate), 0600); err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}

	return nil
}
