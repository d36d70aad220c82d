package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// CredentialStore manages API credentials, kept in a 0600 TOML file separate
// from the main config so the config can be shared or synced freely.
type CredentialStore struct {
	credentials map[string]string // providerID → API key
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{credentials: make(map[string]string)}
}

// Load reads the credentials file. A missing file is an empty store, not an
// error.
func (c *CredentialStore) Load(dataDir string) error {
	path := credentialsPath(dataDir)
	if !FileExists(path) {
		return nil
	}

	type credentialsFile struct {
		Credentials map[string]string `toml:"credentials"`
	}
	var cf credentialsFile
	if _, err := toml.DecodeFile(path, &cf); err != nil {
		return fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if cf.Credentials != nil {
		c.credentials = cf.Credentials
	}
	return nil
}

// Save writes the credentials file with 0600 permissions.
func (c *CredentialStore) Save(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	path := credentialsPath(dataDir)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create credentials file: %w", err)
	}
	defer f.Close()

	payload := struct {
		Credentials map[string]string `toml:"credentials"`
	}{Credentials: c.credentials}

	if err := toml.NewEncoder(f).Encode(payload); err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	return nil
}

// Get retrieves a credential for a provider. Unknown providers yield "".
func (c *CredentialStore) Get(providerID string) string {
	return c.credentials[providerID]
}

// Set stores a credential for a provider in memory; call Save to persist.
func (c *CredentialStore) Set(providerID, apiKey string) {
	c.credentials[providerID] = apiKey
}

// Delete removes a credential for a provider.
func (c *CredentialStore) Delete(providerID string) {
	delete(c.credentials, providerID)
}

func credentialsPath(dataDir string) string {
	return filepath.Join(dataDir, "credentials.toml")
}
