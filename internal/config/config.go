// Package config reads quill's global configuration from
// ~/.config/quill/config.json and manages the per-machine device id.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SyncConfig holds sync-related settings.
type SyncConfig struct {
	URL           string `json:"url"`
	APIKey        string `json:"api_key,omitempty"`
	Interval      string `json:"interval,omitempty"`       // duration string, default "5m"
	SnapshotEvery string `json:"snapshot_every,omitempty"` // duration string, default "1h", "0" disables
}

// WatchConfig holds file-watch settings.
type WatchConfig struct {
	Debounce string `json:"debounce,omitempty"` // duration string, default "2s"
}

// Config is the global quill config.
type Config struct {
	Sync  SyncConfig  `json:"sync"`
	Watch WatchConfig `json:"watch"`
}

const (
	defaultServerURL     = "http://localhost:8080"
	defaultSyncInterval  = 5 * time.Minute
	defaultSnapshotEvery = time.Hour
	defaultDebounce      = 2 * time.Second
)

// Dir returns ~/.config/quill, creating it if necessary.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "quill")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// Load reads the global config. A missing file yields defaults.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config.json: %w", err)
	}
	return &cfg, nil
}

// Save writes the global config.
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// ServerURL returns the configured server URL or the default.
func (c *Config) ServerURL() string {
	if c.Sync.URL != "" {
		return c.Sync.URL
	}
	if v := os.Getenv("QUILL_SERVER_URL"); v != "" {
		return v
	}
	return defaultServerURL
}

// SyncInterval returns the scheduler interval.
func (c *Config) SyncInterval() time.Duration {
	return parseDuration(c.Sync.Interval, defaultSyncInterval)
}

// SnapshotEvery returns the auto-snapshot interval; zero disables.
func (c *Config) SnapshotEvery() time.Duration {
	return parseDuration(c.Sync.SnapshotEvery, defaultSnapshotEvery)
}

// WatchDebounce returns the file-watch debounce window.
func (c *Config) WatchDebounce() time.Duration {
	return parseDuration(c.Watch.Debounce, defaultDebounce)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// DeviceID returns this machine's stable device id, generating and
// persisting one on first use.
func DeviceID() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "device_id")

	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		return string(data), nil
	}

	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate device id: %w", err)
	}
	id := "dev-" + hex.EncodeToString(bytes)

	if err := os.WriteFile(path, []byte(id), 0600); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	return id, nil
}
