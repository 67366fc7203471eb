// Package daemon provides the relaypoint daemon: configuration,
// lifecycle, and the HTTP handlers of the release mirror service.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/relaypoint/relaypoint/pkg/storage"
)

// Config holds the daemon configuration. Secrets fail closed: a missing
// webhook or sync secret causes the corresponding endpoint to reject all
// requests rather than fall back to an insecure default.
type Config struct {
	// ListenAddr is the HTTP server address (default: "127.0.0.1:8080")
	ListenAddr string `yaml:"listen_addr"`

	// StorageDir is the release mirror root (default: /data/releases)
	StorageDir string `yaml:"storage_dir"`

	// RepoOwner is the upstream repository owner, fixed per deployment
	RepoOwner string `yaml:"repo_owner"`

	// RepoName is the upstream repository name
	RepoName string `yaml:"repo_name"`

	// WebhookSecret is the shared secret for webhook signatures
	WebhookSecret string `yaml:"webhook_secret,omitempty"`

	// SyncSecret is the shared secret for the manual sync trigger
	SyncSecret string `yaml:"sync_secret,omitempty"`

	// LogLevel is the logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogFormat is the log output format (json, console)
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: "127.0.0.1:8080",
		StorageDir: "/data/releases",
		LogLevel:   "info",
		LogFormat:  "json",
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr cannot be empty")
	}
	if c.StorageDir == "" {
		return fmt.Errorf("storage_dir cannot be empty")
	}
	if c.RepoOwner == "" {
		return fmt.Errorf("repo_owner cannot be empty")
	}
	if c.RepoName == "" {
		return fmt.Errorf("repo_name cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	return nil
}

// LoadFromEnv applies environment variable overrides. Env names for the
// storage path and secrets match the original deployment convention.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("RELAYD_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("RELEASES_STORAGE_PATH"); v != "" {
		c.StorageDir = v
	}
	if v := os.Getenv("RELAYD_REPO_OWNER"); v != "" {
		c.RepoOwner = v
	}
	if v := os.Getenv("RELAYD_REPO_NAME"); v != "" {
		c.RepoName = v
	}
	if v := os.Getenv("GITHUB_WEBHOOK_SECRET"); v != "" {
		c.WebhookSecret = v
	}
	if v := os.Getenv("RELEASE_SYNC_SECRET"); v != "" {
		c.SyncSecret = v
	}
	if v := os.Getenv("RELAYD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("RELAYD_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
}

// EnsureStorageDir creates the storage root when missing.
func (c *Config) EnsureStorageDir() error {
	return storage.EnsureDir(c.StorageDir, 0755)
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if err := storage.LoadYAMLFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig writes the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	if err := storage.EnsureDir(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return storage.SaveYAMLFile(path, config)
}
