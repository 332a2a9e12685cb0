// Package config loads client settings from ~/.irachat/config.yml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all client configuration.
type Config struct {
	BackendURL         string `yaml:"backend_url"`
	DataDir            string `yaml:"data_dir"`
	LogLevel           string `yaml:"log_level"`
	AuthTimeoutSeconds int    `yaml:"auth_timeout_seconds"`
}

// DefaultPath returns the expected location of the config file.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".irachat", "config.yml")
}

func defaults() Config {
	homeDir, _ := os.UserHomeDir()
	return Config{
		BackendURL:         "https://api.irachat.app",
		DataDir:            filepath.Join(homeDir, ".irachat"),
		LogLevel:           "info",
		AuthTimeoutSeconds: 3,
	}
}

// Load reads the config file at path. A missing file is not an error; the
// client runs on defaults.
func Load(path string) (Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.AuthTimeoutSeconds <= 0 {
		cfg.AuthTimeoutSeconds = 3
	}
	return cfg, nil
}

// AuthTimeout returns the auth initialization bound as a duration.
func (c Config) AuthTimeout() time.Duration {
	return time.Duration(c.AuthTimeoutSeconds) * time.Second
}
