// Package config loads the bookchat configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the client needs to know about its environment.
// Values left out of the file keep their defaults; flags may override the
// loaded values afterwards.
type Config struct {
	// BackendURL is the base URL of the question-answering service.
	BackendURL string `yaml:"backend_url"`
	// TimeoutSeconds bounds a single query round trip.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// DocsDir is the root of the local documentation checkout shown in the
	// reader pane.
	DocsDir string `yaml:"docs_dir"`
	// StatePath is the SQLite file holding persisted sessions.
	StatePath string `yaml:"state_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BackendURL:     "http://localhost:8000",
		TimeoutSeconds: 30,
		DocsDir:        "docs",
		StatePath:      defaultStatePath(),
	}
}

// Timeout returns the query timeout as a duration.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DefaultPath returns the conventional location of the config file.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "bookchat.yaml"
	}
	return filepath.Join(homeDir, ".config", "bookchat", "config.yaml")
}

// Load reads the config file at path, falling back to defaults for missing
// fields. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.StatePath == "" {
		cfg.StatePath = defaultStatePath()
	}

	return cfg, nil
}

func defaultStatePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "bookchat.db"
	}
	return filepath.Join(homeDir, ".local", "share", "bookchat", "state.db")
}
