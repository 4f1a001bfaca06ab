package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadMissingFile tests that a missing config file yields defaults
func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Missing file should not be an error: %v", err)
	}
	if cfg.BackendURL != "http://localhost:8000" {
		t.Errorf("Unexpected default backend: %q", cfg.BackendURL)
	}
	if cfg.TimeoutSeconds != 30 {
		t.Errorf("Unexpected default timeout: %d", cfg.TimeoutSeconds)
	}
	if cfg.DocsDir != "docs" {
		t.Errorf("Unexpected default docs dir: %q", cfg.DocsDir)
	}
	if cfg.StatePath == "" {
		t.Error("Default state path should not be empty")
	}
}

// TestLoadPartialFile tests that unset fields keep their defaults
func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "backend_url: https://docs.example.com/api\ntimeout_seconds: 5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BackendURL != "https://docs.example.com/api" {
		t.Errorf("Unexpected backend: %q", cfg.BackendURL)
	}
	if cfg.TimeoutSeconds != 5 {
		t.Errorf("Unexpected timeout: %d", cfg.TimeoutSeconds)
	}
	if cfg.DocsDir != "docs" {
		t.Errorf("Unset docs dir should keep its default, got %q", cfg.DocsDir)
	}
}

// TestLoadMalformedFile tests that bad YAML is a real error
func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("backend_url: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Malformed config should fail to load")
	}
}

// TestTimeout tests the seconds-to-duration conversion and its floor
func TestTimeout(t *testing.T) {
	if got := (Config{TimeoutSeconds: 5}).Timeout(); got != 5*time.Second {
		t.Errorf("Expected 5s, got %v", got)
	}
	if got := (Config{TimeoutSeconds: 0}).Timeout(); got != 30*time.Second {
		t.Errorf("Zero should fall back to 30s, got %v", got)
	}
	if got := (Config{TimeoutSeconds: -1}).Timeout(); got != 30*time.Second {
		t.Errorf("Negative should fall back to 30s, got %v", got)
	}
}
