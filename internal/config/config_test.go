package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Server.Addr != ":8000" {
		t.Errorf("unexpected addr: %q", cfg.Server.Addr)
	}
	if cfg.Detector.Timeout != 30*time.Second {
		t.Errorf("unexpected detector timeout: %v", cfg.Detector.Timeout)
	}
	if cfg.Reasoning.Timeout != 40*time.Second {
		t.Errorf("unexpected reasoning timeout: %v", cfg.Reasoning.Timeout)
	}
	if cfg.Reasoning.Model != "openai/gpt-4o-mini" {
		t.Errorf("unexpected model: %q", cfg.Reasoning.Model)
	}
	if filepath.Base(cfg.DBPath()) != "rebin.db" {
		t.Errorf("unexpected db path: %q", cfg.DBPath())
	}
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("unexpected addr: %q", cfg.Server.Addr)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  addr: ":9000"
log_level: debug
reasoning:
  model: test/model
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("expected file override, got %q", cfg.Server.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug level, got %q", cfg.LogLevel)
	}
	if cfg.Reasoning.Model != "test/model" {
		t.Errorf("expected model override, got %q", cfg.Reasoning.Model)
	}
	// Untouched values keep their defaults
	if cfg.Speech.BaseURL != "https://api.elevenlabs.io" {
		t.Errorf("unexpected speech base url: %q", cfg.Speech.BaseURL)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":9000\"\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("REBIN_SERVER_ADDR", ":7777")
	t.Setenv("REBIN_REASONING_API_KEY", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":7777" {
		t.Errorf("expected env override, got %q", cfg.Server.Addr)
	}
	if cfg.Reasoning.APIKey != "env-key" {
		t.Errorf("expected env api key, got %q", cfg.Reasoning.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
