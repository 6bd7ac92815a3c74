// Package config handles ReBin Pro configuration.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds all configuration
type Config struct {
	// Paths
	DataDir string `koanf:"data_dir"`

	// Server
	Server ServerConfig `koanf:"server"`

	// Logging
	LogLevel string `koanf:"log_level"`

	// Services
	Detector  DetectorConfig  `koanf:"detector"`
	Reasoning ReasoningConfig `koanf:"reasoning"`
	Speech    SpeechConfig    `koanf:"speech"`
}

// ServerConfig for the HTTP server
type ServerConfig struct {
	Addr           string `koanf:"addr"`
	FrontendOrigin string `koanf:"frontend_origin"`
}

// DetectorConfig for the vision-inference endpoint
type DetectorConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// ReasoningConfig for the hosted LLM endpoint
type ReasoningConfig struct {
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// SpeechConfig for the text-to-speech endpoint
type SpeechConfig struct {
	APIKey  string        `koanf:"api_key"`
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// Default returns default configuration
func Default() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		DataDir:  filepath.Join(home, ".rebin"),
		LogLevel: "info",
		Server: ServerConfig{
			Addr:           ":8000",
			FrontendOrigin: "http://localhost:5173",
		},
		Detector: DetectorConfig{
			URL:     "http://cv-mock:9000/predict",
			Timeout: 30 * time.Second,
		},
		Reasoning: ReasoningConfig{
			Model:   "openai/gpt-4o-mini",
			BaseURL: "https://openrouter.ai/api",
			Timeout: 40 * time.Second,
		},
		Speech: SpeechConfig{
			BaseURL: "https://api.elevenlabs.io",
			Timeout: 30 * time.Second,
		},
	}
}

// DBPath returns the sqlite database path under the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "rebin.db")
}
