// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and persists application settings from
// ~/.charla/config.toml.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/charla-tui/internal/util"
)

// AppDirName is the dot-directory under the user home.
const AppDirName = ".charla"

// Config is the root configuration.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	History HistoryConfig `toml:"history"`
	Voice   VoiceConfig   `toml:"voice"`
	UI      UIConfig      `toml:"ui"`
}

// BackendConfig selects the generation backend and request parameters.
type BackendConfig struct {
	// BaseURL of an OpenAI-compatible endpoint.
	BaseURL string `toml:"base_url"`

	// APIKey may be plaintext or an ENC: value (see secret.go). An empty
	// key falls back to the CHARLA_API_KEY environment variable.
	APIKey string `toml:"api_key"`

	Model        string  `toml:"model"`
	SystemPrompt string  `toml:"system_prompt"`
	Temperature  float64 `toml:"temperature"`
	MaxTokens    int     `toml:"max_tokens"`

	// RequestsPerMinute throttles outgoing requests; 0 disables.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// HistoryConfig controls the conversation archive.
type HistoryConfig struct {
	// Path of the archive JSON file; empty uses ~/.charla/history.json.
	Path string `toml:"path"`

	// Limit is how many conversations to retain.
	Limit int `toml:"limit"`
}

// VoiceConfig controls spoken replies.
type VoiceConfig struct {
	Enabled bool `toml:"enabled"`

	// Command is the TTS binary; empty auto-detects.
	Command string `toml:"command"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	// Theme is "dark" or "light".
	Theme string `toml:"theme"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:      "http://localhost:8080/v1",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are a concise, friendly assistant.",
			Temperature:  0.7,
			MaxTokens:    256,
		},
		History: HistoryConfig{Limit: 3},
		Voice:   VoiceConfig{Enabled: true},
		UI:      UIConfig{Theme: "dark"},
	}
}

// Dir returns the application data directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, AppDirName), nil
}

// DefaultPath returns the config file path.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config at path, filling omitted fields with defaults.
// A missing file returns defaults and no error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyFallbacks()
	return cfg, nil
}

// Save writes the config atomically.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// HistoryPath resolves the archive file location.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.json"), nil
}

// UsagePath resolves the usage ledger location.
func (c *Config) UsagePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "usage.db"), nil
}

// ResolveAPIKey returns the usable API key: decrypted when stored as an
// ENC: value, else the literal value, else the environment fallback.
func (c *Config) ResolveAPIKey() (string, error) {
	key := c.Backend.APIKey
	if key == "" {
		return os.Getenv("CHARLA_API_KEY"), nil
	}
	if IsEncrypted(key) {
		return DecryptValue(key)
	}
	return key, nil
}

func (c *Config) applyFallbacks() {
	d := Default()
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = d.Backend.BaseURL
	}
	if c.Backend.Model == "" {
		c.Backend.Model = d.Backend.Model
	}
	if c.Backend.Temperature <= 0 {
		c.Backend.Temperature = d.Backend.Temperature
	}
	if c.Backend.MaxTokens <= 0 {
		c.Backend.MaxTokens = d.Backend.MaxTokens
	}
	if c.History.Limit <= 0 {
		c.History.Limit = d.History.Limit
	}
	if c.UI.Theme != "light" && c.UI.Theme != "dark" {
		c.UI.Theme = d.UI.Theme
	}
}
