// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete privchat configuration.
type Config struct {
	// DefaultModel is the model selected at startup
	DefaultModel string `toml:"default_model"`

	// Models is the catalog offered by the model switcher
	Models []string `toml:"models"`

	// DefaultRole is the persona selected at startup
	DefaultRole string `toml:"default_role"`

	// Roles are the selectable personas
	Roles []Role `toml:"roles"`

	// Backend configures how the local Ollama install is reached
	Backend BackendConfig `toml:"backend"`

	// Generation holds the default sampling parameters
	Generation GenerationConfig `toml:"generation"`

	// UI holds presentation settings
	UI UIConfig `toml:"ui"`

	// Log holds logging settings
	Log LogConfig `toml:"log"`
}

// Role is a selectable persona: a display name and the system prompt
// that establishes it.
type Role struct {
	Name   string `toml:"name"`
	Prompt string `toml:"prompt"`
}

// BackendConfig configures the local backend.
type BackendConfig struct {
	// Command is the backend executable name or path
	Command string `toml:"command"`

	// URL is the backend HTTP API base URL
	URL string `toml:"url"`

	// ProbeTimeoutSecs bounds a single availability probe
	ProbeTimeoutSecs int `toml:"probe_timeout_secs"`

	// StartupTimeoutSecs bounds waiting for a freshly started daemon
	StartupTimeoutSecs int `toml:"startup_timeout_secs"`
}

// GenerationConfig holds default sampling parameters.
type GenerationConfig struct {
	// Temperature in [0, 1]
	Temperature float64 `toml:"temperature"`

	// MaxTokens in [128, 512]
	MaxTokens int `toml:"max_tokens"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	// DarkTheme selects the night palette
	DarkTheme bool `toml:"dark_theme"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Path is the log file location (empty = ~/.privchat/privchat.log)
	Path string `toml:"path"`

	// Level is the zerolog level name: debug, info, warn, error
	Level string `toml:"level"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		DefaultModel: "tinyllama",
		Models: []string{
			"tinyllama",
			"llama3.2:1b",
			"llama3.2",
			"mistral",
			"phi3:mini",
			"gemma2:2b",
		},
		DefaultRole: "Chat AI",
		Roles: []Role{
			{
				Name:   "Chat AI",
				Prompt: "You are a friendly, knowledgeable assistant. Answer clearly and concisely.",
			},
			{
				Name:   "Customer Service",
				Prompt: "You are a polite customer service representative. Stay professional, acknowledge the customer's concern, and offer concrete next steps.",
			},
			{
				Name:   "Translator",
				Prompt: "You are a translator. Translate the user's text faithfully, preserving tone and register. If the target language is not stated, ask for it.",
			},
		},
		Backend: BackendConfig{
			Command:            "ollama",
			URL:                "http://127.0.0.1:11434",
			ProbeTimeoutSecs:   5,
			StartupTimeoutSecs: 10,
		},
		Generation: GenerationConfig{
			Temperature: 0.3,
			MaxTokens:   256,
		},
		UI: UIConfig{
			DarkTheme: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the privchat configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".privchat"), nil
}

// DefaultPath returns the path to the config file.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads configuration from the given path on top of defaults.
// A missing file is not an error; defaults plus environment overrides
// are returned. An empty path uses DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SetDefaults fills in any missing values from the defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.DefaultModel == "" {
		c.DefaultModel = defaults.DefaultModel
	}
	if len(c.Models) == 0 {
		c.Models = defaults.Models
	}
	if len(c.Roles) == 0 {
		c.Roles = defaults.Roles
	}
	if c.DefaultRole == "" {
		c.DefaultRole = c.Roles[0].Name
	}
	if c.Backend.Command == "" {
		c.Backend.Command = defaults.Backend.Command
	}
	if c.Backend.URL == "" {
		c.Backend.URL = defaults.Backend.URL
	}
	if c.Backend.ProbeTimeoutSecs == 0 {
		c.Backend.ProbeTimeoutSecs = defaults.Backend.ProbeTimeoutSecs
	}
	if c.Backend.StartupTimeoutSecs == 0 {
		c.Backend.StartupTimeoutSecs = defaults.Backend.StartupTimeoutSecs
	}
	if c.Generation.Temperature == 0 {
		c.Generation.Temperature = defaults.Generation.Temperature
	}
	if c.Generation.MaxTokens == 0 {
		c.Generation.MaxTokens = defaults.Generation.MaxTokens
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 1 {
		return ValidationError{
			Field:   "generation.temperature",
			Message: fmt.Sprintf("must be in [0, 1], got %g", c.Generation.Temperature),
		}
	}
	if c.Generation.MaxTokens < 128 || c.Generation.MaxTokens > 512 {
		return ValidationError{
			Field:   "generation.max_tokens",
			Message: fmt.Sprintf("must be in [128, 512], got %d", c.Generation.MaxTokens),
		}
	}
	if c.Backend.ProbeTimeoutSecs < 1 {
		return ValidationError{
			Field:   "backend.probe_timeout_secs",
			Message: "must be at least 1",
		}
	}
	if c.Backend.StartupTimeoutSecs < 1 {
		return ValidationError{
			Field:   "backend.startup_timeout_secs",
			Message: "must be at least 1",
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level %q, must be one of: debug, info, warn, error", c.Log.Level),
		}
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported:
//   - PRIVCHAT_MODEL: overrides default_model
//   - PRIVCHAT_BACKEND_COMMAND: overrides backend.command
//   - PRIVCHAT_BACKEND_URL: overrides backend.url
//   - PRIVCHAT_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if model := os.Getenv("PRIVCHAT_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if cmd := os.Getenv("PRIVCHAT_BACKEND_COMMAND"); cmd != "" {
		c.Backend.Command = cmd
	}
	if url := os.Getenv("PRIVCHAT_BACKEND_URL"); url != "" {
		c.Backend.URL = url
	}
	if level := os.Getenv("PRIVCHAT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// RolePrompt returns the prompt of the named role, falling back to the
// first role when the name is unknown.
func (c *Config) RolePrompt(name string) string {
	for _, r := range c.Roles {
		if r.Name == name {
			return r.Prompt
		}
	}
	if len(c.Roles) > 0 {
		return c.Roles[0].Prompt
	}
	return ""
}

// Save writes the configuration to a TOML file.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# privchat configuration file")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
