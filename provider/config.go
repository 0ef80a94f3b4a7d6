package provider

import (
	"fmt"
	"os"
	"time"
)

// Config holds configuration for creating an adapter.
// Common fields apply to all providers; use Options for provider-specific settings.
type Config struct {
	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url"`

	// APIKey authenticates requests. Most adapters require it.
	APIKey string `json:"api_key" yaml:"api_key" toml:"api_key"`

	// Timeout is the maximum duration for a single network call.
	// 0 uses the adapter default.
	Timeout time.Duration `json:"timeout" yaml:"timeout" toml:"timeout"`

	// Env provides additional environment variables for adapter execution.
	Env map[string]string `json:"env" yaml:"env" toml:"env"`

	// Options holds provider-specific configuration.
	// See each adapter's documentation for available options.
	Options map[string]any `json:"options" yaml:"options" toml:"options"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout: 2 * time.Minute,
	}
}

// LoadFromEnv populates config fields from environment variables.
// Environment variables use the LLMBROKER_ prefix and take precedence
// over existing values.
//
// Supported variables:
//   - LLMBROKER_BASE_URL: API endpoint override
//   - LLMBROKER_API_KEY: API key
//   - LLMBROKER_TIMEOUT: Call timeout duration (e.g., "2m")
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("LLMBROKER_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("LLMBROKER_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("LLMBROKER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
}

// FromEnv creates a Config from environment variables with defaults.
func FromEnv() Config {
	cfg := DefaultConfig()
	cfg.LoadFromEnv()
	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	return nil
}

// WithOption returns a copy of the config with the specified option set.
func (c Config) WithOption(key string, value any) Config {
	newOpts := make(map[string]any, len(c.Options)+1)
	for k, v := range c.Options {
		newOpts[k] = v
	}
	newOpts[key] = value
	c.Options = newOpts
	return c
}

// GetStringOption retrieves a string option, returning defaultVal if not set.
func (c Config) GetStringOption(key, defaultVal string) string {
	if c.Options == nil {
		return defaultVal
	}
	if v, ok := c.Options[key].(string); ok {
		return v
	}
	return defaultVal
}

// GetBoolOption retrieves a bool option, returning defaultVal if not set.
func (c Config) GetBoolOption(key string, defaultVal bool) bool {
	if c.Options == nil {
		return defaultVal
	}
	if v, ok := c.Options[key].(bool); ok {
		return v
	}
	return defaultVal
}
