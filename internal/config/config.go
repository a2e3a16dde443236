package config

import "os"

// Config holds application configuration loaded from environment and file.
// Priority: Env vars → config.toml → defaults
type Config struct {
	// ServerPort is the address to bind the server to (e.g., ":8080")
	ServerPort string

	// StrictParams rejects canonical parameters a provider does not support
	// instead of silently dropping them.
	StrictParams bool

	// DefaultProvider handles model names without a provider prefix.
	DefaultProvider string

	// Providers contains per-provider settings keyed by provider id.
	Providers map[string]ProviderConfig
}

// Load reads configuration from file and environment variables.
// Environment variables override file config values.
func Load() *Config {
	fileConfig, _ := LoadFile() // absent or broken file means defaults

	return &Config{
		ServerPort:      envOr("SERVER_PORT", fileConfig.ServerPort, ":8080"),
		StrictParams:    envBoolOr("STRICT_PARAMS", fileConfig.StrictParams, false),
		DefaultProvider: envOr("DEFAULT_PROVIDER", fileConfig.DefaultProvider, "openai"),
		Providers:       fileConfig.Providers,
	}
}

// Provider returns the settings for a provider id, or a zero value if none
// are configured.
func (c *Config) Provider(id string) ProviderConfig {
	if c == nil || c.Providers == nil {
		return ProviderConfig{}
	}
	return c.Providers[id]
}

// envOr returns the first set value: environment, file, fallback.
func envOr(key, fileValue, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if fileValue != "" {
		return fileValue
	}
	return fallback
}

// envBoolOr reads a truthy env flag ("true", "1", "yes"), falling back to
// the file value and then the default.
func envBoolOr(key string, fileValue *bool, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1" || v == "yes"
	}
	if fileValue != nil {
		return *fileValue
	}
	return fallback
}
