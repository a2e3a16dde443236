package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file structure.
type FileConfig struct {
	ServerPort      string                    `toml:"server_port"`
	StrictParams    *bool                     `toml:"strict_params"`
	DefaultProvider string                    `toml:"default_provider"`
	Providers       map[string]ProviderConfig `toml:"providers"`
}

// ProviderConfig holds per-provider settings from the config file. Values set
// here take precedence over environment aliases during credential resolution.
type ProviderConfig struct {
	BaseURL        string `toml:"base_url"`
	APIVersion     string `toml:"api_version"`
	ProjectID      string `toml:"project_id"`
	SpaceID        string `toml:"space_id"`
	Region         string `toml:"region"`
	CredentialName string `toml:"credential_name"`
}

// ConfigPath returns the path to the config file (~/.modelgate/config.toml).
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

// LoadFile loads configuration from the TOML file.
// Returns an empty FileConfig if the file doesn't exist.
func LoadFile() (*FileConfig, error) {
	cfg := &FileConfig{}

	path := ConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EnsureConfigFile creates a default config file with commented examples if none exists.
func EnsureConfigFile() error {
	path := ConfigPath()

	// If config already exists, do nothing
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	// Ensure directory exists
	if err := EnsureDataDir(); err != nil {
		return err
	}

	defaultConfig := `# Modelgate Configuration
# server_port = ":8080"
# strict_params = false

# Provider used for model names without a "provider/" prefix
# default_provider = "openai"

# Per-provider settings. Values here win over environment variables
# during credential resolution.
# [providers.watsonx]
# base_url = "https://us-south.ml.cloud.ibm.com"
# api_version = "2024-03-13"
# project_id = "my-project-id"
# credential_name = "my-watsonx-key"  # Name of stored credential

# [providers.openai]
# credential_name = "my-openai-key"

# [providers.azure]
# base_url = "https://my-resource.openai.azure.com"

# [providers.assemblyai]
# region = "eu"

# [providers.bedrock]
# region = "us-west-2"
`

	return os.WriteFile(path, []byte(defaultConfig), 0644)
}
