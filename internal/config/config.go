// Package config models jobos.yml, the workspace configuration that selects
// the active backend and holds sync server settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Backend modes.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
	ModeMemory = "memory"
)

// Config models jobos.yml.
type Config struct {
	Mode   string `yaml:"mode"`
	Remote struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
	} `yaml:"remote"`
	Server struct {
		Addr string `yaml:"addr"`
		// Secret signs bearer tokens. Empty disables auth, for local
		// development only.
		Secret string `yaml:"secret"`
	} `yaml:"server"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeLocal, ModeMemory:
	case ModeRemote:
		if c.Remote.BaseURL == "" {
			return fmt.Errorf("config.remote.base_url is required in remote mode")
		}
	default:
		return fmt.Errorf("config.mode must be local, remote, or memory")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "jobos.yml")
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	cfg.Mode = ModeLocal
	cfg.Server.Addr = ":8787"
	return &cfg
}

// Load reads and validates config from workspace, falling back to defaults
// when no file exists.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes. Fields the file
// omits keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config back to the workspace.
func (c *Config) Save(workspace string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(Path(workspace), data, 0o644)
}
