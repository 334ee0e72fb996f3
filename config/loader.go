package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zhubert/tailrun/paths"
)

// Load reads config.yaml from the tailrun config directory.
// Returns an empty config (all defaults) if the file does not exist.
func Load() (*Config, error) {
	fp, err := paths.ConfigFilePath()
	if err != nil {
		return nil, err
	}
	return LoadFile(fp)
}

// LoadFile reads and parses a config file at an explicit path.
// Returns an empty config (all defaults) if the file does not exist.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
