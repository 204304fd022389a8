package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Pipeline.StartPage == 0 {
		cfg.Pipeline.StartPage = 1
	}
	if cfg.Pipeline.EndPage == 0 {
		cfg.Pipeline.EndPage = 100
	}
	if cfg.Pipeline.BatchSize == 0 {
		cfg.Pipeline.BatchSize = 100
	}
	if cfg.Pipeline.PageDelay == 0 {
		cfg.Pipeline.PageDelay = 2 * time.Second
	}
	if cfg.Pipeline.MaxRecursion == 0 {
		cfg.Pipeline.MaxRecursion = 3
	}
	if cfg.Checkpoint.Dir == "" {
		cfg.Checkpoint.Dir = "checkpoints"
	}

	return &cfg, nil
}
