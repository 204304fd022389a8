package config

import (
	"time"

	"github.com/vietddude/prospector/internal/infra/browser"
	redisclient "github.com/vietddude/prospector/internal/infra/redis"
	"github.com/vietddude/prospector/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Pipeline   PipelineConfig     `yaml:"pipeline"`
	Crypto     CryptoConfig       `yaml:"crypto"`
	Checkpoint CheckpointConfig   `yaml:"checkpoint"`
	Browser    browser.Config     `yaml:"browser"`
	Auth       AuthConfig         `yaml:"auth"`
	Redis      redisclient.Config `yaml:"redis"`
	Logging    LoggingConfig      `yaml:"logging"`
	Database   postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// PipelineConfig holds settings for the harvest and processing phases.
type PipelineConfig struct {
	StartPage    int           `yaml:"start_page"`
	EndPage      int           `yaml:"end_page"`
	BatchSize    int           `yaml:"batch_size"`
	PageDelay    time.Duration `yaml:"page_delay"`
	ItemDelay    time.Duration `yaml:"item_delay"`
	PauseWindow  time.Duration `yaml:"pause_window"`
	MaxRecursion int           `yaml:"max_recursion"`
}

// CryptoConfig holds the sealed-envelope key material locations. The
// private key stays on disk and is only ever read by the recovery path.
type CryptoConfig struct {
	PublicKey      string `yaml:"public_key"`
	PrivateKeyPath string `yaml:"private_key_path"`
}

// CheckpointConfig holds checkpoint file settings.
type CheckpointConfig struct {
	Dir string `yaml:"dir"`
}

// AuthConfig holds bearer-token verification settings.
type AuthConfig struct {
	Secret string `yaml:"secret"`
}
