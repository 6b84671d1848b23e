// Package config defines the application configuration, loaded from a YAML
// file and SOCIAL_* environment variables via viper. Behavioral thresholds
// (pause windows, jitter windows) stay explicit parameters on the packages
// that use them; this file only carries process-level wiring.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
)

// Config is the full application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Replay  ReplayConfig  `mapstructure:"replay" yaml:"replay"`
}

// LoggerConfig configures the zap logger and its file rotation.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // console or json
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`

	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// StorageConfig selects the blob backend for sessions and profiles.
type StorageConfig struct {
	// Backend is "file" or "postgres".
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Dir is the file backend's root directory.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// PostgresURL is the postgres backend's connection string.
	PostgresURL string `mapstructure:"postgres_url" yaml:"postgres_url"`
}

// CaptureConfig tunes recording.
type CaptureConfig struct {
	QueueSize      int           `mapstructure:"queue_size" yaml:"queue_size"`
	PauseThreshold time.Duration `mapstructure:"pause_threshold" yaml:"pause_threshold"`
}

// ReplayConfig tunes replay.
type ReplayConfig struct {
	Speed float64 `mapstructure:"speed" yaml:"speed"`
	// TargetURL, when set, routes replay into a live browser via CDP instead
	// of the JSONL stdout sink.
	TargetURL string `mapstructure:"target_url" yaml:"target_url"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "social",
			MaxSize:     50,
			MaxBackups:  3,
			MaxAge:      14,
		},
		Storage: StorageConfig{
			Backend: "file",
			Dir:     defaultDataDir(),
		},
		Capture: CaptureConfig{
			QueueSize:      4096,
			PauseThreshold: 2 * time.Second,
		},
		Replay: ReplayConfig{
			Speed: 1.0,
		},
	}
}

// Validate rejects configurations the process cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file":
		if c.Storage.Dir == "" {
			return fmt.Errorf("config: storage.dir is required for the file backend")
		}
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("config: storage.postgres_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.Replay.Speed <= 0 {
		return fmt.Errorf("config: replay.speed must be positive")
	}
	return nil
}

func defaultDataDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return ".social"
	}
	return filepath.Join(home, ".social")
}
