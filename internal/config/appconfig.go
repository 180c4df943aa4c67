package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ServerConfig contains the HTTP server configuration.
type ServerConfig struct {
	Listen string `yaml:"listen" validate:"required"`
}

// StorageConfig contains filesystem and database paths.
type StorageConfig struct {
	DBPath       string `yaml:"db_path" validate:"required"`
	MediaDir     string `yaml:"media_dir" validate:"required"`
	ProcessedDir string `yaml:"processed_dir"`
	CSVDir       string `yaml:"csv_dir"`
}

// AppConfig is the root application configuration loaded from config.yml.
// Tuning parameters live separately in the tuning JSON (see TuningConfig);
// this file covers deployment concerns only.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server" validate:"required"`
	Storage StorageConfig `yaml:"storage" validate:"required"`
	Units   string        `yaml:"units" validate:"omitempty,oneof=mps mph kmph kph"`
	Tuning  string        `yaml:"tuning"` // optional path to a tuning JSON overriding the defaults
}

// DefaultAppConfig returns the configuration used when no config.yml exists.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Server: ServerConfig{Listen: ":8080"},
		Storage: StorageConfig{
			DBPath:       "detections.db",
			MediaDir:     "media",
			ProcessedDir: "media/processed",
			CSVDir:       "media/csv",
		},
		Units: "kmph",
	}
}

// LoadAppConfig loads and validates the application configuration from the
// given YAML file. A missing file is not an error: the defaults are returned.
func LoadAppConfig(path string) (AppConfig, error) {
	cfg := DefaultAppConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read app config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse app config: %w", err)
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid app config: %w", err)
	}

	if cfg.Storage.ProcessedDir == "" {
		cfg.Storage.ProcessedDir = cfg.Storage.MediaDir + "/processed"
	}
	if cfg.Storage.CSVDir == "" {
		cfg.Storage.CSVDir = cfg.Storage.MediaDir + "/csv"
	}
	if cfg.Units == "" {
		cfg.Units = "kmph"
	}

	return cfg, nil
}
