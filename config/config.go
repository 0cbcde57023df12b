// Package config loads the dashboard configuration from YAML or TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Http       HTTPConfig       `yaml:"http" toml:"http"`
	Log        LogConfig        `yaml:"log" toml:"log"`
	Database   DatabaseConfig   `yaml:"database" toml:"database"`
	Model      ModelConfig      `yaml:"model" toml:"model"`
	Evaluation EvaluationConfig `yaml:"evaluation" toml:"evaluation"`
	Cache      CacheConfig      `yaml:"cache" toml:"cache"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port" toml:"port"`
	Timeout        time.Duration `yaml:"timeout" toml:"timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins" toml:"allowed_origins"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" toml:"max_upload_bytes"`
}

type LogConfig struct {
	Level      string `yaml:"level" toml:"level"`
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
}

type DatabaseConfig struct {
	// Path of the prediction history database; empty disables history.
	Path string `yaml:"path" toml:"path"`
}

type ModelConfig struct {
	Type          string        `yaml:"type" toml:"type"`
	Path          string        `yaml:"path" toml:"path"`
	FeaturesPath  string        `yaml:"features_path" toml:"features_path"`
	RemoteURL     string        `yaml:"remote_url" toml:"remote_url"`
	RemoteTimeout time.Duration `yaml:"remote_timeout" toml:"remote_timeout"`
	// StrictAttributes rejects categorical values outside the legal sets
	// instead of encoding them as the baseline.
	StrictAttributes bool `yaml:"strict_attributes" toml:"strict_attributes"`
}

type EvaluationConfig struct {
	ActualPath    string `yaml:"actual_path" toml:"actual_path"`
	PredictedPath string `yaml:"predicted_path" toml:"predicted_path"`
	SampleSize    int    `yaml:"sample_size" toml:"sample_size"`
	Seed          int64  `yaml:"seed" toml:"seed"`
	Watch         bool   `yaml:"watch" toml:"watch"`
}

type CacheConfig struct {
	PredictionEntries int `yaml:"prediction_entries" toml:"prediction_entries"`
}

// Default returns the configuration used for unset fields.
func Default() Config {
	return Config{
		Http: HTTPConfig{
			Port:           8080,
			Timeout:        30 * time.Second,
			AllowedOrigins: []string{"*"},
			MaxUploadBytes: 10 << 20,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		Database: DatabaseConfig{Path: "data/salesdash.db"},
		Model: ModelConfig{
			Path:          "models/dynamic_pricing_model.json",
			FeaturesPath:  "models/model_features.json",
			RemoteTimeout: 5 * time.Second,
		},
		Evaluation: EvaluationConfig{
			ActualPath:    "models/y_test.json",
			PredictedPath: "models/y_pred.json",
			SampleSize:    20,
			Seed:          42,
		},
		Cache: CacheConfig{PredictionEntries: 1024},
	}
}

// Load reads path (.yaml/.yml or .toml) over the defaults and validates the
// result. Relative artifact paths are resolved against the config file's
// directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q", ErrInvalidConfig, filepath.Ext(path))
	}

	cfg.resolvePaths(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{
		&c.Database.Path,
		&c.Log.File,
		&c.Model.Path,
		&c.Model.FeaturesPath,
		&c.Evaluation.ActualPath,
		&c.Evaluation.PredictedPath,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("%w: http.port %d", ErrInvalidConfig, c.Http.Port)
	}
	if c.Http.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: http.max_upload_bytes must be positive", ErrInvalidConfig)
	}
	switch c.Model.Type {
	case "", "regression_forest", "linear":
		if c.Model.Path == "" {
			return fmt.Errorf("%w: model.path is required", ErrInvalidConfig)
		}
	case "remote":
		if c.Model.RemoteURL == "" {
			return fmt.Errorf("%w: model.remote_url is required for remote models", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown model.type %q", ErrInvalidConfig, c.Model.Type)
	}
	if c.Model.FeaturesPath == "" {
		return fmt.Errorf("%w: model.features_path is required", ErrInvalidConfig)
	}
	if c.Evaluation.SampleSize < 0 {
		return fmt.Errorf("%w: evaluation.sample_size must not be negative", ErrInvalidConfig)
	}
	if c.Cache.PredictionEntries < 0 {
		return fmt.Errorf("%w: cache.prediction_entries must not be negative", ErrInvalidConfig)
	}
	return nil
}
