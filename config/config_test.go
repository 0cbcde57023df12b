package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
http:
  port: 9090
  timeout: 10s
log:
  level: debug
model:
  type: linear
  path: models/linear.json
  features_path: /srv/features.json
evaluation:
  watch: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Http.Port != 9090 || cfg.Http.Timeout != 10*time.Second {
		t.Fatalf("unexpected http config: %+v", cfg.Http)
	}
	if cfg.Model.Path != filepath.Join(dir, "models/linear.json") {
		t.Fatalf("relative path not resolved: %s", cfg.Model.Path)
	}
	if cfg.Model.FeaturesPath != "/srv/features.json" {
		t.Fatalf("absolute path changed: %s", cfg.Model.FeaturesPath)
	}
	if cfg.Evaluation.SampleSize != 20 || cfg.Evaluation.Seed != 42 || !cfg.Evaluation.Watch {
		t.Fatalf("unexpected evaluation config: %+v", cfg.Evaluation)
	}
	if cfg.Http.MaxUploadBytes != 10<<20 {
		t.Fatalf("default not kept: %d", cfg.Http.MaxUploadBytes)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", `
[http]
port = 8181

[model]
type = "remote"
remote_url = "http://localhost:9000/predict"
remote_timeout = "2s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Http.Port != 8181 || cfg.Model.RemoteTimeout != 2*time.Second {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Http.Port = 0 }},
		{"unknown model type", func(c *Config) { c.Model.Type = "svm" }},
		{"remote without url", func(c *Config) { c.Model.Type = "remote" }},
		{"no features path", func(c *Config) { c.Model.FeaturesPath = "" }},
		{"negative sample", func(c *Config) { c.Evaluation.SampleSize = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.ini", "port=1")
	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
