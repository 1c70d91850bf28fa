// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDefaults(t *testing.T) *Config {
	t.Helper()
	// Point the search path somewhere without a config.yaml.
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadDefaults(t)

	assert.Equal(t, 50051, cfg.Server.GRPCPort)
	assert.Equal(t, 9100, cfg.Server.HTTPPort)
	assert.Equal(t, "local", cfg.Images.Type)
	assert.Equal(t, "softmax2_pre_activation", cfg.Model.OutputName)
	assert.Equal(t, 1008, cfg.Model.EmbeddingDim)
	assert.Equal(t, 224, cfg.Model.Preprocess.Width)
	assert.Equal(t, float32(117), cfg.Model.Preprocess.Mean)
	assert.True(t, cfg.Model.Preprocess.ChannelsLast)
	assert.Equal(t, 10*time.Minute, cfg.Training.Timeout)
	assert.Equal(t, 200, cfg.Training.Optimizer.MaxIterations)
	assert.Equal(t, 1.0, cfg.Training.Optimizer.L2)
	assert.False(t, cfg.OTEL.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CLASSIFIER_SERVER_GRPC_PORT", "6000")
	t.Setenv("CLASSIFIER_TRAINING_TIMEOUT", "90s")
	t.Setenv("CLASSIFIER_MODEL_USE_MOCK", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	cfg := loadDefaults(t)

	assert.Equal(t, 6000, cfg.Server.GRPCPort)
	assert.Equal(t, 90*time.Second, cfg.Training.Timeout)
	assert.True(t, cfg.Model.UseMock)
	assert.True(t, cfg.OTEL.Enabled)
	assert.Equal(t, "localhost:4317", cfg.OTEL.Endpoint)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classifier.yaml")
	yaml := `
server:
  grpc_port: 7000
training:
  train_manifest: data/train.tsv
  retrain_schedule: "@daily"
  optimizer:
    l2: 0.5
cache:
  backend: bolt
  bolt_path: /tmp/emb.db
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.GRPCPort)
	assert.Equal(t, "data/train.tsv", cfg.Training.TrainManifest)
	assert.Equal(t, "@daily", cfg.Training.RetrainSchedule)
	assert.Equal(t, 0.5, cfg.Training.Optimizer.L2)
	assert.Equal(t, 200, cfg.Training.Optimizer.MaxIterations)
	assert.Equal(t, "bolt", cfg.Cache.Backend)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad grpc port", func(c *Config) { c.Server.GRPCPort = 0 }},
		{"bad http port", func(c *Config) { c.Server.HTTPPort = 70000 }},
		{"same ports", func(c *Config) { c.Server.HTTPPort = c.Server.GRPCPort }},
		{"no train manifest", func(c *Config) { c.Training.TrainManifest = "" }},
		{"no test manifest", func(c *Config) { c.Training.TestManifest = "" }},
		{"negative workers", func(c *Config) { c.Training.Workers = -1 }},
		{"negative l2", func(c *Config) { c.Training.Optimizer.L2 = -1 }},
		{"no model path", func(c *Config) { c.Model.ModelPath = "" }},
		{"zero scale", func(c *Config) { c.Model.Preprocess.Scale = 0 }},
		{"unknown store", func(c *Config) { c.Images.Type = "ftp" }},
		{"s3 without bucket", func(c *Config) { c.Images.Type = "s3" }},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "memcached" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadDefaults(t)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_MockNeedsNoModel(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Model.UseMock = true
	cfg.Model.ModelPath = ""
	assert.NoError(t, cfg.Validate())
}
