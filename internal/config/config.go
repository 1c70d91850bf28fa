// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/SyedDaiam9101/transfer-classifier/internal/cache"
	"github.com/SyedDaiam9101/transfer-classifier/internal/imagestore"
	"github.com/SyedDaiam9101/transfer-classifier/internal/inference"
	"github.com/SyedDaiam9101/transfer-classifier/internal/logging"
	"github.com/SyedDaiam9101/transfer-classifier/internal/maxent"
)

const envPrefix = "CLASSIFIER"

// Config holds all configuration for the service
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Images   imagestore.Config `mapstructure:"images"`
	Model    inference.Config  `mapstructure:"model"`
	Cache    cache.Config      `mapstructure:"cache"`
	Training TrainingConfig    `mapstructure:"training"`
	Log      logging.Config    `mapstructure:"log"`
	OTEL     OTELConfig        `mapstructure:"otel"`
}

type ServerConfig struct {
	GRPCPort int `mapstructure:"grpc_port"`
	HTTPPort int `mapstructure:"http_port"`
}

// TrainingConfig locates the labeled data and bounds a training run.
type TrainingConfig struct {
	TrainManifest string `mapstructure:"train_manifest"`
	TestManifest  string `mapstructure:"test_manifest"`
	// Workers bounds concurrent featurization; 0 means GOMAXPROCS.
	Workers int `mapstructure:"workers"`
	// RetrainSchedule is a cron spec; empty disables scheduled retraining.
	RetrainSchedule string         `mapstructure:"retrain_schedule"`
	Timeout         time.Duration  `mapstructure:"timeout"`
	Optimizer       maxent.Options `mapstructure:"optimizer"`
}

type OTELConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// New returns a viper instance with defaults and environment binding.
// Callers bind command-line flags onto it before Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	// CLASSIFIER_TRAINING_TIMEOUT overrides training.timeout, and so on.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Also read OTEL standard env vars
	_ = v.BindEnv("otel.endpoint", envPrefix+"_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.http_port", 9100)

	v.SetDefault("images.type", "local")
	v.SetDefault("images.dir", "assets/images")
	v.SetDefault("images.s3.region", "us-east-1")

	v.SetDefault("model.model_path", "assets/inception/inception.onnx")
	v.SetDefault("model.shared_library_path", "")
	v.SetDefault("model.input_name", "input")
	v.SetDefault("model.output_name", "softmax2_pre_activation")
	v.SetDefault("model.embedding_dim", 1008)
	v.SetDefault("model.preprocess.width", 224)
	v.SetDefault("model.preprocess.height", 224)
	v.SetDefault("model.preprocess.channels_last", true)
	v.SetDefault("model.preprocess.mean", 117)
	v.SetDefault("model.preprocess.scale", 1)
	v.SetDefault("model.use_mock", false)

	v.SetDefault("cache.backend", "none")
	v.SetDefault("cache.lru_size", 1024)
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.redis", "localhost:6379")
	v.SetDefault("cache.bolt_path", "embeddings.db")

	v.SetDefault("training.train_manifest", "assets/images/tags.tsv")
	v.SetDefault("training.test_manifest", "assets/images/test-tags.tsv")
	v.SetDefault("training.workers", 0)
	v.SetDefault("training.retrain_schedule", "")
	v.SetDefault("training.timeout", 10*time.Minute)
	opts := maxent.DefaultOptions()
	v.SetDefault("training.optimizer.l2", opts.L2)
	v.SetDefault("training.optimizer.max_iterations", opts.MaxIterations)
	v.SetDefault("training.optimizer.gradient_tolerance", opts.GradientTolerance)
	v.SetDefault("training.optimizer.history", opts.History)
	v.SetDefault("training.optimizer.timeout", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.console", true)

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "")
}

// Load reads configFile, or config.yaml from the usual search paths when
// configFile is empty, and unmarshals everything v knows.
// Priority (highest to lowest): flags > env vars > config file > defaults
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/transfer-classifier/")
		v.AddConfigPath("$HOME/.transfer-classifier")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.OTEL.Endpoint != "" {
		cfg.OTEL.Enabled = true
	}
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validPort("grpc_port", c.Server.GRPCPort); err != nil {
		return err
	}
	if err := validPort("http_port", c.Server.HTTPPort); err != nil {
		return err
	}
	if c.Server.GRPCPort == c.Server.HTTPPort {
		return fmt.Errorf("grpc_port and http_port must be different")
	}

	if c.Training.TrainManifest == "" {
		return fmt.Errorf("training.train_manifest is required")
	}
	if c.Training.TestManifest == "" {
		return fmt.Errorf("training.test_manifest is required")
	}
	if c.Training.Workers < 0 {
		return fmt.Errorf("training.workers must not be negative")
	}
	if c.Training.Timeout < 0 {
		return fmt.Errorf("training.timeout must not be negative")
	}
	if c.Training.Optimizer.L2 < 0 {
		return fmt.Errorf("training.optimizer.l2 must not be negative")
	}

	if err := c.Model.Preprocess.Validate(); err != nil {
		return fmt.Errorf("model.preprocess: %w", err)
	}
	if !c.Model.UseMock {
		if c.Model.ModelPath == "" {
			return fmt.Errorf("model path is required when not using mock inference")
		}
		if c.Model.EmbeddingDim <= 0 {
			return fmt.Errorf("model.embedding_dim must be positive")
		}
		if c.Model.OutputName == "" {
			return fmt.Errorf("model.output_name is required")
		}
	}

	switch strings.ToLower(c.Images.Type) {
	case "", "local":
	case "s3":
		if c.Images.S3.Bucket == "" {
			return fmt.Errorf("images.s3.bucket is required for the s3 image store")
		}
	default:
		return fmt.Errorf("unknown image store type %q", c.Images.Type)
	}

	switch strings.ToLower(c.Cache.Backend) {
	case "", "none":
	case "redis":
		if c.Cache.Redis == "" {
			return fmt.Errorf("cache.redis address is required for the redis backend")
		}
	case "bolt":
		if c.Cache.BoltPath == "" {
			return fmt.Errorf("cache.bolt_path is required for the bolt backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	return nil
}

func validPort(name string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid %s: %d", name, port)
	}
	return nil
}
