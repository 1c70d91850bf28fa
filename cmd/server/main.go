// cmd/server/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/SyedDaiam9101/transfer-classifier/internal/config"
	"github.com/SyedDaiam9101/transfer-classifier/internal/logging"
)

const serviceName = "transfer-classifier"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var configFile string

	root := &cobra.Command{
		Use:          serviceName,
		Short:        "Transfer-learning image classifier: frozen network features plus a softmax head",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to config file (optional)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.Bool("mock", false, "Use the mock feature extractor instead of ONNX")
	flags.String("model", "", "Path to the ONNX feature extractor")
	flags.String("images", "", "Image directory (local store)")
	flags.String("train-manifest", "", "Training manifest (path<TAB>label)")
	flags.String("test-manifest", "", "Test manifest (path<TAB>label)")
	bindFlags(v, flags, map[string]string{
		"log.level":               "log-level",
		"model.use_mock":          "mock",
		"model.model_path":        "model",
		"images.dir":              "images",
		"training.train_manifest": "train-manifest",
		"training.test_manifest":  "test-manifest",
	})

	load := func() (*config.Config, *zap.Logger, error) {
		return setup(v, configFile)
	}
	root.AddCommand(
		newServeCmd(v, load),
		newTrainCmd(load),
		newPredictCmd(load),
	)
	return root
}

// bindFlags binds viper keys to flags; a flag only overrides config when set.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func setup(v *viper.Viper, configFile string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := logging.Init(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	if used := v.ConfigFileUsed(); used != "" {
		logger.Info("using config file", zap.String("path", used))
	}
	return cfg, logger, nil
}
