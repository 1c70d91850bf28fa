// cmd/server/app.go
package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/SyedDaiam9101/transfer-classifier/internal/cache"
	"github.com/SyedDaiam9101/transfer-classifier/internal/config"
	"github.com/SyedDaiam9101/transfer-classifier/internal/dataset"
	"github.com/SyedDaiam9101/transfer-classifier/internal/imagestore"
	"github.com/SyedDaiam9101/transfer-classifier/internal/inference"
	"github.com/SyedDaiam9101/transfer-classifier/internal/service"
)

// app is the set of components shared by every command.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     imagestore.Store
	extractor inference.Extractor
	svc       *service.Service
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	store, err := imagestore.New(ctx, cfg.Images)
	if err != nil {
		return nil, fmt.Errorf("failed to open image store: %w", err)
	}
	logger.Info("image store ready", zap.String("type", store.Type()))

	var extractor inference.Extractor
	if cfg.Model.UseMock {
		logger.Info("using mock feature extractor")
		extractor = inference.NewMock(cfg.Model.Preprocess)
	} else {
		logger.Info("loading ONNX feature extractor", zap.String("model", cfg.Model.ModelPath))
		onnx, err := inference.New(cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to load ONNX model: %w", err)
		}
		extractor = onnx
	}

	embeddings := openEmbeddingStore(ctx, cfg.Cache, logger)
	extractor = cache.Wrap(extractor, cfg.Cache.LRUSize, cfg.Cache.TTL, embeddings)

	svc := service.New(store, extractor, service.Options{
		TrainManifest: dataset.Open(cfg.Training.TrainManifest),
		TestManifest:  dataset.Open(cfg.Training.TestManifest),
		Workers:       cfg.Training.Workers,
		Timeout:       cfg.Training.Timeout,
		Optimizer:     cfg.Training.Optimizer,
	})

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		extractor: extractor,
		svc:       svc,
	}, nil
}

// openEmbeddingStore returns nil when no backend is configured or the
// backend is unreachable; the service then runs on the in-process LRU alone.
func openEmbeddingStore(ctx context.Context, cfg cache.Config, logger *zap.Logger) cache.Store {
	switch strings.ToLower(cfg.Backend) {
	case "redis":
		logger.Info("connecting to Redis", zap.String("addr", cfg.Redis))
		store, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("failed to connect to Redis, continuing without shared cache", zap.Error(err))
			return nil
		}
		return store
	case "bolt":
		store, err := cache.NewBolt(cfg.BoltPath)
		if err != nil {
			logger.Warn("failed to open embedding database, continuing without it", zap.Error(err))
			return nil
		}
		return store
	default:
		return nil
	}
}

func (a *app) Close() {
	if err := a.extractor.Close(); err != nil {
		a.logger.Warn("failed to close extractor", zap.Error(err))
	}
}
