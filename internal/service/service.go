// internal/service/service.go
package service

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/SyedDaiam9101/transfer-classifier/internal/dataset"
	"github.com/SyedDaiam9101/transfer-classifier/internal/imagestore"
	"github.com/SyedDaiam9101/transfer-classifier/internal/inference"
	"github.com/SyedDaiam9101/transfer-classifier/internal/logging"
	"github.com/SyedDaiam9101/transfer-classifier/internal/maxent"
	"github.com/SyedDaiam9101/transfer-classifier/internal/metrics"
	"github.com/SyedDaiam9101/transfer-classifier/internal/pipeline"
)

// ImageClassifier is the two-operation contract exposed to hosts.
type ImageClassifier interface {
	// GenerateModel trains on the training manifest and evaluates the result
	// on the test manifest.
	GenerateModel(ctx context.Context) (*pipeline.FittedPipeline, *pipeline.Metrics, error)

	// ClassifySingleImage predicts the label of one image with p.
	ClassifySingleImage(ctx context.Context, p *pipeline.FittedPipeline, imagePath string) (*pipeline.PredictionResult, error)
}

// Options configures a Service.
type Options struct {
	TrainManifest *dataset.Manifest
	TestManifest  *dataset.Manifest
	Workers       int
	// Timeout bounds one GenerateModel call; zero means no bound.
	Timeout   time.Duration
	Optimizer maxent.Options
}

// Service implements ImageClassifier over an image store and a frozen extractor.
type Service struct {
	featurizer *pipeline.Featurizer
	trainer    *pipeline.Trainer
	train      *dataset.Manifest
	test       *dataset.Manifest
	timeout    time.Duration
}

func New(store imagestore.Store, extractor inference.Extractor, opts Options) *Service {
	featurizer := pipeline.NewFeaturizer(store, extractor, opts.Workers)
	return &Service{
		featurizer: featurizer,
		trainer:    pipeline.NewTrainer(featurizer, opts.Optimizer),
		train:      opts.TrainManifest,
		test:       opts.TestManifest,
		timeout:    opts.Timeout,
	}
}

func (s *Service) GenerateModel(ctx context.Context) (*pipeline.FittedPipeline, *pipeline.Metrics, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	logger := logging.FromContext(ctx)

	start := time.Now()
	p, err := s.fit(ctx)
	metrics.RecordTraining(err == nil, time.Since(start).Seconds())
	if err != nil {
		return nil, nil, err
	}

	m, err := s.evaluate(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	metrics.RecordEvaluation(m.MicroAccuracy, m.LogLoss)

	logger.Info("model generated",
		zap.Int("train_examples", p.TrainingSize()),
		zap.Int("test_examples", m.Total),
		zap.Float64("micro_accuracy", m.MicroAccuracy),
		zap.Float64("macro_accuracy", m.MacroAccuracy),
		zap.Float64("log_loss", m.LogLoss),
		zap.Duration("duration", time.Since(start)),
	)
	return p, m, nil
}

func (s *Service) fit(ctx context.Context) (*pipeline.FittedPipeline, error) {
	images, err := s.train.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load training manifest: %w", err)
	}
	examples, err := s.featurizer.Featurize(ctx, images)
	if err != nil {
		return nil, fmt.Errorf("failed to featurize training images: %w", err)
	}
	return s.trainer.Fit(ctx, examples)
}

func (s *Service) evaluate(ctx context.Context, p *pipeline.FittedPipeline) (*pipeline.Metrics, error) {
	images, err := s.test.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load test manifest: %w", err)
	}
	examples, err := s.featurizer.Featurize(ctx, images)
	if err != nil {
		return nil, fmt.Errorf("failed to featurize test images: %w", err)
	}
	m, err := pipeline.Evaluate(ctx, p, examples)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate model: %w", err)
	}
	return m, nil
}

func (s *Service) ClassifySingleImage(ctx context.Context, p *pipeline.FittedPipeline, imagePath string) (*pipeline.PredictionResult, error) {
	res, err := p.Predict(ctx, imagePath)
	if err != nil {
		return nil, err
	}
	observe(ctx, res)
	return res, nil
}

// ClassifyImage predicts the label of an image already in memory.
func (s *Service) ClassifyImage(ctx context.Context, p *pipeline.FittedPipeline, name string, img image.Image) (*pipeline.PredictionResult, error) {
	res, err := p.PredictImage(ctx, name, img)
	if err != nil {
		return nil, err
	}
	observe(ctx, res)
	return res, nil
}

func observe(ctx context.Context, res *pipeline.PredictionResult) {
	metrics.RecordPrediction(res.PredictedLabel)
	logging.FromContext(ctx).Debug("image classified",
		zap.String("path", res.Path),
		zap.String("label", res.PredictedLabel),
		zap.Float32("confidence", res.Confidence),
	)
}

// Ensure Service implements ImageClassifier at compile time
var _ ImageClassifier = (*Service)(nil)
