// internal/pipeline/trainer.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/SyedDaiam9101/transfer-classifier/internal/logging"
	"github.com/SyedDaiam9101/transfer-classifier/internal/maxent"
	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
)

// Trainer fits the classifier on top of a frozen Featurizer.
type Trainer struct {
	featurizer *Featurizer
	opts       maxent.Options
}

func NewTrainer(featurizer *Featurizer, opts maxent.Options) *Trainer {
	return &Trainer{featurizer: featurizer, opts: opts}
}

// Fit builds the label vocabulary, trains the classifier and composes the
// result with the featurization stages into one FittedPipeline. Fit never
// modifies the extractor. It runs to completion, fails, or stops when ctx
// is done.
func (t *Trainer) Fit(ctx context.Context, examples []Example) (*FittedPipeline, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Fit")
	defer span.End()
	span.SetAttributes(attribute.Int("training.examples", len(examples)))

	p, err := t.fit(ctx, examples)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("training.classes", p.vocab.Len()),
		attribute.Int("training.iterations", p.stats.Iterations),
	)
	return p, nil
}

func (t *Trainer) fit(ctx context.Context, examples []Example) (*FittedPipeline, error) {
	if len(examples) == 0 {
		return nil, errs.ErrEmptyTrainingSet
	}

	labels := make([]string, len(examples))
	X := make([][]float32, len(examples))
	for i, ex := range examples {
		if ex.Err != nil {
			return nil, fmt.Errorf("training example %s: %w", ex.Path, ex.Err)
		}
		if ex.Label == "" {
			return nil, fmt.Errorf("training example %s has no label", ex.Path)
		}
		labels[i] = ex.Label
		X[i] = ex.Embedding
	}

	vocab := maxent.BuildVocabulary(labels)
	if vocab.Len() < 2 {
		return nil, fmt.Errorf("%w: found %d", errs.ErrSingleClass, vocab.Len())
	}

	y := make([]int, len(labels))
	for i, label := range labels {
		y[i], _ = vocab.Key(label)
	}

	model, stats, err := maxent.Train(ctx, X, y, vocab.Len(), t.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to train classifier: %w", err)
	}

	logging.FromContext(ctx).Info("classifier trained",
		zap.Int("examples", len(examples)),
		zap.Strings("labels", vocab.Labels()),
		zap.Int("iterations", stats.Iterations),
		zap.Float64("loss", stats.Loss),
		zap.String("status", stats.Status),
	)

	stages := append([]Stage(nil), t.featurizer.stages...)
	stages = append(stages, Score(model), MapKeyToValue(vocab))

	return &FittedPipeline{
		featurizer: t.featurizer,
		vocab:      vocab,
		model:      model,
		stages:     stages,
		stats:      *stats,
		trainedAt:  time.Now(),
		examples:   len(examples),
	}, nil
}
