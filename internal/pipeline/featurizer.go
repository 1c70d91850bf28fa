// internal/pipeline/featurizer.go
package pipeline

import (
	"context"
	"image"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SyedDaiam9101/transfer-classifier/internal/dataset"
	"github.com/SyedDaiam9101/transfer-classifier/internal/imagestore"
	"github.com/SyedDaiam9101/transfer-classifier/internal/inference"
	"github.com/SyedDaiam9101/transfer-classifier/internal/logging"
)

// Example pairs an embedding with its manifest entry. Err is set when the
// image could not be featurized; Embedding is nil in that case.
type Example struct {
	Path      string
	Label     string
	Embedding inference.Embedding
	Err       error
}

// Featurizer is the frozen front of the pipeline: load, resize, extract
// pixels, extract features. Its preprocessing options come from the extractor.
type Featurizer struct {
	stages    []Stage
	extractor inference.Extractor
	workers   int
}

// NewFeaturizer builds the featurization stages. workers bounds the number of
// images in flight; values <= 0 use GOMAXPROCS.
func NewFeaturizer(store imagestore.Store, extractor inference.Extractor, workers int) *Featurizer {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	opts := extractor.Spec().Preprocess
	return &Featurizer{
		stages: []Stage{
			LoadImages(store),
			ResizeImages(opts),
			ExtractPixels(opts),
			ExtractFeatures(extractor),
		},
		extractor: extractor,
		workers:   workers,
	}
}

// Stages returns the stage names in execution order.
func (f *Featurizer) Stages() []string {
	return stageNames(f.stages)
}

func (f *Featurizer) Extractor() inference.Extractor {
	return f.extractor
}

// Featurize embeds every image, in parallel, preserving input order.
// Per-image failures are recorded on the Example; only cancellation of ctx
// fails the call.
func (f *Featurizer) Featurize(ctx context.Context, images []dataset.LabeledImage) ([]Example, error) {
	out := make([]Example, len(images))
	logger := logging.FromContext(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, img := range images {
		g.Go(func() error {
			r, err := runStages(gctx, f.stages, Record{Path: img.Path, Label: img.Label})
			out[i] = Example{Path: img.Path, Label: img.Label, Embedding: r.Embedding, Err: err}
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Debug("featurization failed", zap.String("path", img.Path), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FeaturizeImage embeds an already-decoded image, skipping the load stage.
func (f *Featurizer) FeaturizeImage(ctx context.Context, name string, img image.Image) (inference.Embedding, error) {
	r, err := runStages(ctx, f.stages[1:], Record{Path: name, Image: img})
	if err != nil {
		return nil, err
	}
	return r.Embedding, nil
}
