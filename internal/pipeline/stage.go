// internal/pipeline/stage.go
package pipeline

import (
	"context"
	"fmt"
	"image"

	"github.com/SyedDaiam9101/transfer-classifier/internal/imagestore"
	"github.com/SyedDaiam9101/transfer-classifier/internal/inference"
	"github.com/SyedDaiam9101/transfer-classifier/internal/maxent"
	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
	"github.com/SyedDaiam9101/transfer-classifier/internal/preprocess"
)

// Record flows through the stages. Each stage fills in the next field and
// clears the ones nothing downstream needs.
type Record struct {
	Path  string
	Label string

	Image     image.Image
	Tensor    *preprocess.Tensor
	Embedding inference.Embedding

	Scores         []float64
	PredictedKey   int
	PredictedLabel string
}

// Stage is one named transform from a Record to the next Record.
type Stage struct {
	Name  string
	Apply func(ctx context.Context, r Record) (Record, error)
}

const (
	StageLoad     = "load_images"
	StageResize   = "resize_images"
	StagePixels   = "extract_pixels"
	StageExtract  = "extract_features"
	StageScore    = "score"
	StageMapLabel = "map_key_to_value"
)

func runStages(ctx context.Context, stages []Stage, r Record) (Record, error) {
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		var err error
		r, err = s.Apply(ctx, r)
		if err != nil {
			return r, fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	return r, nil
}

func stageNames(stages []Stage) []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	return names
}

// LoadImages decodes r.Path read from store.
func LoadImages(store imagestore.Store) Stage {
	return Stage{
		Name: StageLoad,
		Apply: func(ctx context.Context, r Record) (Record, error) {
			rc, err := store.Open(ctx, r.Path)
			if err != nil {
				return r, err
			}
			defer rc.Close()

			img, err := preprocess.Decode(rc, r.Path)
			if err != nil {
				return r, err
			}
			r.Image = img
			return r, nil
		},
	}
}

// ResizeImages scales r.Image to the extractor's input size.
func ResizeImages(opts preprocess.Options) Stage {
	return Stage{
		Name: StageResize,
		Apply: func(_ context.Context, r Record) (Record, error) {
			if r.Image == nil {
				return r, fmt.Errorf("no image for %s", r.Path)
			}
			r.Image = preprocess.Resize(r.Image, opts.Width, opts.Height)
			return r, nil
		},
	}
}

// ExtractPixels turns r.Image into a normalized tensor and drops the image.
func ExtractPixels(opts preprocess.Options) Stage {
	return Stage{
		Name: StagePixels,
		Apply: func(_ context.Context, r Record) (Record, error) {
			if r.Image == nil {
				return r, fmt.Errorf("no image for %s", r.Path)
			}
			r.Tensor = preprocess.ExtractPixels(r.Image, opts)
			r.Image = nil
			return r, nil
		},
	}
}

// ExtractFeatures runs the frozen network and drops the tensor.
func ExtractFeatures(extractor inference.Extractor) Stage {
	return Stage{
		Name: StageExtract,
		Apply: func(ctx context.Context, r Record) (Record, error) {
			if r.Tensor == nil {
				return r, fmt.Errorf("no tensor for %s", r.Path)
			}
			emb, err := extractor.Extract(ctx, r.Tensor)
			if err != nil {
				return r, err
			}
			r.Embedding = emb
			r.Tensor = nil
			return r, nil
		},
	}
}

// Score applies the trained classifier to r.Embedding.
func Score(model *maxent.Model) Stage {
	return Stage{
		Name: StageScore,
		Apply: func(_ context.Context, r Record) (Record, error) {
			if len(r.Embedding) != model.Features() {
				return r, &errs.DimensionMismatchError{
					Got:  []int64{int64(len(r.Embedding))},
					Want: []int64{int64(model.Features())},
				}
			}
			r.PredictedKey, r.Scores = model.Predict(r.Embedding)
			return r, nil
		},
	}
}

// MapKeyToValue resolves r.PredictedKey back to its label string.
func MapKeyToValue(vocab *maxent.Vocabulary) Stage {
	return Stage{
		Name: StageMapLabel,
		Apply: func(_ context.Context, r Record) (Record, error) {
			label, ok := vocab.Label(r.PredictedKey)
			if !ok {
				return r, fmt.Errorf("predicted key %d outside vocabulary of %d labels", r.PredictedKey, vocab.Len())
			}
			r.PredictedLabel = label
			return r, nil
		},
	}
}
