// internal/inference/interface.go
package inference

import (
	"context"
	"slices"

	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
	"github.com/SyedDaiam9101/transfer-classifier/internal/preprocess"
)

// Embedding is the fixed-length output of a feature extractor for one image.
type Embedding []float32

// Spec describes what an extractor consumes and produces. Preprocessing reads
// its options from here so a substituted model brings its own constants.
type Spec struct {
	Preprocess   preprocess.Options
	EmbeddingDim int
}

// InputShape returns the batch-of-one tensor shape the extractor expects.
func (s Spec) InputShape() []int64 {
	p := s.Preprocess
	if p.ChannelsLast {
		return []int64{1, int64(p.Height), int64(p.Width), preprocess.Channels}
	}
	return []int64{1, preprocess.Channels, int64(p.Height), int64(p.Width)}
}

// CheckShape returns a *errs.DimensionMismatchError when t does not match the spec.
func (s Spec) CheckShape(t *preprocess.Tensor) error {
	want := s.InputShape()
	got := t.Shape()
	if !slices.Equal(got, want) || len(t.Data) != t.Height*t.Width*t.Channels {
		return &errs.DimensionMismatchError{Got: got, Want: want}
	}
	return nil
}

// Extractor runs a frozen pretrained network up to its embedding layer.
// This abstraction allows tests to substitute a deterministic stub.
type Extractor interface {
	// Extract performs one forward pass over a single image tensor.
	Extract(ctx context.Context, t *preprocess.Tensor) (Embedding, error)

	// Spec reports the input convention and embedding size.
	Spec() Spec

	// Name identifies the model, used to namespace cached embeddings.
	Name() string

	// Close releases any resources held by the extractor.
	Close() error
}
