// internal/inference/mock.go
package inference

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/SyedDaiam9101/transfer-classifier/internal/preprocess"
)

// Mock is a deterministic Extractor for tests and for running the service
// without the ONNX shared library. Its embedding is the per-channel mean and
// standard deviation of the tensor, which separates images by dominant colour.
type Mock struct {
	spec Spec
	// ErrorMessage, when set, makes Extract fail with that message.
	ErrorMessage string
	calls        atomic.Int64
}

// MockEmbeddingDim is the length of embeddings produced by Mock.
const MockEmbeddingDim = 2 * preprocess.Channels

// NewMock creates a Mock expecting tensors prepared with opts.
func NewMock(opts preprocess.Options) *Mock {
	return &Mock{
		spec: Spec{Preprocess: opts, EmbeddingDim: MockEmbeddingDim},
	}
}

// Extract returns channel statistics of t. It validates the shape the same
// way the ONNX extractor does.
func (m *Mock) Extract(ctx context.Context, t *preprocess.Tensor) (Embedding, error) {
	m.calls.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.ErrorMessage != "" {
		return nil, fmt.Errorf("%s", m.ErrorMessage)
	}
	if err := m.spec.CheckShape(t); err != nil {
		return nil, err
	}

	c := t.Channels
	plane := t.Height * t.Width
	sum := make([]float64, c)
	sumSq := make([]float64, c)
	for i, v := range t.Data {
		ch := i % c
		if !t.ChannelsLast {
			ch = i / plane
		}
		sum[ch] += float64(v)
		sumSq[ch] += float64(v) * float64(v)
	}

	out := make(Embedding, 0, 2*c)
	for ch := 0; ch < c; ch++ {
		mean := sum[ch] / float64(plane)
		variance := sumSq[ch]/float64(plane) - mean*mean
		out = append(out, float32(mean), float32(math.Sqrt(math.Max(variance, 0))))
	}
	return out, nil
}

func (m *Mock) Spec() Spec {
	return m.spec
}

func (m *Mock) Name() string {
	return "mock-channel-stats"
}

// Close is a no-op for the mock implementation
func (m *Mock) Close() error {
	return nil
}

// Calls returns the number of Extract invocations.
func (m *Mock) Calls() int64 {
	return m.calls.Load()
}

// Ensure Mock implements Extractor at compile time
var _ Extractor = (*Mock)(nil)
