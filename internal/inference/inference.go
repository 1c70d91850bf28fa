// internal/inference/inference.go
package inference

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/SyedDaiam9101/transfer-classifier/internal/metrics"
	"github.com/SyedDaiam9101/transfer-classifier/internal/preprocess"
)

// Config describes the pretrained network file and its tensor contract.
type Config struct {
	ModelPath         string             `mapstructure:"model_path"`
	SharedLibraryPath string             `mapstructure:"shared_library_path"`
	InputName         string             `mapstructure:"input_name"`
	OutputName        string             `mapstructure:"output_name"`
	EmbeddingDim      int                `mapstructure:"embedding_dim"`
	Preprocess        preprocess.Options `mapstructure:"preprocess"`
	UseMock           bool               `mapstructure:"use_mock"`
}

// ONNX wraps an ONNX runtime session over a frozen network.
// It implements the Extractor interface.
type ONNX struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	spec    Spec
	name    string
}

// New loads the network at cfg.ModelPath. The session exposes one input and
// the intermediate output named in cfg; no other layer is evaluated.
func New(cfg Config) (*ONNX, error) {
	if cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("embedding_dim must be positive, got %d", cfg.EmbeddingDim)
	}
	if err := cfg.Preprocess.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preprocess options: %w", err)
	}

	if cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNX{
		session: session,
		spec: Spec{
			Preprocess:   cfg.Preprocess,
			EmbeddingDim: cfg.EmbeddingDim,
		},
		name: filepath.Base(cfg.ModelPath) + ":" + cfg.OutputName,
	}, nil
}

// Extract runs the network once with a batch dimension of 1 and returns the
// flattened output layer.
func (o *ONNX) Extract(ctx context.Context, t *preprocess.Tensor) (Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := o.spec.CheckShape(t); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session == nil {
		return nil, fmt.Errorf("inference session is nil")
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(t.Shape()...), t.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(o.spec.EmbeddingDim)))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	start := time.Now()
	err = o.session.Run(
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
	)
	metrics.RecordExtractionLatency(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	// The tensor's buffer is freed by Destroy, so copy it out.
	out := make(Embedding, o.spec.EmbeddingDim)
	copy(out, outputTensor.GetData())
	return out, nil
}

func (o *ONNX) Spec() Spec {
	return o.spec
}

func (o *ONNX) Name() string {
	return o.name
}

// Close releases the ONNX session resources
func (o *ONNX) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session != nil {
		err := o.session.Destroy()
		o.session = nil
		if err != nil {
			return fmt.Errorf("failed to destroy session: %w", err)
		}
	}

	return ort.DestroyEnvironment()
}

// Ensure ONNX implements Extractor at compile time
var _ Extractor = (*ONNX)(nil)
