// internal/pipeline/fitted.go
package pipeline

import (
	"context"
	"image"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/SyedDaiam9101/transfer-classifier/internal/maxent"
	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
)

var tracer = otel.Tracer("github.com/SyedDaiam9101/transfer-classifier/internal/pipeline")

// State is the lifecycle of a FittedPipeline.
type State int

const (
	Untrained State = iota
	Trained
)

func (s State) String() string {
	if s == Trained {
		return "trained"
	}
	return "untrained"
}

// PredictionResult is the output of one single-image prediction. Scores are
// softmax-activated and aligned with the vocabulary order.
type PredictionResult struct {
	Path           string    `json:"path"`
	Label          string    `json:"label,omitempty"`
	PredictedLabel string    `json:"predicted_label"`
	Confidence     float32   `json:"confidence"`
	Scores         []float32 `json:"scores"`
}

// FittedPipeline is the trained artifact: featurization stages, the label
// vocabulary and the classifier. It is never mutated after Fit, so any number
// of goroutines may predict with it concurrently. The zero value and nil are
// Untrained.
type FittedPipeline struct {
	featurizer *Featurizer
	vocab      *maxent.Vocabulary
	model      *maxent.Model
	stages     []Stage
	stats      maxent.TrainStats
	trainedAt  time.Time
	examples   int
}

func (p *FittedPipeline) State() State {
	if p == nil || p.model == nil || p.vocab == nil || p.featurizer == nil {
		return Untrained
	}
	return Trained
}

// Stages returns the names of every stage, featurization through label mapping.
func (p *FittedPipeline) Stages() []string {
	if p == nil {
		return nil
	}
	return stageNames(p.stages)
}

func (p *FittedPipeline) Vocabulary() *maxent.Vocabulary {
	if p == nil {
		return nil
	}
	return p.vocab
}

func (p *FittedPipeline) Featurizer() *Featurizer {
	if p == nil {
		return nil
	}
	return p.featurizer
}

func (p *FittedPipeline) TrainStats() maxent.TrainStats {
	if p == nil {
		return maxent.TrainStats{}
	}
	return p.stats
}

func (p *FittedPipeline) TrainedAt() time.Time {
	if p == nil {
		return time.Time{}
	}
	return p.trainedAt
}

// TrainingSize is the number of examples the classifier was fitted on.
func (p *FittedPipeline) TrainingSize() int {
	if p == nil {
		return 0
	}
	return p.examples
}

// Predict runs the whole pipeline on the image at path.
func (p *FittedPipeline) Predict(ctx context.Context, path string) (*PredictionResult, error) {
	if p.State() != Trained {
		return nil, errs.ErrPipelineNotFitted
	}
	return p.predict(ctx, p.stages, Record{Path: path})
}

// PredictImage runs the pipeline on an already-decoded image, e.g. an upload.
func (p *FittedPipeline) PredictImage(ctx context.Context, name string, img image.Image) (*PredictionResult, error) {
	if p.State() != Trained {
		return nil, errs.ErrPipelineNotFitted
	}
	return p.predict(ctx, p.stages[1:], Record{Path: name, Image: img})
}

func (p *FittedPipeline) predict(ctx context.Context, stages []Stage, r Record) (*PredictionResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Predict")
	defer span.End()
	span.SetAttributes(attribute.String("image.path", r.Path))

	out, err := runStages(ctx, stages, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("prediction.label", out.PredictedLabel))
	return newResult(out), nil
}

// scoreEmbedding classifies an embedding that was extracted earlier.
func (p *FittedPipeline) scoreEmbedding(ctx context.Context, r Record) (Record, error) {
	n := len(p.stages)
	return runStages(ctx, p.stages[n-2:], r)
}

func newResult(r Record) *PredictionResult {
	scores := make([]float32, len(r.Scores))
	for i, s := range r.Scores {
		scores[i] = float32(s)
	}
	var confidence float32
	if r.PredictedKey >= 0 && r.PredictedKey < len(scores) {
		confidence = scores[r.PredictedKey]
	}
	return &PredictionResult{
		Path:           r.Path,
		Label:          r.Label,
		PredictedLabel: r.PredictedLabel,
		Confidence:     confidence,
		Scores:         scores,
	}
}
