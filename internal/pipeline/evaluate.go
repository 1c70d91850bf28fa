// internal/pipeline/evaluate.go
package pipeline

import (
	"context"
	"errors"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/SyedDaiam9101/transfer-classifier/internal/logging"
	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
)

// probabilityFloor keeps log-loss finite when a true class scores exactly zero.
const probabilityFloor = 1e-15

// Metrics are multiclass quality measures of a FittedPipeline on held-out data.
type Metrics struct {
	Total         int `json:"total"`
	Correct       int `json:"correct"`
	Misses        int `json:"misses"`
	UnknownLabels int `json:"unknown_labels"`
	Failed        int `json:"failed"`

	// MicroAccuracy is Correct / Total over every record.
	MicroAccuracy float64 `json:"micro_accuracy"`
	// MacroAccuracy averages per-class recall over classes present in the data.
	MacroAccuracy float64 `json:"macro_accuracy"`

	LogLoss          float64   `json:"log_loss"`
	LogLossReduction float64   `json:"log_loss_reduction"`
	PerClassLogLoss  []float64 `json:"per_class_log_loss"`

	// Labels gives the row and column order of Confusion.
	Labels []string `json:"labels"`
	// Confusion[true][predicted] counts scored records.
	Confusion [][]int `json:"confusion"`
}

// Evaluate scores examples with p without retraining. A record whose label is
// not in p's vocabulary, or whose image failed to featurize, counts as a miss
// and does not stop the evaluation.
func Evaluate(ctx context.Context, p *FittedPipeline, examples []Example) (*Metrics, error) {
	if p.State() != Trained {
		return nil, errs.ErrPipelineNotFitted
	}

	ctx, span := tracer.Start(ctx, "pipeline.Evaluate")
	defer span.End()
	logger := logging.FromContext(ctx)

	k := p.vocab.Len()
	m := &Metrics{
		Total:           len(examples),
		Labels:          p.vocab.Labels(),
		Confusion:       make([][]int, k),
		PerClassLogLoss: make([]float64, k),
	}
	for i := range m.Confusion {
		m.Confusion[i] = make([]int, k)
	}

	prior := p.vocab.Prior()
	classCount := make([]int, k)
	classLoss := make([]float64, k)
	var loss, priorLoss float64
	scored := 0

	for _, ex := range examples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if ex.Err != nil {
			m.Failed++
			m.Misses++
			logger.Debug("evaluation record failed", zap.String("path", ex.Path), zap.Error(ex.Err))
			continue
		}

		trueKey, err := p.vocab.Key(ex.Label)
		if err != nil {
			var unknown *errs.UnknownLabelError
			if !errors.As(err, &unknown) {
				return nil, err
			}
			m.UnknownLabels++
			m.Misses++
			logger.Debug("evaluation record has unknown label", zap.String("path", ex.Path), zap.String("label", ex.Label))
			continue
		}

		r, err := p.scoreEmbedding(ctx, Record{Path: ex.Path, Label: ex.Label, Embedding: ex.Embedding})
		if err != nil {
			m.Failed++
			m.Misses++
			logger.Debug("evaluation record could not be scored", zap.String("path", ex.Path), zap.Error(err))
			continue
		}

		m.Confusion[trueKey][r.PredictedKey]++
		if r.PredictedKey == trueKey {
			m.Correct++
		} else {
			m.Misses++
		}

		l := -math.Log(math.Max(r.Scores[trueKey], probabilityFloor))
		loss += l
		priorLoss += -math.Log(math.Max(prior[trueKey], probabilityFloor))
		classLoss[trueKey] += l
		classCount[trueKey]++
		scored++
	}

	if m.Total > 0 {
		m.MicroAccuracy = float64(m.Correct) / float64(m.Total)
	}
	if scored > 0 {
		m.LogLoss = loss / float64(scored)
		priorLoss /= float64(scored)
		if priorLoss > 0 {
			m.LogLossReduction = (priorLoss - m.LogLoss) / priorLoss
		}
	}

	present := 0
	var recallSum float64
	for c := 0; c < k; c++ {
		if classCount[c] == 0 {
			continue
		}
		present++
		recallSum += float64(m.Confusion[c][c]) / float64(classCount[c])
		m.PerClassLogLoss[c] = classLoss[c] / float64(classCount[c])
	}
	if present > 0 {
		m.MacroAccuracy = recallSum / float64(present)
	}

	span.SetAttributes(
		attribute.Int("evaluation.total", m.Total),
		attribute.Float64("evaluation.micro_accuracy", m.MicroAccuracy),
		attribute.Float64("evaluation.log_loss", m.LogLoss),
	)
	return m, nil
}
