// internal/service/registry.go
package service

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/SyedDaiam9101/transfer-classifier/internal/logging"
	"github.com/SyedDaiam9101/transfer-classifier/internal/pipeline"
	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
)

type model struct {
	pipeline *pipeline.FittedPipeline
	metrics  *pipeline.Metrics
}

// Registry holds the pipeline currently used for predictions. A caller that
// read Current keeps that instance even if a retrain swaps in a new one.
type Registry struct {
	current atomic.Pointer[model]
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Current returns the serving pipeline, or nil before the first Swap.
func (r *Registry) Current() *pipeline.FittedPipeline {
	if m := r.current.Load(); m != nil {
		return m.pipeline
	}
	return nil
}

// Metrics returns the held-out metrics of the serving pipeline.
func (r *Registry) Metrics() *pipeline.Metrics {
	_, m := r.Snapshot()
	return m
}

// Snapshot returns the serving pipeline together with the metrics it was
// installed with. Both come from one load, so a concurrent Swap never pairs
// a pipeline with another model's metrics.
func (r *Registry) Snapshot() (*pipeline.FittedPipeline, *pipeline.Metrics) {
	if m := r.current.Load(); m != nil {
		return m.pipeline, m.metrics
	}
	return nil, nil
}

func (r *Registry) Ready() bool {
	return r.Current().State() == pipeline.Trained
}

// Swap installs p and returns the pipeline it replaced.
func (r *Registry) Swap(p *pipeline.FittedPipeline, m *pipeline.Metrics) *pipeline.FittedPipeline {
	prev := r.current.Swap(&model{pipeline: p, metrics: m})
	if prev == nil {
		return nil
	}
	return prev.pipeline
}

// RetrainJob regenerates the model and swaps it into a Registry. Only one
// retrain runs at a time; a concurrent request fails with
// errs.ErrRetrainInProgress.
type RetrainJob struct {
	classifier ImageClassifier
	registry   *Registry
	running    atomic.Bool
}

func NewRetrainJob(classifier ImageClassifier, registry *Registry) *RetrainJob {
	return &RetrainJob{classifier: classifier, registry: registry}
}

func (j *RetrainJob) Name() string {
	return "retrain"
}

// Run satisfies schedule.Job.
func (j *RetrainJob) Run(ctx context.Context) error {
	_, _, err := j.Retrain(ctx)
	return err
}

// Retrain generates a model and, on success, makes it the serving pipeline.
// On failure the previous pipeline stays in place.
func (j *RetrainJob) Retrain(ctx context.Context) (*pipeline.FittedPipeline, *pipeline.Metrics, error) {
	if !j.running.CompareAndSwap(false, true) {
		return nil, nil, errs.ErrRetrainInProgress
	}
	defer j.running.Store(false)

	p, m, err := j.classifier.GenerateModel(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("retrain failed, keeping current model", zap.Error(err))
		return nil, nil, err
	}
	prev := j.registry.Swap(p, m)
	logging.FromContext(ctx).Info("model swapped",
		zap.Bool("replaced", prev != nil),
		zap.Strings("labels", p.Vocabulary().Labels()),
	)
	return p, m, nil
}

// Running reports whether a retrain is in progress.
func (j *RetrainJob) Running() bool {
	return j.running.Load()
}
