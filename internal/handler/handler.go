// internal/handler/handler.go
package handler

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/SyedDaiam9101/transfer-classifier/internal/imagestore"
	"github.com/SyedDaiam9101/transfer-classifier/internal/logging"
	"github.com/SyedDaiam9101/transfer-classifier/internal/pipeline"
	"github.com/SyedDaiam9101/transfer-classifier/internal/service"
	pb "github.com/SyedDaiam9101/transfer-classifier/proto/classifierpb"
)

// Handler implements the ClassifierServer interface over the serving
// pipeline held by a Registry.
type Handler struct {
	pb.UnimplementedClassifierServer
	classifier service.ImageClassifier
	registry   *service.Registry
	retrain    *service.RetrainJob
}

// New creates a Handler. retrain may be nil, in which case Retrain is
// rejected.
func New(classifier service.ImageClassifier, registry *service.Registry, retrain *service.RetrainJob) *Handler {
	return &Handler{
		classifier: classifier,
		registry:   registry,
		retrain:    retrain,
	}
}

// Classify predicts the label of one image with the current pipeline.
func (h *Handler) Classify(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	start := time.Now()
	logger := logging.FromContext(ctx)

	path := strings.TrimSpace(req.GetValue())
	if path == "" {
		return nil, invalidArgumentError("image path is required")
	}
	if err := imagestore.CheckPath(path); err != nil {
		return nil, grpcError(err)
	}
	if h.classifier == nil || h.registry == nil {
		return nil, failedPreconditionError("classifier not initialized")
	}

	p := h.registry.Current()
	res, err := h.classifier.ClassifySingleImage(ctx, p, path)
	if err != nil {
		logger.Warn("classify failed", zap.String("path", path), zap.Error(err))
		return nil, grpcError(err)
	}

	out, err := structpb.NewStruct(PredictionFields(p, res))
	if err != nil {
		return nil, internalError("failed to encode prediction: %v", err)
	}

	logger.Info("classified",
		zap.String("path", res.Path),
		zap.String("label", res.PredictedLabel),
		zap.Float32("confidence", res.Confidence),
		zap.Duration("latency", time.Since(start)),
	)
	return out, nil
}

// ModelInfo describes the serving pipeline.
func (h *Handler) ModelInfo(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if h.registry == nil {
		return nil, failedPreconditionError("classifier not initialized")
	}
	out, err := structpb.NewStruct(ModelFields(h.registry.Snapshot()))
	if err != nil {
		return nil, internalError("failed to encode model info: %v", err)
	}
	return out, nil
}

// Retrain regenerates the model and swaps it in before returning.
func (h *Handler) Retrain(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if h.retrain == nil {
		return nil, failedPreconditionError("retraining is disabled")
	}
	p, m, err := h.retrain.Retrain(ctx)
	if err != nil {
		return nil, grpcError(err)
	}
	out, err := structpb.NewStruct(ModelFields(p, m))
	if err != nil {
		return nil, internalError("failed to encode model info: %v", err)
	}
	return out, nil
}

// PredictionFields flattens res into structpb-compatible values. Scores are
// keyed by label.
func PredictionFields(p *pipeline.FittedPipeline, res *pipeline.PredictionResult) map[string]interface{} {
	scores := make(map[string]interface{}, len(res.Scores))
	labels := p.Vocabulary().Labels()
	for i, s := range res.Scores {
		if i < len(labels) {
			scores[labels[i]] = float64(s)
		}
	}
	return map[string]interface{}{
		"path":            res.Path,
		"predicted_label": res.PredictedLabel,
		"confidence":      float64(res.Confidence),
		"scores":          scores,
	}
}

// ModelFields describes p and its held-out metrics m; either may be nil.
func ModelFields(p *pipeline.FittedPipeline, m *pipeline.Metrics) map[string]interface{} {
	out := map[string]interface{}{
		"state": p.State().String(),
	}
	if p.State() != pipeline.Trained {
		return out
	}

	labels := make([]interface{}, 0, p.Vocabulary().Len())
	for _, l := range p.Vocabulary().Labels() {
		labels = append(labels, l)
	}
	stages := make([]interface{}, 0)
	for _, s := range p.Stages() {
		stages = append(stages, s)
	}
	stats := p.TrainStats()
	out["labels"] = labels
	out["stages"] = stages
	out["extractor"] = p.Featurizer().Extractor().Name()
	out["trained_at"] = p.TrainedAt().UTC().Format(time.RFC3339)
	out["training_size"] = float64(p.TrainingSize())
	out["iterations"] = float64(stats.Iterations)
	out["training_loss"] = stats.Loss

	if m != nil {
		out["metrics"] = map[string]interface{}{
			"total":              float64(m.Total),
			"correct":            float64(m.Correct),
			"misses":             float64(m.Misses),
			"micro_accuracy":     m.MicroAccuracy,
			"macro_accuracy":     m.MacroAccuracy,
			"log_loss":           m.LogLoss,
			"log_loss_reduction": m.LogLossReduction,
		}
	}
	return out
}
