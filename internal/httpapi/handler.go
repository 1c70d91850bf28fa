// internal/httpapi/handler.go
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SyedDaiam9101/transfer-classifier/internal/imagestore"
	"github.com/SyedDaiam9101/transfer-classifier/internal/pipeline"
	"github.com/SyedDaiam9101/transfer-classifier/internal/preprocess"
)

const defaultMaxUploadBytes = 32 << 20

type Handler struct {
	deps Deps
}

type ClassifyRequest struct {
	ImagePath string `json:"image_path" binding:"required"`
}

// ClassifyResponse adds the vocabulary so clients can read Scores by label.
type ClassifyResponse struct {
	*pipeline.PredictionResult
	Labels []string `json:"labels"`
}

type ModelResponse struct {
	State        string            `json:"state"`
	Labels       []string          `json:"labels,omitempty"`
	Stages       []string          `json:"stages,omitempty"`
	Extractor    string            `json:"extractor,omitempty"`
	TrainedAt    *time.Time        `json:"trained_at,omitempty"`
	TrainingSize int               `json:"training_size,omitempty"`
	Iterations   int               `json:"iterations,omitempty"`
	Metrics      *pipeline.Metrics `json:"metrics,omitempty"`
}

func (h *Handler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ImagePath) == "" {
		fail(c, http.StatusBadRequest, "invalid", "image_path is required")
		return
	}
	path := strings.TrimSpace(req.ImagePath)
	if err := imagestore.CheckPath(path); err != nil {
		handleError(c, err)
		return
	}

	p := h.deps.Registry.Current()
	res, err := h.deps.Classifier.ClassifySingleImage(c.Request.Context(), p, path)
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, ClassifyResponse{PredictionResult: res, Labels: p.Vocabulary().Labels()})
}

// ClassifyUpload classifies the multipart file field "image".
func (h *Handler) ClassifyUpload(c *gin.Context) {
	limit := h.deps.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	file, err := c.FormFile("image")
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid_file", "image file is required")
		return
	}
	opened, err := file.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid_file", "failed to open file")
		return
	}
	defer opened.Close()

	img, err := preprocess.Decode(opened, file.Filename)
	if err != nil {
		handleError(c, err)
		return
	}

	p := h.deps.Registry.Current()
	res, err := h.deps.Classifier.ClassifyImage(c.Request.Context(), p, file.Filename, img)
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, ClassifyResponse{PredictionResult: res, Labels: p.Vocabulary().Labels()})
}

func (h *Handler) Model(c *gin.Context) {
	success(c, describe(h.deps.Registry.Snapshot()))
}

func (h *Handler) Retrain(c *gin.Context) {
	if h.deps.Retrain == nil {
		fail(c, http.StatusForbidden, "disabled", "retraining is disabled")
		return
	}
	p, m, err := h.deps.Retrain.Retrain(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, describe(p, m))
}

func (h *Handler) Healthz(c *gin.Context) {
	if h.deps.Healthy != nil && !h.deps.Healthy() {
		c.String(http.StatusServiceUnavailable, "Service Unavailable")
		return
	}
	c.String(http.StatusOK, "OK")
}

// Readyz is ready once a model is serving.
func (h *Handler) Readyz(c *gin.Context) {
	if (h.deps.Healthy != nil && !h.deps.Healthy()) || !h.deps.Registry.Ready() {
		c.String(http.StatusServiceUnavailable, "Not Ready")
		return
	}
	c.String(http.StatusOK, "Ready")
}

func describe(p *pipeline.FittedPipeline, m *pipeline.Metrics) ModelResponse {
	resp := ModelResponse{State: p.State().String()}
	if p.State() != pipeline.Trained {
		return resp
	}
	trainedAt := p.TrainedAt().UTC()
	resp.Labels = p.Vocabulary().Labels()
	resp.Stages = p.Stages()
	resp.Extractor = p.Featurizer().Extractor().Name()
	resp.TrainedAt = &trainedAt
	resp.TrainingSize = p.TrainingSize()
	resp.Iterations = p.TrainStats().Iterations
	resp.Metrics = m
	return resp
}
