// internal/httpapi/httpapi_test.go
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyedDaiam9101/transfer-classifier/internal/dataset"
	"github.com/SyedDaiam9101/transfer-classifier/internal/imagestore"
	"github.com/SyedDaiam9101/transfer-classifier/internal/inference"
	"github.com/SyedDaiam9101/transfer-classifier/internal/maxent"
	"github.com/SyedDaiam9101/transfer-classifier/internal/service"
	"github.com/SyedDaiam9101/transfer-classifier/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, trained bool) (*gin.Engine, Deps) {
	t.Helper()
	ds := testutil.WriteDataset(t, 2)
	svc := service.New(imagestore.NewLocal(ds.Dir), inference.NewMock(testutil.Options()), service.Options{
		TrainManifest: dataset.Open(ds.TrainManifest),
		TestManifest:  dataset.Open(ds.TestManifest),
		Optimizer:     maxent.DefaultOptions(),
	})
	registry := service.NewRegistry()
	job := service.NewRetrainJob(svc, registry)
	if trained {
		require.NoError(t, job.Run(context.Background()))
	}
	deps := Deps{Classifier: svc, Registry: registry, Retrain: job}
	return NewRouter(deps), deps
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

func do(t *testing.T, r http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestClassify(t *testing.T) {
	r, _ := newTestRouter(t, true)
	req := httptest.NewRequest(http.MethodPost, "/v1/classify", strings.NewReader(`{"image_path":"test/broccoli.png"}`))
	req.Header.Set("Content-Type", "application/json")

	w, env := do(t, r, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		PredictedLabel string    `json:"predicted_label"`
		Confidence     float32   `json:"confidence"`
		Scores         []float32 `json:"scores"`
		Labels         []string  `json:"labels"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "broccoli", resp.PredictedLabel)
	assert.Equal(t, []string{"tomato", "broccoli", "ocean"}, resp.Labels)
	assert.Len(t, resp.Scores, 3)
	assert.NotEmpty(t, w.Header().Get("x-request-id"))
}

func TestClassify_Errors(t *testing.T) {
	r, _ := newTestRouter(t, true)
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing field", `{}`, http.StatusBadRequest, "invalid"},
		{"bad json", `{`, http.StatusBadRequest, "invalid"},
		{"missing image", `{"image_path":"missing.png"}`, http.StatusNotFound, "not_found"},
		{"not an image", `{"image_path":"tags.tsv"}`, http.StatusBadRequest, "invalid"},
		{"parent directory", `{"image_path":"../x.png"}`, http.StatusBadRequest, "invalid"},
		{"absolute path", `{"image_path":"/etc/hostname"}`, http.StatusBadRequest, "invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/classify", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w, env := do(t, r, req)
			assert.Equal(t, tt.status, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestClassify_Untrained(t *testing.T) {
	r, _ := newTestRouter(t, false)
	req := httptest.NewRequest(http.MethodPost, "/v1/classify", strings.NewReader(`{"image_path":"test/ocean.png"}`))
	req.Header.Set("Content-Type", "application/json")
	w, env := do(t, r, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_fitted", env.Error.Code)
}

func TestClassifyUpload(t *testing.T) {
	r, _ := newTestRouter(t, true)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "snap.png")
	require.NoError(t, err)
	_, err = part.Write(testutil.PNGBytes(t, testutil.Solid(testutil.Palette["ocean"], 32, 24, 1)))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/classify/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, env := do(t, r, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Path           string `json:"path"`
		PredictedLabel string `json:"predicted_label"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "ocean", resp.PredictedLabel)
	assert.Equal(t, "snap.png", resp.Path)
}

func TestClassifyUpload_NoFile(t *testing.T) {
	r, _ := newTestRouter(t, true)
	req := httptest.NewRequest(http.MethodPost, "/v1/classify/upload", strings.NewReader(""))
	w, env := do(t, r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid_file", env.Error.Code)
}

func TestModelAndRetrain(t *testing.T) {
	r, deps := newTestRouter(t, false)

	w, env := do(t, r, httptest.NewRequest(http.MethodGet, "/v1/model", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var model ModelResponse
	require.NoError(t, json.Unmarshal(env.Data, &model))
	assert.Equal(t, "untrained", model.State)

	w, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, env = do(t, r, httptest.NewRequest(http.MethodPost, "/v1/retrain", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &model))
	assert.Equal(t, "trained", model.State)
	assert.Equal(t, 6, model.TrainingSize)
	require.NotNil(t, model.Metrics)
	assert.Equal(t, 3, model.Metrics.Total)
	assert.True(t, deps.Registry.Ready())

	w, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthz(t *testing.T) {
	healthy := true
	_, deps := newTestRouter(t, false)
	deps.Healthy = func() bool { return healthy }
	r := NewRouter(deps)

	w, _ := do(t, r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	healthy = false
	w, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, false)
	w, _ := do(t, r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
