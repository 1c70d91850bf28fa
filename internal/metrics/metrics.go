// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GRPCServerHandlingSeconds is a histogram for gRPC server request latencies
	GRPCServerHandlingSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grpc_server_handling_seconds",
			Help:    "Histogram of response latency (seconds) of gRPC that had been application-level handled by the server.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "code"},
	)

	// HTTPRequestSeconds is a histogram for HTTP API latencies
	HTTPRequestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP API response latency (seconds).",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"route", "status"},
	)

	// ExtractionLatencySeconds is a histogram for one forward pass of the feature extractor
	ExtractionLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feature_extraction_latency_seconds",
			Help:    "Histogram of feature extractor forward-pass latency (seconds).",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// TrainingDurationSeconds is a histogram of full model generation runs
	TrainingDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Histogram of model generation duration (seconds), featurization included.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"result"},
	)

	// EvaluationAccuracy is the micro accuracy of the serving pipeline on the test set
	EvaluationAccuracy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evaluation_accuracy",
			Help: "Micro accuracy of the current pipeline on the held-out manifest.",
		},
	)

	// EvaluationLogLoss is the log-loss of the serving pipeline on the test set
	EvaluationLogLoss = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evaluation_log_loss",
			Help: "Log-loss of the current pipeline on the held-out manifest.",
		},
	)

	// PredictionsTotal counts single-image predictions by predicted label
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Number of single-image predictions, by predicted label.",
		},
		[]string{"label"},
	)

	// EmbeddingCacheRequests counts embedding cache lookups by tier and outcome
	EmbeddingCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_cache_requests_total",
			Help: "Embedding cache lookups by tier (lru, store) and result (hit, miss, error).",
		},
		[]string{"tier", "result"},
	)

	// HealthStatus is a gauge indicating the health status of the service
	HealthStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "health_status",
			Help: "Health status of the service (1 = healthy, 0 = unhealthy).",
		},
	)
)

// RecordGRPCLatency records the latency of a gRPC method call
func RecordGRPCLatency(method, code string, seconds float64) {
	GRPCServerHandlingSeconds.WithLabelValues(method, code).Observe(seconds)
}

// RecordHTTPLatency records the latency of an HTTP request
func RecordHTTPLatency(route, status string, seconds float64) {
	HTTPRequestSeconds.WithLabelValues(route, status).Observe(seconds)
}

// RecordExtractionLatency records the latency of a feature extraction call
func RecordExtractionLatency(seconds float64) {
	ExtractionLatencySeconds.Observe(seconds)
}

// RecordTraining records one model generation run
func RecordTraining(ok bool, seconds float64) {
	result := "success"
	if !ok {
		result = "failure"
	}
	TrainingDurationSeconds.WithLabelValues(result).Observe(seconds)
}

// RecordEvaluation publishes the held-out metrics of the serving pipeline
func RecordEvaluation(accuracy, logLoss float64) {
	EvaluationAccuracy.Set(accuracy)
	EvaluationLogLoss.Set(logLoss)
}

// RecordPrediction counts a prediction for label
func RecordPrediction(label string) {
	PredictionsTotal.WithLabelValues(label).Inc()
}

// RecordCacheLookup counts an embedding cache lookup
func RecordCacheLookup(tier, result string) {
	EmbeddingCacheRequests.WithLabelValues(tier, result).Inc()
}

// SetHealthy sets the health status to healthy
func SetHealthy() {
	HealthStatus.Set(1)
}

// SetUnhealthy sets the health status to unhealthy
func SetUnhealthy() {
	HealthStatus.Set(0)
}
