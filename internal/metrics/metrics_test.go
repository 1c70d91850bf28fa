// internal/metrics/metrics_test.go
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordPrediction(t *testing.T) {
	before := testutil.ToFloat64(PredictionsTotal.WithLabelValues("teddy"))
	RecordPrediction("teddy")
	RecordPrediction("teddy")
	assert.Equal(t, before+2, testutil.ToFloat64(PredictionsTotal.WithLabelValues("teddy")))
}

func TestRecordEvaluation(t *testing.T) {
	RecordEvaluation(0.75, 0.42)
	assert.Equal(t, 0.75, testutil.ToFloat64(EvaluationAccuracy))
	assert.Equal(t, 0.42, testutil.ToFloat64(EvaluationLogLoss))
}

func TestHealthStatus(t *testing.T) {
	SetHealthy()
	assert.Equal(t, 1.0, testutil.ToFloat64(HealthStatus))
	SetUnhealthy()
	assert.Equal(t, 0.0, testutil.ToFloat64(HealthStatus))
}

func TestRecordCacheLookup(t *testing.T) {
	before := testutil.ToFloat64(EmbeddingCacheRequests.WithLabelValues("lru", "hit"))
	RecordCacheLookup("lru", "hit")
	assert.Equal(t, before+1, testutil.ToFloat64(EmbeddingCacheRequests.WithLabelValues("lru", "hit")))
}
