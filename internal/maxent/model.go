// internal/maxent/model.go
package maxent

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Model is a trained multinomial logistic regression: one weight row and one
// bias per class. A Model is read-only after Train returns.
type Model struct {
	classes  int
	features int
	// weights is row-major, classes x features.
	weights []float64
	biases  []float64
}

func (m *Model) Classes() int  { return m.classes }
func (m *Model) Features() int { return m.features }

// Scores returns softmax-activated class scores for x, in key order.
func (m *Model) Scores(x []float32) []float64 {
	xf := toFloat64(x)
	z := make([]float64, m.classes)
	m.logits(xf, z)
	softmax(z)
	return z
}

// Predict returns the arg-max key and the full score vector for x.
func (m *Model) Predict(x []float32) (int, []float64) {
	scores := m.Scores(x)
	return floats.MaxIdx(scores), scores
}

func (m *Model) logits(x, dst []float64) {
	for k := 0; k < m.classes; k++ {
		row := m.weights[k*m.features : (k+1)*m.features]
		dst[k] = floats.Dot(row, x) + m.biases[k]
	}
}

// softmax replaces z with exp(z)/sum(exp(z)), computed stably.
func softmax(z []float64) {
	lse := floats.LogSumExp(z)
	for i, v := range z {
		z[i] = math.Exp(v - lse)
	}
}

func toFloat64(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}
