// internal/maxent/train.go
package maxent

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// Options configures L-BFGS training. Zero values take the defaults below.
type Options struct {
	L2                float64       `mapstructure:"l2"`
	MaxIterations     int           `mapstructure:"max_iterations"`
	GradientTolerance float64       `mapstructure:"gradient_tolerance"`
	History           int           `mapstructure:"history"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// DefaultOptions mirrors the usual maximum-entropy trainer settings.
func DefaultOptions() Options {
	return Options{
		L2:                1.0,
		MaxIterations:     200,
		GradientTolerance: 1e-7,
		History:           20,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.L2 < 0 {
		o.L2 = 0
	}
	if o.L2 == 0 && o.MaxIterations == 0 && o.GradientTolerance == 0 && o.History == 0 {
		o.L2 = d.L2
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.GradientTolerance <= 0 {
		o.GradientTolerance = d.GradientTolerance
	}
	if o.History <= 0 {
		o.History = d.History
	}
	return o
}

// TrainStats summarizes an optimization run.
type TrainStats struct {
	Iterations      int
	FuncEvaluations int
	Loss            float64
	Status          string
	Runtime         time.Duration
}

// Train fits a softmax classifier on rows of X with labels y in [0, classes).
// It minimizes the summed cross-entropy plus L2/2 * ||W||^2 (biases are not
// penalized) with batch L-BFGS starting from zero weights, so the result is
// a deterministic function of X, y and opts.
func Train(ctx context.Context, X [][]float32, y []int, classes int, opts Options) (*Model, *TrainStats, error) {
	if len(X) == 0 {
		return nil, nil, fmt.Errorf("no training rows")
	}
	if len(X) != len(y) {
		return nil, nil, fmt.Errorf("got %d rows but %d labels", len(X), len(y))
	}
	if classes < 2 {
		return nil, nil, fmt.Errorf("need at least 2 classes, got %d", classes)
	}
	features := len(X[0])
	rows := make([][]float64, len(X))
	for i, x := range X {
		if len(x) != features {
			return nil, nil, fmt.Errorf("row %d has %d features, expected %d", i, len(x), features)
		}
		if y[i] < 0 || y[i] >= classes {
			return nil, nil, fmt.Errorf("row %d has label %d outside [0,%d)", i, y[i], classes)
		}
		rows[i] = toFloat64(x)
	}

	opts = opts.withDefaults()
	obj := &objective{rows: rows, y: y, classes: classes, features: features, l2: opts.L2}

	problem := optimize.Problem{
		Func: obj.loss,
		Grad: obj.grad,
	}
	settings := &optimize.Settings{
		GradientThreshold: opts.GradientTolerance,
		MajorIterations:   opts.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   opts.GradientTolerance,
			Iterations: 10,
		},
		Recorder: &contextRecorder{ctx: ctx},
	}
	if opts.Timeout > 0 {
		settings.Runtime = opts.Timeout
	}

	x0 := make([]float64, classes*(features+1))
	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{Store: opts.History})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, nil, ctxErr
	}
	if result == nil {
		return nil, nil, fmt.Errorf("optimization failed: %w", err)
	}
	if err != nil && !usable(result) {
		return nil, nil, fmt.Errorf("optimization failed: %w", err)
	}
	if result.Status == optimize.RuntimeLimit {
		return nil, nil, fmt.Errorf("training exceeded timeout %s: %w", opts.Timeout, context.DeadlineExceeded)
	}

	model := &Model{
		classes:  classes,
		features: features,
		weights:  append([]float64(nil), result.X[:classes*features]...),
		biases:   append([]float64(nil), result.X[classes*features:]...),
	}
	stats := &TrainStats{
		Iterations:      result.Stats.MajorIterations,
		FuncEvaluations: result.Stats.FuncEvaluations,
		Loss:            result.F,
		Status:          result.Status.String(),
		Runtime:         result.Stats.Runtime,
	}
	return model, stats, nil
}

// usable accepts a result whose line search stalled close to the optimum.
func usable(r *optimize.Result) bool {
	if math.IsNaN(r.F) || math.IsInf(r.F, 0) {
		return false
	}
	for _, v := range r.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.Stats.MajorIterations > 0
}

// objective is the regularized multinomial cross-entropy. Parameters are laid
// out as classes*features weights followed by classes biases.
type objective struct {
	rows     [][]float64
	y        []int
	classes  int
	features int
	l2       float64
}

func (o *objective) split(x []float64) (w, b []float64) {
	n := o.classes * o.features
	return x[:n], x[n:]
}

func (o *objective) loss(x []float64) float64 {
	w, b := o.split(x)
	z := make([]float64, o.classes)
	var total float64
	for i, row := range o.rows {
		for k := 0; k < o.classes; k++ {
			z[k] = floats.Dot(w[k*o.features:(k+1)*o.features], row) + b[k]
		}
		total += floats.LogSumExp(z) - z[o.y[i]]
	}
	return total + 0.5*o.l2*floats.Dot(w, w)
}

func (o *objective) grad(grad, x []float64) {
	w, b := o.split(x)
	gw, gb := o.split(grad)
	for i := range grad {
		grad[i] = 0
	}

	z := make([]float64, o.classes)
	for i, row := range o.rows {
		for k := 0; k < o.classes; k++ {
			z[k] = floats.Dot(w[k*o.features:(k+1)*o.features], row) + b[k]
		}
		softmax(z)
		z[o.y[i]] -= 1
		for k := 0; k < o.classes; k++ {
			floats.AddScaled(gw[k*o.features:(k+1)*o.features], z[k], row)
			gb[k] += z[k]
		}
	}
	floats.AddScaled(gw, o.l2, w)
}

// contextRecorder aborts the optimization once ctx is done.
type contextRecorder struct {
	ctx context.Context
}

func (r *contextRecorder) Init() error {
	return r.ctx.Err()
}

func (r *contextRecorder) Record(_ *optimize.Location, _ optimize.Operation, _ *optimize.Stats) error {
	return r.ctx.Err()
}
