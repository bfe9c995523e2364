package viscor

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// SanitizeLimit is the finite stand-in for non-finite similarity values
// and the clamp bound applied before display. Color interpolation
// downstream cannot handle NaN or infinities.
const SanitizeLimit = 1e30

// minBandPixels keeps bands large enough that scheduling them costs less
// than the dot products they run.
const minBandPixels = 4096

// Evaluator computes similarity maps against a fixed target field.
type Evaluator struct {
	target      *DescriptorField
	scale       float32
	parallelism int
}

// EvaluatorOption is a functional option for configuring an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithParallelism sets how many row bands may run at once. Values below
// 2 evaluate inline on the calling goroutine.
func WithParallelism(n int) EvaluatorOption {
	return func(e *Evaluator) {
		e.parallelism = n
	}
}

// NewEvaluator creates an Evaluator over target. Default parallelism is
// GOMAXPROCS.
func NewEvaluator(target *DescriptorField, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		target:      target,
		scale:       float32(1 / math.Sqrt(float64(target.C()))),
		parallelism: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Target returns the field the evaluator compares against.
func (e *Evaluator) Target() *DescriptorField { return e.target }

// Evaluate writes <q, F(i,j)> / sqrt(C) for every target pixel into dst,
// row-major. It returns only after every band has finished.
//
// Each output element is one row-times-vector product, so the result is
// the same however the rows are banded.
func (e *Evaluator) Evaluate(q, dst []float32) error {
	f := e.target
	n, c := f.H()*f.W(), f.C()
	if len(q) != c {
		return fmt.Errorf("%w: query has %d channels, field has %d", ErrShape, len(q), c)
	}
	if len(dst) != n {
		return fmt.Errorf("%w: map has %d cells, field has %d pixels", ErrShape, len(dst), n)
	}

	x := blas32.Vector{N: c, Inc: 1, Data: q}
	band := func(lo, hi int) {
		a := blas32.General{
			Rows:   hi - lo,
			Cols:   c,
			Stride: c,
			Data:   f.Pixels()[lo*c : hi*c],
		}
		y := blas32.Vector{N: hi - lo, Inc: 1, Data: dst[lo:hi]}
		blas32.Gemv(blas.NoTrans, e.scale, a, x, 0, y)
	}

	workers := e.parallelism
	if limit := n / minBandPixels; workers > limit {
		workers = limit
	}
	if workers < 2 {
		band(0, n)
		return nil
	}

	step := (n + workers - 1) / workers
	var g errgroup.Group
	for lo := 0; lo < n; lo += step {
		lo, hi := lo, min(lo+step, n)
		g.Go(func() error {
			band(lo, hi)
			return nil
		})
	}
	return g.Wait()
}

// ApplyExp replaces every value with its exponential.
func ApplyExp(m []float32) {
	for i, v := range m {
		m[i] = float32(math.Exp(float64(v)))
	}
}

// Sanitize substitutes NaN and +Inf with SanitizeLimit, -Inf with
// -SanitizeLimit, and clamps everything into [-SanitizeLimit, SanitizeLimit].
func Sanitize(m []float32) {
	const limit = float32(SanitizeLimit)
	for i, v := range m {
		switch {
		case v != v:
			m[i] = limit
		case v > limit:
			m[i] = limit
		case v < -limit:
			m[i] = -limit
		}
	}
}

// Extrema returns the smallest and largest values of m. An empty map
// yields (0, 0).
func Extrema(m []float32) (lo, hi float64) {
	if len(m) == 0 {
		return 0, 0
	}
	mn, mx := m[0], m[0]
	for _, v := range m[1:] {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	return float64(mn), float64(mx)
}
