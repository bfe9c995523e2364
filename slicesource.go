package viscor

import "fmt"

// Dims describes a correspondence volume: an H0 x W0 source grid, each
// cell of which owns an H1 x W1 slice over image B.
type Dims struct {
	H0, W0 int
	H1, W1 int
}

// SliceSource produces the raw similarity slice for a query cell.
// Implementations write H1*W1 row-major values into dst; post-processing
// is left to the caller.
type SliceSource interface {
	Dims() Dims
	Slice(q SliceQuery, dst []float32) error
}

// KeyedSource is implemented by sources whose slices depend on more of
// the query than (I, J).
type KeyedSource interface {
	CacheKey(q SliceQuery) CacheKey
}

// FieldPair computes slices on demand from two descriptor fields.
type FieldPair struct {
	desc0 *DescriptorField
	eval  *Evaluator
}

// NewFieldPair pairs a query-side field with a target-side field. The
// descriptor lengths must agree.
func NewFieldPair(desc0, desc1 *DescriptorField, opts ...EvaluatorOption) (*FieldPair, error) {
	if desc0.C() != desc1.C() {
		return nil, fmt.Errorf("%w: desc0 has %d channels, desc1 has %d",
			ErrShape, desc0.C(), desc1.C())
	}
	return &FieldPair{desc0: desc0, eval: NewEvaluator(desc1, opts...)}, nil
}

// Dims implements SliceSource.
func (p *FieldPair) Dims() Dims {
	d1 := p.eval.Target()
	return Dims{H0: p.desc0.H(), W0: p.desc0.W(), H1: d1.H(), W1: d1.W()}
}

// Slice implements SliceSource.
func (p *FieldPair) Slice(q SliceQuery, dst []float32) error {
	vec, err := p.desc0.At(q.I, q.J)
	if err != nil {
		return err
	}
	return p.eval.Evaluate(vec, dst)
}
