package viscor

import (
	"time"
)

// DefaultAlpha is the overlay transparency used when none is given.
const DefaultAlpha = 0.75

// Heatmap is one frame's view of the cached similarity map.
type Heatmap struct {
	// Data is the H x W row-major map. It aliases the inspector's buffer
	// and is only valid until the next Evaluate.
	Data []float32
	W, H int
	// Min and Max are the color-scale bounds.
	Min, Max float64
	Alpha    float64
	Query    SliceQuery
	// Recomputed reports whether this frame missed the cache.
	Recomputed bool
}

// Inspector holds the double-buffered query state and the single-entry
// similarity cache driven by an interactive frame loop.
//
// Widgets edit the proposed query during a frame; Evaluate brings the
// cache up to date with it and Commit makes it the current query. An
// Inspector is not safe for concurrent use.
type Inspector struct {
	source  SliceSource
	dims    Dims
	policy  ScalePolicy
	keyFunc KeyFunc
	logger  *Logger

	current  SliceQuery
	proposed SliceQuery

	heat         []float32
	key          CacheKey
	fresh        bool
	lo, hi       float64
	computations int
}

// InspectorOption is a functional option for configuring an Inspector.
type InspectorOption func(*Inspector)

// WithScalePolicy sets the color-range policy.
func WithScalePolicy(p ScalePolicy) InspectorOption {
	return func(in *Inspector) {
		in.policy = p
	}
}

// WithKeyFunc overrides the cache-key composition chosen by the source.
func WithKeyFunc(fn KeyFunc) InspectorOption {
	return func(in *Inspector) {
		in.keyFunc = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *Logger) InspectorOption {
	return func(in *Inspector) {
		in.logger = l
	}
}

// WithAlpha sets the initial overlay transparency.
func WithAlpha(alpha float64) InspectorOption {
	return func(in *Inspector) {
		in.proposed.Alpha = NormalizeAlpha(alpha)
	}
}

// NewInspector creates an Inspector over source. The cursor starts at the
// center of image A and the cache starts stale.
func NewInspector(source SliceSource, opts ...InspectorOption) *Inspector {
	dims := source.Dims()
	in := &Inspector{
		source:  source,
		dims:    dims,
		policy:  ScaleAuto,
		keyFunc: CellKey,
		logger:  NoopLogger(),
		heat:    make([]float32, dims.H1*dims.W1),
		lo:      0,
		hi:      1,
	}
	if ks, ok := source.(KeyedSource); ok {
		in.keyFunc = ks.CacheKey
	}
	in.proposed = SliceQuery{Alpha: DefaultAlpha}
	for _, opt := range opts {
		opt(in)
	}
	in.SetCursor(0.5, 0.5)
	in.current = in.proposed
	return in
}

// Dims returns the dimensions of the underlying source.
func (in *Inspector) Dims() Dims { return in.dims }

// Current returns the query committed at the end of the previous frame.
func (in *Inspector) Current() SliceQuery { return in.current }

// Proposed returns this frame's query for in-place editing.
func (in *Inspector) Proposed() *SliceQuery { return &in.proposed }

// SetCursor moves the proposed cursor and resolves its grid cell.
func (in *Inspector) SetCursor(u, v float64) {
	in.proposed.U, in.proposed.V = u, v
	in.proposed.I, in.proposed.J = MapToCell(u, v, in.dims.H0, in.dims.W0)
}

// SetExp toggles the exponential transform on the proposed query.
func (in *Inspector) SetExp(on bool) { in.proposed.Exp = on }

// SetAlpha sets the proposed overlay transparency.
func (in *Inspector) SetAlpha(alpha float64) { in.proposed.Alpha = NormalizeAlpha(alpha) }

// SetVolume selects a volume of a multi-volume source.
func (in *Inspector) SetVolume(v int) { in.proposed.Volume = v }

// Computations returns how many times the source has been evaluated.
func (in *Inspector) Computations() int { return in.computations }

// Evaluate brings the cache up to date with the proposed query and
// returns the map to draw. The source is consulted only when the
// proposed key differs from the cached one or nothing has been computed
// yet. A failing source leaves the cache stale.
func (in *Inspector) Evaluate() (Heatmap, error) {
	key := in.keyFunc(in.proposed)
	recomputed := false
	if !in.fresh || key != in.key {
		start := time.Now()
		in.fresh = false
		if err := in.source.Slice(in.proposed, in.heat); err != nil {
			return Heatmap{}, err
		}
		in.computations++
		if in.proposed.Exp {
			ApplyExp(in.heat)
		}
		Sanitize(in.heat)
		in.lo, in.hi = in.policy.Range(in.heat)
		in.key = key
		in.fresh = true
		recomputed = true
		in.logger.LogRecompute(key, in.lo, in.hi, time.Since(start))
	}
	return Heatmap{
		Data:       in.heat,
		W:          in.dims.W1,
		H:          in.dims.H1,
		Min:        in.lo,
		Max:        in.hi,
		Alpha:      in.proposed.Alpha,
		Query:      in.proposed,
		Recomputed: recomputed,
	}, nil
}

// Commit ends the frame, making the proposed query current.
func (in *Inspector) Commit() { in.current = in.proposed }

// Frame runs one frame: evaluate, hand the map to render, commit. The
// query is committed even when render fails.
func (in *Inspector) Frame(render func(Heatmap) error) error {
	h, err := in.Evaluate()
	if err != nil {
		return err
	}
	defer in.Commit()
	if render == nil {
		return nil
	}
	return render(h)
}
