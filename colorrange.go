package viscor

import "fmt"

// MinColorSpan is the smallest max-min span the color scale may have.
const MinColorSpan = 0.1

// ScalePolicy selects how display bounds are derived from a map.
type ScalePolicy int

const (
	// ScaleAuto uses the extrema of the current map.
	ScaleAuto ScalePolicy = iota
	// ScaleFixed01 always uses [0, 1].
	ScaleFixed01
)

func (p ScalePolicy) String() string {
	switch p {
	case ScaleAuto:
		return "auto"
	case ScaleFixed01:
		return "fix01"
	default:
		return fmt.Sprintf("ScalePolicy(%d)", int(p))
	}
}

// Range returns guarded (min, max) display bounds for m.
func (p ScalePolicy) Range(m []float32) (lo, hi float64) {
	if p == ScaleFixed01 {
		return GuardRange(0, 1)
	}
	return GuardRange(Extrema(m))
}

// GuardRange widens hi to lo+MinColorSpan when the span is smaller.
func GuardRange(lo, hi float64) (float64, float64) {
	if hi-lo < MinColorSpan {
		hi = lo + MinColorSpan
	}
	return lo, hi
}
