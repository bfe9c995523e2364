package viscor

import "math"

// MapToCell maps a normalized position (u, v) over image A to the grid
// cell (i, j) of an h0 x w0 field. u runs along the width and v along the
// height. Positions outside [0,1] clamp to the border cells and NaN maps
// to the first row or column.
func MapToCell(u, v float64, h0, w0 int) (i, j int) {
	return clampIndex(v, h0), clampIndex(u, w0)
}

func clampIndex(t float64, n int) int {
	if n < 1 || math.IsNaN(t) {
		return 0
	}
	x := math.Floor(t * float64(n))
	if x < 0 {
		return 0
	}
	if x > float64(n-1) {
		return n - 1
	}
	return int(x)
}

// NormalizeAlpha rounds an overlay transparency to a multiple of 0.01 and
// clamps it into [0, 1].
func NormalizeAlpha(alpha float64) float64 {
	if math.IsNaN(alpha) {
		return 0
	}
	return math.Max(math.Min(math.Round(alpha*100)/100, 1), 0)
}
