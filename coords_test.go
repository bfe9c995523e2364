package viscor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapToCell(t *testing.T) {
	tests := []struct {
		name   string
		u, v   float64
		h0, w0 int
		i, j   int
	}{
		{"Origin", 0, 0, 10, 10, 0, 0},
		{"NearEnd", 0.95, 0.95, 10, 10, 9, 9},
		{"Clamped", 1.5, -0.5, 10, 10, 0, 9},
		{"ClampedRows", -0.5, 1.5, 10, 10, 9, 0},
		{"ExactlyOne", 1, 1, 10, 10, 9, 9},
		{"NonSquare", 0.5, 0.25, 4, 8, 1, 4},
		{"NaN", math.NaN(), math.NaN(), 10, 10, 0, 0},
		{"Infinite", math.Inf(1), math.Inf(-1), 10, 10, 0, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, j := MapToCell(tt.u, tt.v, tt.h0, tt.w0)
			assert.Equal(t, tt.i, i, "row")
			assert.Equal(t, tt.j, j, "column")
		})
	}
}

func TestNormalizeAlpha(t *testing.T) {
	assert.InDelta(t, 0.75, NormalizeAlpha(0.7512), 1e-12)
	assert.InDelta(t, 0.33, NormalizeAlpha(0.334), 1e-12)
	assert.Equal(t, 1.0, NormalizeAlpha(1.7))
	assert.Equal(t, 0.0, NormalizeAlpha(-0.2))
	assert.Equal(t, 0.0, NormalizeAlpha(math.NaN()))
}
