package imageutil

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"sync"
)

// Colormap is a named lookup table from [0, 1] to colors.
type Colormap struct {
	Name   string
	Colors []color.NRGBA
}

// viridisStops samples matplotlib's viridis at t = 0, 0.1, ..., 1.
var viridisStops = []RGB{
	{68, 1, 84},
	{72, 36, 117},
	{65, 68, 135},
	{53, 95, 141},
	{42, 120, 142},
	{33, 145, 140},
	{34, 168, 132},
	{68, 191, 112},
	{122, 209, 81},
	{189, 223, 38},
	{253, 231, 37},
}

// Viridis returns an opaque viridis colormap with size entries.
func Viridis(size int) Colormap {
	if size < 2 {
		size = 2
	}
	colors := make([]color.NRGBA, size)
	last := float64(len(viridisStops) - 1)
	for i := range colors {
		t := float64(i) / float64(size-1) * last
		k0 := int(math.Floor(t))
		k1 := min(k0+1, len(viridisStops)-1)
		u := t - float64(k0)
		c0, c1 := viridisStops[k0], viridisStops[k1]
		lerp := func(a, b uint8) uint8 {
			return uint8(math.Round((1-u)*float64(a) + u*float64(b)))
		}
		colors[i] = color.NRGBA{R: lerp(c0.R, c1.R), G: lerp(c0.G, c1.G), B: lerp(c0.B, c1.B), A: 255}
	}
	return Colormap{Name: "viridis", Colors: colors}
}

// At maps t in [0, 1] to a color; t outside the range clamps.
func (c Colormap) At(t float64) color.NRGBA {
	n := len(c.Colors)
	if n == 0 {
		return color.NRGBA{}
	}
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return c.Colors[int(math.Round(t*float64(n-1)))]
}

var (
	transparentMu     sync.Mutex
	transparentCopies = map[string]Colormap{}
)

// TransparentCopy returns src with every entry's alpha scaled by alpha,
// rounded to a multiple of 0.01. Copies are registered by name, so
// repeated requests for the same alpha share one table.
func TransparentCopy(src Colormap, alpha float64) Colormap {
	alpha = math.Max(math.Min(math.Round(alpha*100)/100, 1), 0)
	name := fmt.Sprintf("%s_%s_%d", strconv.FormatFloat(alpha, 'f', 2, 64), src.Name, len(src.Colors))

	transparentMu.Lock()
	defer transparentMu.Unlock()
	if cm, ok := transparentCopies[name]; ok {
		return cm
	}
	colors := make([]color.NRGBA, len(src.Colors))
	for i, c := range src.Colors {
		c.A = uint8(math.Round(float64(c.A) * alpha))
		colors[i] = c
	}
	cm := Colormap{Name: name, Colors: colors}
	transparentCopies[name] = cm
	return cm
}
