package imageutil

import (
	"image"

	"golang.org/x/image/draw"
)

// HeatImage colorizes a row-major w x h scalar field, mapping [lo, hi]
// onto the colormap.
func HeatImage(data []float32, w, h int, lo, hi float64, cmap Colormap) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	span := hi - lo
	if span <= 0 {
		span = 1
	}
	for y := 0; y < h; y++ {
		row := data[y*w : (y+1)*w]
		for x, v := range row {
			img.SetNRGBA(x, y, cmap.At((float64(v)-lo)/span))
		}
	}
	return img
}

// Overlay returns a copy of base with the colorized field stretched over
// it, one block per field cell.
func Overlay(base *RGBAImage, data []float32, w, h int, lo, hi float64, cmap Colormap) *RGBAImage {
	out := base.Clone()
	heat := HeatImage(data, w, h, lo, hi, cmap)
	draw.NearestNeighbor.Scale(out.RGBA, out.Bounds(), heat, heat.Bounds(), draw.Over, nil)
	return out
}
