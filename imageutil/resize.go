package imageutil

import (
	"image"

	"golang.org/x/image/draw"
)

// Interpolation specifies the interpolation method for resizing.
type Interpolation int

const (
	// InterpolationArea uses Catmull-Rom, the closest match to area
	// averaging when shrinking photos.
	InterpolationArea Interpolation = iota

	// InterpolationLinear uses bilinear interpolation.
	InterpolationLinear

	// InterpolationNearest keeps hard cell edges. Heatmaps use it so that
	// every descriptor cell stays visible.
	InterpolationNearest
)

func (interp Interpolation) scaler() draw.Scaler {
	switch interp {
	case InterpolationLinear:
		return draw.BiLinear
	case InterpolationNearest:
		return draw.NearestNeighbor
	default:
		return draw.CatmullRom
	}
}

// Resize resizes img to width x height.
func Resize(img image.Image, width, height int, interp Interpolation) *RGBAImage {
	if r, ok := img.(*RGBAImage); ok {
		img = r.RGBA
	}
	dst := NewRGBAImage(width, height)
	interp.scaler().Scale(dst.RGBA, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// ResizeToWidth resizes an image to the specified width while maintaining
// aspect ratio.
func ResizeToWidth(img *RGBAImage, width int, interp Interpolation) *RGBAImage {
	height := int(float64(width)*img.Aspect() + 0.5)
	if height < 1 {
		height = 1
	}
	return Resize(img, width, height, interp)
}
