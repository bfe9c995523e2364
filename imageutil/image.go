// Package imageutil provides the image plumbing around the heatmap
// inspector: decoding base images, resizing, colormaps and overlays.
package imageutil

import (
	"image"
	"image/color"
	"image/draw"
)

// RGB represents a color in the RGB color space with 8-bit channels.
type RGB struct {
	R, G, B uint8
}

// ToColor converts RGB to an opaque color.RGBA.
func (rgb RGB) ToColor() color.RGBA {
	return color.RGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 255}
}

// RGBAImage wraps image.RGBA with convenience methods for pixel access.
type RGBAImage struct {
	*image.RGBA
}

// NewRGBAImage creates a new RGBAImage with the specified dimensions.
func NewRGBAImage(width, height int) *RGBAImage {
	return &RGBAImage{
		RGBA: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// RGBAImageFromImage converts any image.Image to an RGBAImage whose
// bounds start at the origin.
func RGBAImageFromImage(img image.Image) *RGBAImage {
	if rgba, ok := img.(*RGBAImage); ok {
		return rgba
	}
	b := img.Bounds()
	dst := NewRGBAImage(b.Dx(), b.Dy())
	draw.Draw(dst.RGBA, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Width returns the image width.
func (img *RGBAImage) Width() int {
	return img.Bounds().Dx()
}

// Height returns the image height.
func (img *RGBAImage) Height() int {
	return img.Bounds().Dy()
}

// Aspect returns height over width.
func (img *RGBAImage) Aspect() float64 {
	if img.Width() == 0 {
		return 1
	}
	return float64(img.Height()) / float64(img.Width())
}

// GetRGB returns the RGB value at (x, y).
func (img *RGBAImage) GetRGB(x, y int) RGB {
	c := img.RGBAAt(x, y)
	return RGB{R: c.R, G: c.G, B: c.B}
}

// SetRGB sets the RGB value at (x, y).
func (img *RGBAImage) SetRGB(x, y int, c RGB) {
	img.SetRGBA(x, y, c.ToColor())
}

// Clone creates a deep copy of the image.
func (img *RGBAImage) Clone() *RGBAImage {
	clone := NewRGBAImage(img.Width(), img.Height())
	copy(clone.Pix, img.Pix)
	return clone
}

// Fill paints the whole image with c.
func (img *RGBAImage) Fill(c RGB) {
	draw.Draw(img.RGBA, img.Bounds(), image.NewUniform(c.ToColor()), image.Point{}, draw.Src)
}
