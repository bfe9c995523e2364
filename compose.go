package viscor

import (
	"image"
	"image/draw"

	"github.com/wbrown/viscor/imageutil"
)

var (
	frameBackground = imageutil.RGB{R: 115, G: 140, B: 153}
	queryColor      = imageutil.RGB{R: 255, G: 99, B: 71}
)

// DefaultColorBarWidth is the width of the color scale next to image B.
const DefaultColorBarWidth = 100

// Composer lays out one inspector frame: image A with the query marker,
// image B under the heat overlay, and the color scale.
type Composer struct {
	panel0, panel1 *imageutil.RGBAImage
	cmap           imageutil.Colormap
	barWidth       int
}

// NewComposer prepares the two base images at panelWidth pixels wide.
// The resized panels are reused by every frame.
func NewComposer(image0, image1 *imageutil.RGBAImage, panelWidth int) *Composer {
	return &Composer{
		panel0:   imageutil.ResizeToWidth(image0, panelWidth, imageutil.InterpolationArea),
		panel1:   imageutil.ResizeToWidth(image1, panelWidth, imageutil.InterpolationArea),
		cmap:     imageutil.Viridis(256),
		barWidth: DefaultColorBarWidth,
	}
}

// Colormap returns the opaque colormap used for the scale.
func (c *Composer) Colormap() imageutil.Colormap { return c.cmap }

// Panels returns the composed image A and image B panels without the
// color scale.
func (c *Composer) Panels(h Heatmap) (a, b *imageutil.RGBAImage) {
	a = c.panel0.Clone()
	drawQueryMarker(a, h.Query.U, h.Query.V)
	cmap := imageutil.TransparentCopy(c.cmap, h.Alpha)
	b = imageutil.Overlay(c.panel1, h.Data, h.W, h.H, h.Min, h.Max, cmap)
	return a, b
}

// Compose renders the full frame for h.
func (c *Composer) Compose(h Heatmap) (*imageutil.RGBAImage, error) {
	a, b := c.Panels(h)
	height := max(a.Height(), b.Height())
	bar, err := ColorBar(c.barWidth, height, h.Min, h.Max, c.cmap)
	if err != nil {
		return nil, err
	}

	out := imageutil.NewRGBAImage(a.Width()+b.Width()+bar.Width(), height)
	out.Fill(frameBackground)
	x := 0
	for _, p := range []*imageutil.RGBAImage{a, b, bar} {
		r := image.Rect(x, 0, x+p.Width(), p.Height())
		draw.Draw(out.RGBA, r, p.RGBA, image.Point{}, draw.Src)
		x += p.Width()
	}
	return out, nil
}

// drawQueryMarker draws crosshair lines and a dot at the normalized
// position (u, v).
func drawQueryMarker(img *imageutil.RGBAImage, u, v float64) {
	w, h := img.Width(), img.Height()
	px := clampIndex(u, w)
	py := clampIndex(v, h)
	for x := 0; x < w; x++ {
		img.SetRGB(x, py, queryColor)
	}
	for y := 0; y < h; y++ {
		img.SetRGB(px, y, queryColor)
	}
	const r = 3
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				img.SetRGB(px+dx, py+dy, queryColor)
			}
		}
	}
}
