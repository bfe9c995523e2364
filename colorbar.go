package viscor

import (
	"image"
	"image/color"
	"strconv"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/wbrown/viscor/imageutil"
)

const labelFontSize = 12.0

var (
	labelFontOnce sync.Once
	labelFont     *truetype.Font
	labelFontErr  error
)

func loadLabelFont() (*truetype.Font, error) {
	labelFontOnce.Do(func() {
		labelFont, labelFontErr = freetype.ParseFont(goregular.TTF)
	})
	return labelFont, labelFontErr
}

// FormatBound renders a color-scale bound for a tick label.
func FormatBound(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}

// ColorBar draws a vertical color scale from lo (bottom) to hi (top)
// with labelled bounds and midpoint.
func ColorBar(width, height int, lo, hi float64, cmap imageutil.Colormap) (*imageutil.RGBAImage, error) {
	img := imageutil.NewRGBAImage(width, height)
	img.Fill(frameBackground)

	barW := max(width/4, 4)
	margin := int(labelFontSize)
	barH := height - 2*margin
	if barH < 1 {
		return img, nil
	}
	for y := 0; y < barH; y++ {
		t := 1 - float64(y)/float64(max(barH-1, 1))
		c := cmap.At(t)
		for x := 0; x < barW; x++ {
			img.SetRGBA(x+2, y+margin, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}

	f, err := loadLabelFont()
	if err != nil {
		return nil, err
	}
	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(f)
	ctx.SetFontSize(labelFontSize)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img.RGBA)
	ctx.SetSrc(image.NewUniform(color.White))
	ctx.SetHinting(font.HintingFull)

	labels := []struct {
		v float64
		y int
	}{
		{hi, margin + int(labelFontSize/2)},
		{(lo + hi) / 2, margin + barH/2 + int(labelFontSize/2)},
		{lo, margin + barH},
	}
	for _, l := range labels {
		if _, err := ctx.DrawString(FormatBound(l.v), freetype.Pt(barW+6, l.y)); err != nil {
			return nil, err
		}
	}
	return img, nil
}
