package viscor

import (
	"fmt"
	"image"
	"strings"

	"github.com/wbrown/viscor/imageutil"
)

const (
	ESC = "\u001b"

	// upperHalf paints its top half with the foreground color and its
	// bottom half with the background, two pixels per terminal cell.
	upperHalf = "▀"
)

type ansiCell struct {
	fg, bg imageutil.RGB
}

// RenderANSI renders img as 24-bit color half-block art cols characters
// wide. Runs of identical cells share one escape sequence.
func RenderANSI(img image.Image, cols int) string {
	src := imageutil.RGBAImageFromImage(img)
	if cols < 1 || src.Width() == 0 || src.Height() == 0 {
		return ""
	}
	rows := int(float64(cols)*src.Aspect()/2 + 0.5)
	if rows < 1 {
		rows = 1
	}
	px := imageutil.Resize(src, cols, rows*2, imageutil.InterpolationArea)

	var sb strings.Builder
	for y := 0; y < rows; y++ {
		var run ansiCell
		count := 0
		for x := 0; x < cols; x++ {
			cell := ansiCell{fg: px.GetRGB(x, 2*y), bg: px.GetRGB(x, 2*y+1)}
			if count > 0 && cell != run {
				sb.WriteString(formatANSICode(run, count))
				count = 0
			}
			run = cell
			count++
		}
		if count > 0 {
			sb.WriteString(formatANSICode(run, count))
		}
		sb.WriteString(fmt.Sprintf("%s[0m\n", ESC))
	}
	return sb.String()
}

// formatANSICode formats count repetitions of a half block with the
// cell's foreground and background colors.
func formatANSICode(cell ansiCell, count int) string {
	var code strings.Builder
	fmt.Fprintf(&code, "%s[38;2;%d;%d;%d;48;2;%d;%d;%dm", ESC,
		cell.fg.R, cell.fg.G, cell.fg.B,
		cell.bg.R, cell.bg.G, cell.bg.B)
	code.WriteString(strings.Repeat(upperHalf, count))
	return code.String()
}
