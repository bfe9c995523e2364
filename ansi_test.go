package viscor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wbrown/viscor/imageutil"
)

func TestFormatANSICode(t *testing.T) {
	cell := ansiCell{
		fg: imageutil.RGB{R: 1, G: 2, B: 3},
		bg: imageutil.RGB{R: 4, G: 5, B: 6},
	}
	assert.Equal(t, ESC+"[38;2;1;2;3;48;2;4;5;6m▀▀▀", formatANSICode(cell, 3))
}

func TestRenderANSIUniform(t *testing.T) {
	img := imageutil.NewRGBAImage(16, 8)
	img.Fill(imageutil.RGB{R: 10, G: 20, B: 30})

	out := RenderANSI(img, 8)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	// 8 columns of a 2:1 image is 2 rows of half blocks.
	assert.Len(t, lines, 2)
	for _, line := range lines {
		// A uniform row is a single run.
		assert.Equal(t, 1, strings.Count(line, "[38;2;"))
		assert.Equal(t, 8, strings.Count(line, upperHalf))
		assert.True(t, strings.HasSuffix(line, ESC+"[0m"))
	}
}

func TestRenderANSISplitsRuns(t *testing.T) {
	img := imageutil.NewRGBAImage(4, 2)
	img.Fill(imageutil.RGB{R: 255, G: 255, B: 255})
	for y := 0; y < 2; y++ {
		img.SetRGB(0, y, imageutil.RGB{})
		img.SetRGB(1, y, imageutil.RGB{})
	}

	out := RenderANSI(img, 4)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "[38;2;0;0;0;48;2;0;0;0m▀▀")
	assert.Contains(t, out, "[38;2;255;255;255;48;2;255;255;255m▀▀")
}

func TestRenderANSIEmpty(t *testing.T) {
	assert.Empty(t, RenderANSI(imageutil.NewRGBAImage(4, 4), 0))
	assert.Empty(t, RenderANSI(imageutil.NewRGBAImage(0, 0), 10))
}
