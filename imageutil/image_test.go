package imageutil

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"

	"github.com/wbrown/viscor/exrfile"
)

func checkerboard(w, h int) *RGBAImage {
	img := NewRGBAImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetRGB(x, y, RGB{R: 255, G: 255, B: 255})
			} else {
				img.SetRGB(x, y, RGB{R: 0, G: 0, B: 0})
			}
		}
	}
	return img
}

func TestRGBAImageFromImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 20, 13, 22))
	src.SetNRGBA(10, 20, color.NRGBA{R: 9, G: 8, B: 7, A: 255})

	img := RGBAImageFromImage(src)
	if img.Width() != 3 || img.Height() != 2 {
		t.Errorf("Expected 3x2, got %dx%d", img.Width(), img.Height())
	}
	if img.Bounds().Min != (image.Point{}) {
		t.Errorf("Expected bounds at the origin, got %v", img.Bounds())
	}
	if got := img.GetRGB(0, 0); got != (RGB{R: 9, G: 8, B: 7}) {
		t.Errorf("Expected {9 8 7}, got %v", got)
	}

	if RGBAImageFromImage(img) != img {
		t.Error("Converting an RGBAImage should return it unchanged")
	}
}

func TestCloneAndFill(t *testing.T) {
	img := checkerboard(4, 4)
	clone := img.Clone()
	fill := RGB{R: 1, G: 2, B: 3}
	clone.Fill(fill)

	if got := img.GetRGB(0, 0); got != (RGB{R: 255, G: 255, B: 255}) {
		t.Errorf("Filling a clone should not affect the original, got %v", got)
	}
	if clone.GetRGB(0, 0) != fill || clone.GetRGB(3, 2) != fill {
		t.Errorf("Expected the clone filled with %v", fill)
	}
	if a := img.Aspect(); a != 1 {
		t.Errorf("Expected aspect 1, got %v", a)
	}
}

func TestResize(t *testing.T) {
	img := checkerboard(8, 4)
	for _, interp := range []Interpolation{InterpolationArea, InterpolationLinear, InterpolationNearest} {
		out := Resize(img, 5, 3, interp)
		if out.Width() != 5 || out.Height() != 3 {
			t.Errorf("Interpolation %v: expected 5x3, got %dx%d", interp, out.Width(), out.Height())
		}
	}

	wide := ResizeToWidth(img, 16, InterpolationNearest)
	if wide.Width() != 16 || wide.Height() != 8 {
		t.Errorf("Expected 16x8, got %dx%d", wide.Width(), wide.Height())
	}
	if wide.GetRGB(2, 0) != img.GetRGB(1, 0) || wide.GetRGB(3, 1) != img.GetRGB(1, 0) {
		t.Error("Nearest upscaling should replicate source pixels")
	}

	thin := ResizeToWidth(NewRGBAImage(100, 1), 10, InterpolationArea)
	if thin.Height() != 1 {
		t.Errorf("Height should not drop below 1, got %d", thin.Height())
	}
}

func TestSaveAndLoadImage(t *testing.T) {
	dir := t.TempDir()
	img := checkerboard(6, 3)

	pngPath := filepath.Join(dir, "board.png")
	if err := SavePNG(img, pngPath); err != nil {
		t.Fatalf("SavePNG failed: %v", err)
	}
	got, err := LoadImage(pngPath)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if !bytes.Equal(got.Pix, img.Pix) {
		t.Error("PNG round trip changed the pixels")
	}

	tifPath := filepath.Join(dir, "board.tif")
	f, err := os.Create(tifPath)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := tiff.Encode(f, img.RGBA, nil); err != nil {
		t.Fatalf("tiff.Encode failed: %v", err)
	}
	f.Close()
	got, err = LoadImage(tifPath)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if !bytes.Equal(got.Pix, img.Pix) {
		t.Error("TIFF round trip changed the pixels")
	}
}

func TestLoadExrImage(t *testing.T) {
	// Linear 0 and a large value tone map to black and near white.
	exr := exrfile.NewImage(2, 1)
	for _, name := range []string{"R", "G", "B"} {
		exr.AddChannel(name, exrfile.Half, []float32{0, 1000})
	}
	exr.AddChannel("desc.000", exrfile.Float, []float32{5, 6})
	var buf bytes.Buffer
	if err := exrfile.Encode(&buf, exr); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "base.exr")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if img.Width() != 2 || img.Height() != 1 {
		t.Fatalf("Expected 2x1, got %dx%d", img.Width(), img.Height())
	}
	if got := img.GetRGB(0, 0); got != (RGB{}) {
		t.Errorf("Expected black, got %v", got)
	}
	if got := img.GetRGB(1, 0); got.R < 250 || got.G < 250 || got.B < 250 {
		t.Errorf("Expected near white, got %v", got)
	}
}

func TestLoadImageErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadImage(filepath.Join(dir, "missing.png")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}

	bogus := filepath.Join(dir, "bogus.png")
	if err := os.WriteFile(bogus, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := LoadImage(bogus); !errors.Is(err, image.ErrFormat) {
		t.Errorf("Expected image.ErrFormat, got %v", err)
	}
}
