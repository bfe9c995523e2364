package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"github.com/wbrown/viscor/exrfile"
)

// imageInfo describes a decoded image file.
type imageInfo struct {
	Width    int
	Height   int
	Channels int
	Depth    string
}

var depthNames = map[gocv.MatType]string{
	gocv.MatTypeCV8U:  "uint8",
	gocv.MatTypeCV8S:  "int8",
	gocv.MatTypeCV16U: "uint16",
	gocv.MatTypeCV16S: "int16",
	gocv.MatTypeCV32S: "int32",
	gocv.MatTypeCV32F: "float32",
	gocv.MatTypeCV64F: "float64",
}

func matDepth(m gocv.Mat) gocv.MatType {
	return m.Type() & 7
}

func readUnchanged(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadUnchanged)
	if img.Empty() {
		img.Close()
		return img, fmt.Errorf("couldn't load %s", path)
	}
	return img, nil
}

// readImageInfo reports the size, channel count and sample type of an
// image file such as a 16-bit TIFF. OpenCV decodes at most four channels,
// so EXR files go through readExrInfo instead.
func readImageInfo(path string) (imageInfo, error) {
	img, err := readUnchanged(path)
	if err != nil {
		return imageInfo{}, err
	}
	defer img.Close()

	return imageInfo{
		Width:    img.Cols(),
		Height:   img.Rows(),
		Channels: img.Channels(),
		Depth:    depthNames[matDepth(img)],
	}, nil
}

func isExr(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".exr")
}

// readExrInfo reads the header of an OpenEXR image. Unlike OpenCV it sees
// every channel, in file order, under its stored name.
func readExrInfo(path string) (imageInfo, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return imageInfo{}, nil, err
	}
	defer f.Close()

	h, err := exrfile.ReadHeader(f)
	if err != nil {
		return imageInfo{}, nil, fmt.Errorf("couldn't read %s: %w", path, err)
	}
	depth := ""
	for _, c := range h.Channels {
		switch t := c.Type.String(); {
		case depth == "":
			depth = t
		case depth != t:
			depth = "mixed"
		}
	}
	info := imageInfo{
		Width:    h.Width(),
		Height:   h.Height(),
		Channels: len(h.Channels),
		Depth:    depth,
	}
	return info, h.Names(), nil
}

// exportRGB writes the color channels of the image at in as an 8-bit
// RGB image at out. Floating-point inputs are taken to be in [0, 1].
func exportRGB(in, out string) error {
	var (
		img gocv.Mat
		err error
	)
	if isExr(in) {
		img, err = readExrColor(in)
	} else {
		img, err = readUnchanged(in)
	}
	if err != nil {
		return err
	}
	defer img.Close()

	if img.Channels() < 3 {
		return fmt.Errorf("the first channels must be R, G, B; %s has %d channels",
			in, img.Channels())
	}

	color := img
	if img.Channels() == 4 {
		color = gocv.NewMat()
		defer color.Close()
		gocv.CvtColor(img, &color, gocv.ColorBGRAToBGR)
	}

	u8 := gocv.NewMat()
	defer u8.Close()
	switch matDepth(color) {
	case gocv.MatTypeCV8U:
		color.CopyTo(&u8)
	case gocv.MatTypeCV16U:
		color.ConvertToWithParams(&u8, gocv.MatTypeCV8UC3, 1.0/257, 0)
	default:
		color.ConvertToWithParams(&u8, gocv.MatTypeCV8UC3, 255, 0)
	}

	if !gocv.IMWrite(out, u8) {
		return fmt.Errorf("couldn't create %s", out)
	}
	return nil
}

// readExrColor decodes the R, G and B channels of an OpenEXR image into a
// float BGR Mat, wherever they sit among the other channels.
func readExrColor(path string) (gocv.Mat, error) {
	f, err := os.Open(path)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer f.Close()

	img, err := exrfile.DecodeChannels(f, func(name string) bool {
		return name == "R" || name == "G" || name == "B"
	})
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("couldn't load %s: %w", path, err)
	}
	var bgr [3][]float32
	for k, name := range []string{"B", "G", "R"} {
		if bgr[k] = img.Plane(name); bgr[k] == nil {
			return gocv.Mat{}, fmt.Errorf("%s has no %s channel", path, name)
		}
	}

	n := img.Width() * img.Height()
	buf := make([]byte, 0, 12*n)
	for p := 0; p < n; p++ {
		for k := range bgr {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(bgr[k][p]))
		}
	}
	return gocv.NewMatFromBytes(img.Height(), img.Width(), gocv.MatTypeCV32FC3, buf)
}
