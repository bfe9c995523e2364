package exrfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/x448/float16"
)

// Image is a decoded scanline image. Planes[k] holds channel k of the
// header as Width*Height row-major samples over the data window.
type Image struct {
	Header
	Planes [][]float32
}

// NewImage creates an empty ZIP-compressed image of the given size.
func NewImage(width, height int) *Image {
	win := Box{XMax: int32(width - 1), YMax: int32(height - 1)}
	return &Image{Header: Header{
		Compression:   CompressionZIP,
		DataWindow:    win,
		DisplayWindow: win,
	}}
}

// AddChannel appends a channel. plane must hold Width*Height samples.
func (img *Image) AddChannel(name string, t PixelType, plane []float32) {
	img.Channels = append(img.Channels, Channel{Name: name, Type: t, XSampling: 1, YSampling: 1})
	img.Planes = append(img.Planes, plane)
}

// Plane returns the samples of the named channel, or nil.
func (img *Image) Plane(name string) []float32 {
	for k, c := range img.Channels {
		if c.Name == name {
			return img.Planes[k]
		}
	}
	return nil
}

// Decode reads a complete image from r.
func Decode(r io.Reader) (*Image, error) {
	return DecodeChannels(r, nil)
}

// DecodeChannels reads an image from r, keeping only the channels for
// which keep returns true; the planes of the others are left nil. A nil
// keep keeps every channel.
func DecodeChannels(r io.Reader, keep func(name string) bool) (*Image, error) {
	br := bufio.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	if !h.Compression.supported() {
		return nil, fmt.Errorf("%w: %s compression", ErrUnsupported, h.Compression)
	}
	for _, c := range h.Channels {
		if c.XSampling != 1 || c.YSampling != 1 {
			return nil, fmt.Errorf("%w: channel %s is subsampled", ErrUnsupported, c.Name)
		}
	}
	width, height := h.Width(), h.Height()
	if int64(width)*int64(height) > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d data window", ErrUnsupported, width, height)
	}

	img := &Image{Header: *h, Planes: make([][]float32, len(h.Channels))}
	for k, c := range h.Channels {
		if keep == nil || keep(c.Name) {
			img.Planes[k] = make([]float32, width*height)
		}
	}

	// Chunks follow the offset table in file order, so the table is only
	// skipped; each chunk names its own first scanline.
	chunks := h.chunkCount()
	if _, err := br.Discard(8 * chunks); err != nil {
		return nil, fmt.Errorf("%w: reading offset table: %w", ErrFormat, err)
	}
	for n := 0; n < chunks; n++ {
		if err := img.readChunk(br); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", n, err)
		}
	}
	return img, nil
}

func (img *Image) readChunk(br *bufio.Reader) error {
	var head struct {
		Y    int32
		Size int32
	}
	if err := binary.Read(br, binary.LittleEndian, &head); err != nil {
		return fmt.Errorf("%w: %w", ErrFormat, err)
	}
	win := img.DataWindow
	lines := img.Compression.LinesPerBlock()
	if head.Y < win.YMin || head.Y > win.YMax || (int(head.Y)-int(win.YMin))%lines != 0 {
		return fmt.Errorf("%w: chunk starts at scanline %d", ErrFormat, head.Y)
	}
	lines = min(lines, int(win.YMax)-int(head.Y)+1)
	rawSize := lines * img.lineBytes()
	if head.Size < 0 || int(head.Size) > rawSize {
		return fmt.Errorf("%w: chunk of %d bytes, at most %d expected", ErrFormat, head.Size, rawSize)
	}
	data := make([]byte, head.Size)
	if _, err := io.ReadFull(br, data); err != nil {
		return fmt.Errorf("%w: %w", ErrFormat, err)
	}

	// A chunk that would not shrink is stored raw.
	if int(head.Size) < rawSize {
		var err error
		switch img.Compression {
		case CompressionZIP, CompressionZIPS:
			data, err = zipDecompress(data, rawSize)
		case CompressionRLE:
			data, err = rleDecompress(data, rawSize)
		default:
			err = fmt.Errorf("%w: short uncompressed chunk", ErrFormat)
		}
		if err != nil {
			return err
		}
	}

	width := img.Width()
	row := int(head.Y) - int(win.YMin)
	for y := 0; y < lines; y++ {
		for k, c := range img.Channels {
			n := width * c.Type.Size()
			if plane := img.Planes[k]; plane != nil {
				decodeSamples(plane[(row+y)*width:(row+y+1)*width], data[:n], c.Type)
			}
			data = data[n:]
		}
	}
	return nil
}

func decodeSamples(dst []float32, src []byte, t PixelType) {
	le := binary.LittleEndian
	switch t {
	case Half:
		for i := range dst {
			dst[i] = float16.Frombits(le.Uint16(src[2*i:])).Float32()
		}
	case Float:
		for i := range dst {
			dst[i] = math.Float32frombits(le.Uint32(src[4*i:]))
		}
	case Uint:
		for i := range dst {
			dst[i] = float32(le.Uint32(src[4*i:]))
		}
	}
}
