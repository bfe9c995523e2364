package exrfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/x448/float16"
)

// Encode writes img as a single-part scanline image with increasing line
// order. Channels are stored sorted by name as OpenEXR requires; img
// itself is not reordered. Only none, zips and zip compression are
// written.
func Encode(w io.Writer, img *Image) error {
	if err := img.validate(); err != nil {
		return err
	}
	switch img.Compression {
	case CompressionNone, CompressionZIPS, CompressionZIP:
	default:
		return fmt.Errorf("%w: writing %s compression", ErrUnsupported, img.Compression)
	}

	order := make([]int, len(img.Channels))
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool {
		return img.Channels[order[a]].Name < img.Channels[order[b]].Name
	})
	h := img.Header
	h.LineOrder = IncreasingY
	h.Channels = make([]Channel, len(order))
	planes := make([][]float32, len(order))
	for n, k := range order {
		h.Channels[n] = img.Channels[k]
		planes[n] = img.Planes[k]
	}
	for n := 1; n < len(h.Channels); n++ {
		if h.Channels[n].Name == h.Channels[n-1].Name {
			return fmt.Errorf("exrfile: duplicate channel %q", h.Channels[n].Name)
		}
	}

	var head bytes.Buffer
	if err := writeHeader(&head, &h); err != nil {
		return err
	}

	width, height := h.Width(), h.Height()
	lines := h.Compression.LinesPerBlock()
	le := binary.LittleEndian
	var chunks [][]byte
	for row := 0; row < height; row += lines {
		n := min(lines, height-row)
		raw := make([]byte, 0, n*h.lineBytes())
		for y := row; y < row+n; y++ {
			for k, c := range h.Channels {
				raw = appendSamples(raw, planes[k][y*width:(y+1)*width], c.Type)
			}
		}
		data := raw
		if h.Compression != CompressionNone {
			z, err := zipCompress(raw)
			if err != nil {
				return err
			}
			if len(z) < len(raw) {
				data = z
			}
		}
		chunk := le.AppendUint32(nil, uint32(int32(row)+h.DataWindow.YMin))
		chunk = le.AppendUint32(chunk, uint32(len(data)))
		chunks = append(chunks, append(chunk, data...))
	}

	offset := uint64(head.Len() + 8*len(chunks))
	table := make([]byte, 0, 8*len(chunks))
	for _, c := range chunks {
		table = le.AppendUint64(table, offset)
		offset += uint64(len(c))
	}

	if _, err := w.Write(head.Bytes()); err != nil {
		return err
	}
	if _, err := w.Write(table); err != nil {
		return err
	}
	for _, c := range chunks {
		if _, err := w.Write(c); err != nil {
			return err
		}
	}
	return nil
}

func (img *Image) validate() error {
	width, height := img.Width(), img.Height()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("exrfile: empty data window %+v", img.DataWindow)
	}
	if len(img.Planes) != len(img.Channels) {
		return fmt.Errorf("exrfile: %d planes for %d channels", len(img.Planes), len(img.Channels))
	}
	for k, c := range img.Channels {
		if c.Name == "" || len(c.Name) > longNameLen {
			return fmt.Errorf("exrfile: bad channel name %q", c.Name)
		}
		if c.XSampling != 1 || c.YSampling != 1 {
			return fmt.Errorf("%w: channel %s is subsampled", ErrUnsupported, c.Name)
		}
		if c.Type < Uint || c.Type > Float {
			return fmt.Errorf("exrfile: channel %s has pixel type %d", c.Name, int32(c.Type))
		}
		if len(img.Planes[k]) != width*height {
			return fmt.Errorf("exrfile: channel %s has %d samples, want %d",
				c.Name, len(img.Planes[k]), width*height)
		}
	}
	return nil
}

func appendSamples(dst []byte, src []float32, t PixelType) []byte {
	le := binary.LittleEndian
	switch t {
	case Half:
		for _, v := range src {
			dst = le.AppendUint16(dst, float16.Fromfloat32(v).Bits())
		}
	case Float:
		for _, v := range src {
			dst = le.AppendUint32(dst, math.Float32bits(v))
		}
	case Uint:
		for _, v := range src {
			dst = le.AppendUint32(dst, uint32(max(0, v)))
		}
	}
	return dst
}
