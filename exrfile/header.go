// Package exrfile reads and writes single-part scanline OpenEXR images
// with any number of named channels. Feature images carry their
// descriptors as channels such as "desc.000" next to the usual "R", "G",
// "B" and "A", so every channel in the header is decoded, not just color.
package exrfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	// ErrFormat is returned for input that is not an OpenEXR image.
	ErrFormat = errors.New("exrfile: not a valid OpenEXR image")

	// ErrUnsupported is returned for valid images using features this
	// package does not implement: tiles, deep data, multiple parts,
	// subsampled channels and the lossy or wavelet compressions.
	ErrUnsupported = errors.New("exrfile: unsupported OpenEXR feature")
)

var magic = [4]byte{0x76, 0x2f, 0x31, 0x01}

const (
	versionNumber = 2

	flagTiled     = 0x200
	flagLongNames = 0x400
	flagDeep      = 0x800
	flagMultipart = 0x1000

	shortNameLen = 31
	longNameLen  = 255

	// maxAttributeSize bounds a single header attribute.
	maxAttributeSize = 1 << 24
	// maxPixels bounds the data window of a decoded image.
	maxPixels = 1 << 28
)

// PixelType is the sample type of a channel.
type PixelType int32

const (
	Uint  PixelType = 0
	Half  PixelType = 1
	Float PixelType = 2
)

func (t PixelType) String() string {
	switch t {
	case Uint:
		return "uint32"
	case Half:
		return "float16"
	case Float:
		return "float32"
	}
	return fmt.Sprintf("PixelType(%d)", int32(t))
}

// Size returns the bytes per sample.
func (t PixelType) Size() int {
	if t == Half {
		return 2
	}
	return 4
}

// Compression is the block compression of the pixel data.
type Compression uint8

const (
	CompressionNone  Compression = 0
	CompressionRLE   Compression = 1
	CompressionZIPS  Compression = 2
	CompressionZIP   Compression = 3
	CompressionPIZ   Compression = 4
	CompressionPXR24 Compression = 5
	CompressionB44   Compression = 6
	CompressionB44A  Compression = 7
)

var compressionNames = map[Compression]string{
	CompressionNone:  "none",
	CompressionRLE:   "rle",
	CompressionZIPS:  "zips",
	CompressionZIP:   "zip",
	CompressionPIZ:   "piz",
	CompressionPXR24: "pxr24",
	CompressionB44:   "b44",
	CompressionB44A:  "b44a",
}

func (c Compression) String() string {
	if s, ok := compressionNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Compression(%d)", uint8(c))
}

// LinesPerBlock returns the number of scanlines stored in one chunk.
func (c Compression) LinesPerBlock() int {
	switch c {
	case CompressionZIP, CompressionPXR24:
		return 16
	case CompressionPIZ, CompressionB44, CompressionB44A:
		return 32
	}
	return 1
}

func (c Compression) supported() bool {
	switch c {
	case CompressionNone, CompressionRLE, CompressionZIPS, CompressionZIP:
		return true
	}
	return false
}

// LineOrder is the order in which scanline chunks are stored.
type LineOrder uint8

const (
	IncreasingY LineOrder = 0
	DecreasingY LineOrder = 1
	RandomY     LineOrder = 2
)

// Box is an inclusive integer pixel rectangle.
type Box struct {
	XMin, YMin, XMax, YMax int32
}

// Width returns the number of columns in b.
func (b Box) Width() int { return int(b.XMax) - int(b.XMin) + 1 }

// Height returns the number of rows in b.
func (b Box) Height() int { return int(b.YMax) - int(b.YMin) + 1 }

// Channel describes one named channel of an image.
type Channel struct {
	Name      string
	Type      PixelType
	Linear    bool
	XSampling int32
	YSampling int32
}

// Header holds the attributes needed to locate and decode pixel data.
// Other attributes are skipped when reading.
type Header struct {
	Channels      []Channel
	Compression   Compression
	DataWindow    Box
	DisplayWindow Box
	LineOrder     LineOrder
}

// Names returns the channel names in header order.
func (h *Header) Names() []string {
	names := make([]string, len(h.Channels))
	for i, c := range h.Channels {
		names[i] = c.Name
	}
	return names
}

// Width returns the width of the data window.
func (h *Header) Width() int { return h.DataWindow.Width() }

// Height returns the height of the data window.
func (h *Header) Height() int { return h.DataWindow.Height() }

// lineBytes returns the size of one scanline across all channels.
func (h *Header) lineBytes() int {
	n := 0
	for _, c := range h.Channels {
		n += c.Type.Size()
	}
	return n * h.Width()
}

func (h *Header) chunkCount() int {
	lines := h.Compression.LinesPerBlock()
	return (h.Height() + lines - 1) / lines
}

// ReadHeader reads the magic number, version and header of an image,
// leaving r positioned at the offset table.
func ReadHeader(r io.Reader) (*Header, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return readHeader(br)
}

func readHeader(br *bufio.Reader) (*Header, error) {
	var m [4]byte
	if _, err := io.ReadFull(br, m[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if m != magic {
		return nil, fmt.Errorf("%w: bad magic number %x", ErrFormat, m)
	}
	var version uint32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: reading version: %w", ErrFormat, err)
	}
	if version&0xff != versionNumber {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupported, version&0xff)
	}
	switch {
	case version&flagTiled != 0:
		return nil, fmt.Errorf("%w: tiled image", ErrUnsupported)
	case version&flagDeep != 0:
		return nil, fmt.Errorf("%w: deep data", ErrUnsupported)
	case version&flagMultipart != 0:
		return nil, fmt.Errorf("%w: multi-part file", ErrUnsupported)
	}

	var (
		h                                  Header
		haveChannels, haveWindow, haveComp bool
	)
	for {
		name, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("%w: reading attribute name: %w", ErrFormat, err)
		}
		if name == "" {
			break
		}
		typ, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("%w: reading type of %s: %w", ErrFormat, name, err)
		}
		var size int32
		if err := binary.Read(br, binary.LittleEndian, &size); err != nil {
			return nil, fmt.Errorf("%w: reading size of %s: %w", ErrFormat, name, err)
		}
		if size < 0 || size > maxAttributeSize {
			return nil, fmt.Errorf("%w: attribute %s has size %d", ErrFormat, name, size)
		}
		value := make([]byte, size)
		if _, err := io.ReadFull(br, value); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %w", ErrFormat, name, err)
		}

		switch name {
		case "channels":
			if err := expectType(name, typ, "chlist"); err != nil {
				return nil, err
			}
			if h.Channels, err = parseChannels(value); err != nil {
				return nil, err
			}
			haveChannels = true
		case "compression":
			if err := expectType(name, typ, "compression"); err != nil {
				return nil, err
			}
			if len(value) != 1 {
				return nil, fmt.Errorf("%w: compression attribute of %d bytes", ErrFormat, len(value))
			}
			h.Compression = Compression(value[0])
			haveComp = true
		case "dataWindow", "displayWindow":
			if err := expectType(name, typ, "box2i"); err != nil {
				return nil, err
			}
			var b Box
			if err := binary.Read(bytes.NewReader(value), binary.LittleEndian, &b); err != nil {
				return nil, fmt.Errorf("%w: reading %s: %w", ErrFormat, name, err)
			}
			if name == "dataWindow" {
				h.DataWindow = b
				haveWindow = true
			} else {
				h.DisplayWindow = b
			}
		case "lineOrder":
			if err := expectType(name, typ, "lineOrder"); err != nil {
				return nil, err
			}
			if len(value) != 1 {
				return nil, fmt.Errorf("%w: lineOrder attribute of %d bytes", ErrFormat, len(value))
			}
			h.LineOrder = LineOrder(value[0])
		}
	}

	switch {
	case !haveChannels:
		return nil, fmt.Errorf("%w: missing channels attribute", ErrFormat)
	case !haveComp:
		return nil, fmt.Errorf("%w: missing compression attribute", ErrFormat)
	case !haveWindow:
		return nil, fmt.Errorf("%w: missing dataWindow attribute", ErrFormat)
	}
	if h.Width() <= 0 || h.Height() <= 0 {
		return nil, fmt.Errorf("%w: empty data window %+v", ErrFormat, h.DataWindow)
	}
	return &h, nil
}

func expectType(name, got, want string) error {
	if got != want {
		return fmt.Errorf("%w: attribute %s has type %s, want %s", ErrFormat, name, got, want)
	}
	return nil
}

func readString(br *bufio.Reader) (string, error) {
	s, err := br.ReadString(0)
	if err != nil {
		return "", err
	}
	s = s[:len(s)-1]
	if len(s) > longNameLen {
		return "", fmt.Errorf("name of %d bytes", len(s))
	}
	return s, nil
}

func parseChannels(value []byte) ([]Channel, error) {
	br := bufio.NewReader(bytes.NewReader(value))
	var channels []Channel
	for {
		name, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("%w: reading channel name: %w", ErrFormat, err)
		}
		if name == "" {
			return channels, nil
		}
		var rec struct {
			Type      int32
			Linear    uint8
			Reserved  [3]uint8
			XSampling int32
			YSampling int32
		}
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("%w: reading channel %s: %w", ErrFormat, name, err)
		}
		c := Channel{
			Name:      name,
			Type:      PixelType(rec.Type),
			Linear:    rec.Linear != 0,
			XSampling: rec.XSampling,
			YSampling: rec.YSampling,
		}
		if c.Type < Uint || c.Type > Float {
			return nil, fmt.Errorf("%w: channel %s has pixel type %d", ErrFormat, name, rec.Type)
		}
		channels = append(channels, c)
	}
}

// writeHeader writes magic, version and header attributes of h.
func writeHeader(w io.Writer, h *Header) error {
	version := uint32(versionNumber)
	for _, c := range h.Channels {
		if len(c.Name) > shortNameLen {
			version |= flagLongNames
		}
	}

	var buf bytes.Buffer
	buf.Write(magic[:])
	le := binary.LittleEndian
	buf.Write(le.AppendUint32(nil, version))

	attr := func(name, typ string, value []byte) {
		buf.WriteString(name)
		buf.WriteByte(0)
		buf.WriteString(typ)
		buf.WriteByte(0)
		buf.Write(le.AppendUint32(nil, uint32(len(value))))
		buf.Write(value)
	}
	box := func(b Box) []byte {
		var v []byte
		for _, x := range []int32{b.XMin, b.YMin, b.XMax, b.YMax} {
			v = le.AppendUint32(v, uint32(x))
		}
		return v
	}

	var chlist []byte
	for _, c := range h.Channels {
		chlist = append(chlist, c.Name...)
		chlist = append(chlist, 0)
		chlist = le.AppendUint32(chlist, uint32(c.Type))
		linear := byte(0)
		if c.Linear {
			linear = 1
		}
		chlist = append(chlist, linear, 0, 0, 0)
		chlist = le.AppendUint32(chlist, uint32(c.XSampling))
		chlist = le.AppendUint32(chlist, uint32(c.YSampling))
	}
	chlist = append(chlist, 0)

	one := le.AppendUint32(nil, math.Float32bits(1))
	attr("channels", "chlist", chlist)
	attr("compression", "compression", []byte{byte(h.Compression)})
	attr("dataWindow", "box2i", box(h.DataWindow))
	attr("displayWindow", "box2i", box(h.DisplayWindow))
	attr("lineOrder", "lineOrder", []byte{byte(h.LineOrder)})
	attr("pixelAspectRatio", "float", one)
	attr("screenWindowCenter", "v2f", make([]byte, 8))
	attr("screenWindowWidth", "float", one)
	buf.WriteByte(0)

	_, err := w.Write(buf.Bytes())
	return err
}
