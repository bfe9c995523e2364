package viscor

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tinylib/msgp/msgp"
)

// MsgpackLoader reads descriptor tensors serialized with msgpack.
//
// Two layouts are accepted. The "seq" layout is a shape array [H, W, C]
// followed by a flat array of H*W*C floats in pixel-major order. The
// "dict" layout is a single map with "shape" (C, H, W, optionally with a
// leading batch axis of 1) and channel-major "data", flat or nested; an
// optional "channels" list names each channel, in which case only the
// descriptor channels are kept.
type MsgpackLoader struct {
	opts loadOptions
}

// maxPrealloc bounds the up-front allocation for a declared data length;
// longer tensors grow as values are read.
const maxPrealloc = 1 << 20

// NewMsgpackLoader creates a MsgpackLoader.
func NewMsgpackLoader(opts ...LoadOption) *MsgpackLoader {
	return &MsgpackLoader{opts: newLoadOptions(opts)}
}

// LoadField implements FieldLoader.
func (l *MsgpackLoader) LoadField(path string) (*DescriptorField, error) {
	rc, err := openMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	f, err := l.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to load descriptors from %s: %w", path, err)
	}
	return f, nil
}

// Decode reads one descriptor tensor from r.
func (l *MsgpackLoader) Decode(r io.Reader) (*DescriptorField, error) {
	mr := msgp.NewReader(r)
	t, err := mr.NextType()
	if err != nil {
		return nil, err
	}
	switch t {
	case msgp.ArrayType:
		return l.decodeSeq(mr)
	case msgp.MapType:
		return l.decodeDict(mr)
	}
	return nil, fmt.Errorf("%w: top-level msgpack %s", ErrFormat, t)
}

func (l *MsgpackLoader) decodeSeq(mr *msgp.Reader) (*DescriptorField, error) {
	shape, err := readInts(mr)
	if err != nil {
		return nil, fmt.Errorf("reading shape: %w", err)
	}
	shape, err = resolveRank3(shape)
	if err != nil {
		return nil, err
	}
	h, w, c := shape[0], shape[1], shape[2]
	if err := l.opts.checkChannels(h, w, c); err != nil {
		return nil, err
	}

	n, err := mr.ReadArrayHeader()
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}
	if int(n) != h*w*c {
		return nil, fmt.Errorf("%w: shape %v needs %d values, blob has %d",
			ErrShape, shape, h*w*c, n)
	}
	data := make([]float32, 0, min(int(n), maxPrealloc))
	for i := uint32(0); i < n; i++ {
		if data, err = readFloats(mr, data); err != nil {
			return nil, fmt.Errorf("reading data: %w", err)
		}
	}
	return NewDescriptorField(h, w, c, data)
}

func (l *MsgpackLoader) decodeDict(mr *msgp.Reader) (*DescriptorField, error) {
	n, err := mr.ReadMapHeader()
	if err != nil {
		return nil, err
	}
	var (
		shape    []int
		data     []float32
		names    []string
		haveData bool
	)
	for i := uint32(0); i < n; i++ {
		key, err := mr.ReadString()
		if err != nil {
			return nil, err
		}
		switch key {
		case "shape":
			shape, err = readInts(mr)
		case "data":
			data, err = readFloats(mr, data[:0])
			haveData = true
		case "channels":
			names, err = readStrings(mr)
		default:
			err = mr.Skip()
		}
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", key, err)
		}
	}
	if shape == nil || !haveData {
		return nil, fmt.Errorf("%w: dict blob needs \"shape\" and \"data\"", ErrFormat)
	}
	shape, err = resolveRank3(shape)
	if err != nil {
		return nil, err
	}
	c, h, w := shape[0], shape[1], shape[2]
	if len(data) != c*h*w {
		return nil, fmt.Errorf("%w: shape %v needs %d values, blob has %d",
			ErrShape, shape, c*h*w, len(data))
	}

	if names != nil {
		if len(names) != c {
			return nil, fmt.Errorf("%w: %d channel names for %d channels", ErrShape, len(names), c)
		}
		plane := h * w
		stack := &ChannelStack{H: h, W: w, Names: names, Planes: make([][]float32, c)}
		for k := range stack.Planes {
			stack.Planes[k] = data[k*plane : (k+1)*plane]
		}
		return gatherChannels(stack, l.opts)
	}

	if err := l.opts.checkChannels(h, w, c); err != nil {
		return nil, err
	}
	return FieldFromCHW(c, h, w, data)
}

// resolveRank3 drops a leading batch axis of size 1 and requires exactly
// three axes to remain.
func resolveRank3(shape []int) ([]int, error) {
	if len(shape) == 4 && shape[0] == 1 {
		shape = shape[1:]
	}
	if len(shape) != 3 {
		return nil, &ShapeError{Shape: shape, Want: 3}
	}
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative axis in %v", ErrShape, shape)
		}
	}
	return shape, nil
}

func readInts(mr *msgp.Reader) ([]int, error) {
	n, err := mr.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	out := make([]int, n)
	for i := range out {
		v, err := readNumber(mr)
		if err != nil {
			return nil, err
		}
		out[i] = int(v)
	}
	return out, nil
}

func readStrings(mr *msgp.Reader) ([]string, error) {
	n, err := mr.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		if out[i], err = mr.ReadString(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// readFloats appends the next value to dst, flattening nested arrays.
func readFloats(mr *msgp.Reader, dst []float32) ([]float32, error) {
	t, err := mr.NextType()
	if err != nil {
		return dst, err
	}
	if t == msgp.ArrayType {
		n, err := mr.ReadArrayHeader()
		if err != nil {
			return dst, err
		}
		for i := uint32(0); i < n; i++ {
			if dst, err = readFloats(mr, dst); err != nil {
				return dst, err
			}
		}
		return dst, nil
	}
	v, err := readNumber(mr)
	if err != nil {
		return dst, err
	}
	return append(dst, float32(v)), nil
}

func readNumber(mr *msgp.Reader) (float64, error) {
	t, err := mr.NextType()
	if err != nil {
		return 0, err
	}
	switch t {
	case msgp.Float32Type:
		v, err := mr.ReadFloat32()
		return float64(v), err
	case msgp.Float64Type:
		return mr.ReadFloat64()
	case msgp.IntType:
		v, err := mr.ReadInt64()
		return float64(v), err
	case msgp.UintType:
		v, err := mr.ReadUint64()
		return float64(v), err
	}
	return 0, fmt.Errorf("%w: expected a number, got msgpack %s", ErrDType, t)
}

// EncodeSeq writes f in the seq layout: a shape array [H, W, C] followed
// by the pixel-major data as float32.
func EncodeSeq(w io.Writer, f *DescriptorField) error {
	mw := msgp.NewWriter(w)
	if err := mw.WriteArrayHeader(3); err != nil {
		return err
	}
	for _, d := range []int{f.H(), f.W(), f.C()} {
		if err := mw.WriteInt(d); err != nil {
			return err
		}
	}
	data := f.Pixels()
	if err := mw.WriteArrayHeader(uint32(len(data))); err != nil {
		return err
	}
	for _, v := range data {
		if err := mw.WriteFloat32(v); err != nil {
			return err
		}
	}
	return mw.Flush()
}

// SaveField writes f, compressing by extension. Paths ending in .exr
// (before any compression suffix) get an OpenEXR image, all others the
// seq layout.
func SaveField(path string, f *DescriptorField) error {
	encode := EncodeSeq
	if _, inner := compressionOf(path); strings.EqualFold(filepath.Ext(inner), ".exr") {
		encode = EncodeExr
	}
	wc, err := createMaybeCompressed(path)
	if err != nil {
		return err
	}
	if err := encode(wc, f); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}
