package viscor

import (
	"fmt"
	"io"
	"strconv"

	"github.com/wbrown/viscor/exrfile"
)

// ExrChannels is a ChannelSource over the channels of an OpenEXR image.
// Only descriptor channels are decoded; the others are listed but have
// no samples.
type ExrChannels struct {
	img *exrfile.Image
}

// ReadExrChannels decodes the OpenEXR image at path, which may be zstd
// or lz4 framed.
func ReadExrChannels(path string) (*ExrChannels, error) {
	rc, err := openMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	src, err := DecodeExrChannels(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return src, nil
}

// DecodeExrChannels decodes an OpenEXR image from r.
func DecodeExrChannels(r io.Reader) (*ExrChannels, error) {
	img, err := exrfile.DecodeChannels(r, IsDescriptorChannel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return &ExrChannels{img: img}, nil
}

// Size implements ChannelSource.
func (e *ExrChannels) Size() (int, int) { return e.img.Height(), e.img.Width() }

// ChannelNames implements ChannelSource.
func (e *ExrChannels) ChannelNames() []string { return e.img.Names() }

// ReadChannel implements ChannelSource.
func (e *ExrChannels) ReadChannel(idx int, dst []float32) error {
	if idx < 0 || idx >= len(e.img.Planes) {
		return fmt.Errorf("%w: channel %d of %d", ErrOutOfRange, idx, len(e.img.Planes))
	}
	plane := e.img.Planes[idx]
	if plane == nil {
		return fmt.Errorf("channel %s was not decoded", e.img.Channels[idx].Name)
	}
	if len(plane) != len(dst) {
		return fmt.Errorf("%w: channel %d has %d values, want %d", ErrShape, idx, len(plane), len(dst))
	}
	copy(dst, plane)
	return nil
}

// ExrLoader reads descriptor fields stored as the descriptor channels of
// an OpenEXR feature image.
type ExrLoader struct {
	opts loadOptions
}

// NewExrLoader creates an ExrLoader.
func NewExrLoader(opts ...LoadOption) *ExrLoader {
	return &ExrLoader{opts: newLoadOptions(opts)}
}

// LoadField implements FieldLoader.
func (l *ExrLoader) LoadField(path string) (*DescriptorField, error) {
	src, err := ReadExrChannels(path)
	if err != nil {
		return nil, err
	}
	f, err := gatherChannels(src, l.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load descriptors from %s: %w", path, err)
	}
	return f, nil
}

// EncodeExr writes f as a ZIP-compressed OpenEXR image with one float
// channel per descriptor component, named desc.000, desc.001 and so on.
// Indices are zero padded so that name order is component order.
func EncodeExr(w io.Writer, f *DescriptorField) error {
	h, wd, c := f.H(), f.W(), f.C()
	img := exrfile.NewImage(wd, h)
	data := f.Pixels()
	digits := max(3, len(strconv.Itoa(c-1)))
	for k := 0; k < c; k++ {
		plane := make([]float32, h*wd)
		for p := range plane {
			plane[p] = data[p*c+k]
		}
		img.AddChannel(fmt.Sprintf("desc.%0*d", digits, k), exrfile.Float, plane)
	}
	return exrfile.Encode(w, img)
}
