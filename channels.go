package viscor

import (
	"fmt"
	"strings"
)

// ChannelSource is a decoded multichannel image whose channels carry
// names. Only channels tagged as descriptor channels are gathered.
type ChannelSource interface {
	Size() (h, w int)
	ChannelNames() []string
	// ReadChannel writes the h*w row-major plane of channel idx into dst.
	ReadChannel(idx int, dst []float32) error
}

// IsDescriptorChannel reports whether a channel name is tagged as a
// descriptor channel. Descriptor channels are namespaced ("desc.017"),
// plain color channels ("R", "G", "B", "A") are not.
func IsDescriptorChannel(name string) bool {
	return strings.Contains(name, ".")
}

// FieldFromChannels gathers the descriptor channels of src, in ascending
// channel-index order, into a field.
func FieldFromChannels(src ChannelSource, opts ...LoadOption) (*DescriptorField, error) {
	return gatherChannels(src, newLoadOptions(opts))
}

func gatherChannels(src ChannelSource, o loadOptions) (*DescriptorField, error) {
	h, w := src.Size()

	var idx []int
	for k, name := range src.ChannelNames() {
		if IsDescriptorChannel(name) {
			idx = append(idx, k)
		}
	}
	if err := o.checkChannels(h, w, len(idx)); err != nil {
		return nil, err
	}

	plane := h * w
	chw := make([]float32, len(idx)*plane)
	for n, k := range idx {
		if err := src.ReadChannel(k, chw[n*plane:(n+1)*plane]); err != nil {
			return nil, fmt.Errorf("failed to read channel %d: %w", k, err)
		}
	}
	return FieldFromCHW(len(idx), h, w, chw)
}

// ChannelStack is an in-memory ChannelSource of equally sized planes.
type ChannelStack struct {
	H, W   int
	Names  []string
	Planes [][]float32
}

// Size implements ChannelSource.
func (s *ChannelStack) Size() (int, int) { return s.H, s.W }

// ChannelNames implements ChannelSource.
func (s *ChannelStack) ChannelNames() []string { return s.Names }

// ReadChannel implements ChannelSource.
func (s *ChannelStack) ReadChannel(idx int, dst []float32) error {
	if idx < 0 || idx >= len(s.Planes) {
		return fmt.Errorf("%w: channel %d of %d", ErrOutOfRange, idx, len(s.Planes))
	}
	if len(s.Planes[idx]) != len(dst) {
		return fmt.Errorf("%w: channel %d has %d values, want %d",
			ErrShape, idx, len(s.Planes[idx]), len(dst))
	}
	copy(dst, s.Planes[idx])
	return nil
}
