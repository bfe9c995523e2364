package viscor

import "fmt"

// DefaultChannels is the nominal descriptor depth produced by the
// feature-matching model. Other depths load with a warning.
const DefaultChannels = 256

// DescriptorField is an immutable grid of per-pixel feature vectors.
// Vectors are stored pixel-major: the C floats of pixel (i, j) occupy
// data[(i*W+j)*C : (i*W+j+1)*C].
type DescriptorField struct {
	h, w, c int
	data    []float32
}

// NewDescriptorField wraps a pixel-major (H*W, C) buffer. The field takes
// ownership of data; callers must not modify it afterwards.
func NewDescriptorField(h, w, c int, data []float32) (*DescriptorField, error) {
	if c < 1 {
		return nil, ErrNoChannels
	}
	if h < 1 || w < 1 {
		return nil, fmt.Errorf("%w: field of %dx%d pixels", ErrShape, h, w)
	}
	if len(data) != h*w*c {
		return nil, fmt.Errorf("%w: %dx%dx%d field needs %d values, got %d",
			ErrShape, h, w, c, h*w*c, len(data))
	}
	return &DescriptorField{h: h, w: w, c: c, data: data}, nil
}

// FieldFromCHW builds a field from a channel-major (C, H, W) buffer,
// transposing it into pixel-major order.
func FieldFromCHW(c, h, w int, chw []float32) (*DescriptorField, error) {
	if c < 1 {
		return nil, ErrNoChannels
	}
	if len(chw) != c*h*w {
		return nil, fmt.Errorf("%w: %dx%dx%d tensor needs %d values, got %d",
			ErrShape, c, h, w, c*h*w, len(chw))
	}
	plane := h * w
	hwc := make([]float32, len(chw))
	for k := 0; k < c; k++ {
		src := chw[k*plane : (k+1)*plane]
		for p, v := range src {
			hwc[p*c+k] = v
		}
	}
	return NewDescriptorField(h, w, c, hwc)
}

// H returns the field height in pixels.
func (f *DescriptorField) H() int { return f.h }

// W returns the field width in pixels.
func (f *DescriptorField) W() int { return f.w }

// C returns the descriptor length.
func (f *DescriptorField) C() int { return f.c }

// At returns the feature vector of pixel (i, j). The returned slice
// aliases the field and must be treated as read-only.
func (f *DescriptorField) At(i, j int) ([]float32, error) {
	if i < 0 || i >= f.h || j < 0 || j >= f.w {
		return nil, &IndexError{I: i, J: j, H: f.h, W: f.w}
	}
	off := (i*f.w + j) * f.c
	return f.data[off : off+f.c : off+f.c], nil
}

// Pixels returns the whole pixel-major buffer. Read-only.
func (f *DescriptorField) Pixels() []float32 { return f.data }
