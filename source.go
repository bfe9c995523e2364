package viscor

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FieldLoader produces a descriptor field from a path.
type FieldLoader interface {
	LoadField(path string) (*DescriptorField, error)
}

// LoadOption is a functional option for descriptor loading.
type LoadOption func(*loadOptions)

type loadOptions struct {
	expectedChannels int
	logger           *Logger
}

// WithExpectedChannels sets the nominal channel count. Fields of another
// depth still load, with a warning.
func WithExpectedChannels(c int) LoadOption {
	return func(o *loadOptions) {
		o.expectedChannels = c
	}
}

// WithLoadLogger sets the logger used for data-quality warnings.
func WithLoadLogger(l *Logger) LoadOption {
	return func(o *loadOptions) {
		o.logger = l
	}
}

func newLoadOptions(opts []LoadOption) loadOptions {
	o := loadOptions{
		expectedChannels: DefaultChannels,
		logger:           NewLogger(nil),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// checkChannels enforces the channel contract: zero channels is fatal, a
// depth other than the expected one is only reported.
func (o loadOptions) checkChannels(h, w, c int) error {
	if c != o.expectedChannels {
		o.logger.LogChannelMismatch(o.expectedChannels, c, h, w)
	}
	if c < 1 {
		return ErrNoChannels
	}
	return nil
}

// LoadField loads a descriptor field, choosing the loader by extension.
// Compressed files (.zst, .lz4) are dispatched on their inner extension.
func LoadField(path string, opts ...LoadOption) (*DescriptorField, error) {
	loader, err := loaderFor(path, opts)
	if err != nil {
		return nil, err
	}
	return loader.LoadField(path)
}

func loaderFor(path string, opts []LoadOption) (FieldLoader, error) {
	_, inner := compressionOf(path)
	switch strings.ToLower(filepath.Ext(inner)) {
	case ".msgpack", ".mp", ".msg":
		return NewMsgpackLoader(opts...), nil
	case ".exr":
		return NewExrLoader(opts...), nil
	}
	return nil, fmt.Errorf("%w: no descriptor loader for %s", ErrFormat, path)
}
