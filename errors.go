package viscor

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned when a pixel index falls outside a field.
	ErrOutOfRange = errors.New("index out of range")

	// ErrNoChannels is returned when a descriptor source has no channels.
	ErrNoChannels = errors.New("input has 0 channels")

	// ErrRank is returned when a descriptor source does not resolve to
	// exactly height x width x channels.
	ErrRank = errors.New("wrong descriptor rank")

	// ErrShape is returned when dimensions and buffer sizes disagree.
	ErrShape = errors.New("shape mismatch")

	// ErrDType is returned for element types other than float32.
	ErrDType = errors.New("unsupported dtype")

	// ErrFormat is returned when a blob does not match a known layout.
	ErrFormat = errors.New("unrecognized format")
)

// IndexError reports an out-of-range access into an h x w grid.
type IndexError struct {
	I, J int
	H, W int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index (%d, %d) out of range for %dx%d field", e.I, e.J, e.H, e.W)
}

func (e *IndexError) Unwrap() error { return ErrOutOfRange }

// ShapeError reports a tensor whose rank cannot be resolved to
// height x width x channels. Unwraps to ErrRank.
type ShapeError struct {
	Shape []int
	Want  int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("expected a %d-axis tensor, got shape %v", e.Want, e.Shape)
}

func (e *ShapeError) Unwrap() error { return ErrRank }
