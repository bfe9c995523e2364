package viscor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType identifies the framing of a file on disk.
type CompressionType uint8

const (
	CompressionNone CompressionType = iota
	CompressionZSTD
	CompressionLZ4
)

// compressionOf reports the compression of path by extension, and the
// path with the compression suffix removed.
func compressionOf(path string) (CompressionType, string) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".zst", ".zstd":
		return CompressionZSTD, strings.TrimSuffix(path, filepath.Ext(path))
	case ".lz4":
		return CompressionLZ4, strings.TrimSuffix(path, filepath.Ext(path))
	}
	return CompressionNone, path
}

type stackedReadCloser struct {
	io.Reader
	closers []func() error
}

func (s *stackedReadCloser) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openMaybeCompressed opens path, transparently decoding zstd and lz4
// frames chosen by extension.
func openMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	rc := &stackedReadCloser{Reader: f, closers: []func() error{f.Close}}

	kind, _ := compressionOf(path)
	switch kind {
	case CompressionZSTD:
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to open zstd stream %s: %w", path, err)
		}
		rc.Reader = dec
		rc.closers = append(rc.closers, func() error { dec.Close(); return nil })
	case CompressionLZ4:
		rc.Reader = lz4.NewReader(f)
	}
	return rc, nil
}

// createMaybeCompressed creates path, encoding with zstd or lz4 when the
// extension asks for it.
func createMaybeCompressed(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	kind, _ := compressionOf(path)
	switch kind {
	case CompressionZSTD:
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			f.Close()
			return nil, err
		}
		return &stackedWriteCloser{Writer: enc, closers: []func() error{f.Close, enc.Close}}, nil
	case CompressionLZ4:
		zw := lz4.NewWriter(f)
		return &stackedWriteCloser{Writer: zw, closers: []func() error{f.Close, zw.Close}}, nil
	}
	return f, nil
}

type stackedWriteCloser struct {
	io.Writer
	closers []func() error
}

func (s *stackedWriteCloser) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
