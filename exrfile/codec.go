package exrfile

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// ZIP and RLE chunks share a byte transform: the even bytes are moved in
// front of the odd bytes, then each byte is replaced by its difference to
// its predecessor biased by 128.

func predictAndSplit(raw []byte) []byte {
	n := len(raw)
	t := make([]byte, n)
	half := (n + 1) / 2
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			t[i/2] = raw[i]
		} else {
			t[half+i/2] = raw[i]
		}
	}
	if n == 0 {
		return t
	}
	p := int(t[0])
	for i := 1; i < n; i++ {
		d := int(t[i]) - p + 128 + 256
		p = int(t[i])
		t[i] = byte(d)
	}
	return t
}

func unpredictAndJoin(t []byte) []byte {
	n := len(t)
	for i := 1; i < n; i++ {
		t[i] = byte(int(t[i-1]) + int(t[i]) - 128)
	}
	raw := make([]byte, n)
	half := (n + 1) / 2
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			raw[i] = t[i/2]
		} else {
			raw[i] = t[half+i/2]
		}
	}
	return raw
}

func zipCompress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(predictAndSplit(raw)); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func zipDecompress(src []byte, rawSize int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: zip chunk: %w", ErrFormat, err)
	}
	defer zr.Close()
	t := make([]byte, rawSize)
	if _, err := io.ReadFull(zr, t); err != nil {
		return nil, fmt.Errorf("%w: zip chunk: %w", ErrFormat, err)
	}
	if n, _ := zr.Read(make([]byte, 1)); n != 0 {
		return nil, fmt.Errorf("%w: zip chunk longer than %d bytes", ErrFormat, rawSize)
	}
	return unpredictAndJoin(t), nil
}

// rleDecompress expands runs: a negative count byte -n is followed by n
// literal bytes, a count n >= 0 by one byte repeated n+1 times.
func rleDecompress(src []byte, rawSize int) ([]byte, error) {
	t := make([]byte, 0, rawSize)
	for i := 0; i < len(src); {
		count := int(int8(src[i]))
		i++
		if count < 0 {
			n := -count
			if i+n > len(src) || len(t)+n > rawSize {
				return nil, fmt.Errorf("%w: truncated rle chunk", ErrFormat)
			}
			t = append(t, src[i:i+n]...)
			i += n
			continue
		}
		if i >= len(src) || len(t)+count+1 > rawSize {
			return nil, fmt.Errorf("%w: truncated rle chunk", ErrFormat)
		}
		for k := 0; k <= count; k++ {
			t = append(t, src[i])
		}
		i++
	}
	if len(t) != rawSize {
		return nil, fmt.Errorf("%w: rle chunk expands to %d bytes, want %d", ErrFormat, len(t), rawSize)
	}
	return unpredictAndJoin(t), nil
}
