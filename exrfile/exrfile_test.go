package exrfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"reflect"
	"testing"

	"github.com/mokiat/goexr/exr"
)

func ramp(n int, scale float32) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(i) * scale
	}
	return v
}

func encode(t *testing.T, img *Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestEncodeDecode(t *testing.T) {
	// 40 rows span three 16-line ZIP chunks, the last one partial.
	const w, h = 7, 40
	for _, comp := range []Compression{CompressionNone, CompressionZIPS, CompressionZIP} {
		t.Run(comp.String(), func(t *testing.T) {
			img := NewImage(w, h)
			img.Compression = comp
			img.AddChannel("feat.001", Float, ramp(w*h, 0.5))
			img.AddChannel("R", Half, ramp(w*h, 0.25))
			img.AddChannel("feat.000", Float, ramp(w*h, -1))
			img.AddChannel("id", Uint, ramp(w*h, 1))

			got, err := Decode(bytes.NewReader(encode(t, img)))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			want := []string{"R", "feat.000", "feat.001", "id"}
			if !reflect.DeepEqual(got.Names(), want) {
				t.Errorf("Expected channels %v, got %v", want, got.Names())
			}
			if got.Width() != w || got.Height() != h {
				t.Errorf("Expected %dx%d, got %dx%d", w, h, got.Width(), got.Height())
			}
			if got.Compression != comp {
				t.Errorf("Expected %s compression, got %s", comp, got.Compression)
			}
			for _, name := range []string{"feat.000", "feat.001", "id"} {
				if !reflect.DeepEqual(got.Plane(name), img.Plane(name)) {
					t.Errorf("Channel %s did not survive the round trip", name)
				}
			}
			// Multiples of 0.25 up to 70 are exact in half precision.
			if !reflect.DeepEqual(got.Plane("R"), img.Plane("R")) {
				t.Error("Half channel did not survive the round trip")
			}
		})
	}
}

func TestDecodeChannelsSkipsUnwanted(t *testing.T) {
	img := NewImage(3, 2)
	img.AddChannel("B", Float, ramp(6, 1))
	img.AddChannel("desc.000", Float, ramp(6, 2))
	img.AddChannel("G", Half, ramp(6, 3))

	got, err := DecodeChannels(bytes.NewReader(encode(t, img)), func(name string) bool {
		return name == "desc.000"
	})
	if err != nil {
		t.Fatalf("DecodeChannels failed: %v", err)
	}
	if len(got.Channels) != 3 {
		t.Fatalf("Expected the header to keep all 3 channels, got %d", len(got.Channels))
	}
	if got.Plane("B") != nil || got.Plane("G") != nil {
		t.Error("Skipped channels should have no plane")
	}
	if !reflect.DeepEqual(got.Plane("desc.000"), ramp(6, 2)) {
		t.Errorf("Expected %v, got %v", ramp(6, 2), got.Plane("desc.000"))
	}
}

func TestDecodeOffsetDataWindow(t *testing.T) {
	img := NewImage(2, 3)
	img.DataWindow = Box{XMin: -1, YMin: 5, XMax: 0, YMax: 7}
	img.DisplayWindow = img.DataWindow
	img.AddChannel("d.0", Float, ramp(6, 1))

	got, err := Decode(bytes.NewReader(encode(t, img)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.DataWindow != img.DataWindow {
		t.Errorf("Expected data window %+v, got %+v", img.DataWindow, got.DataWindow)
	}
	if !reflect.DeepEqual(got.Plane("d.0"), ramp(6, 1)) {
		t.Errorf("Expected %v, got %v", ramp(6, 1), got.Plane("d.0"))
	}
}

func TestReadHeader(t *testing.T) {
	img := NewImage(5, 4)
	img.AddChannel("superglue.017", Float, ramp(20, 1))
	img.AddChannel("A", Half, ramp(20, 0))

	h, err := ReadHeader(bytes.NewReader(encode(t, img)))
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if !reflect.DeepEqual(h.Names(), []string{"A", "superglue.017"}) {
		t.Errorf("Unexpected channel names %v", h.Names())
	}
	if h.Channels[0].Type != Half || h.Channels[1].Type != Float {
		t.Errorf("Unexpected pixel types %s, %s", h.Channels[0].Type, h.Channels[1].Type)
	}
	if h.Width() != 5 || h.Height() != 4 {
		t.Errorf("Expected 5x4, got %dx%d", h.Width(), h.Height())
	}
}

func TestLongChannelNames(t *testing.T) {
	long := "descriptors.from.a.rather.verbose.extractor.000"
	img := NewImage(1, 1)
	img.AddChannel(long, Float, []float32{42})

	blob := encode(t, img)
	if v := binary.LittleEndian.Uint32(blob[4:]); v&flagLongNames == 0 {
		t.Errorf("Expected the long-name flag in version %#x", v)
	}
	got, err := Decode(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p := got.Plane(long); len(p) != 1 || p[0] != 42 {
		t.Errorf("Expected [42], got %v", p)
	}
}

// rleEncode emits a run for three or more equal bytes and literals
// otherwise.
func rleEncode(t []byte) []byte {
	var out []byte
	for i := 0; i < len(t); {
		run := 1
		for i+run < len(t) && t[i+run] == t[i] && run < 128 {
			run++
		}
		if run >= 3 {
			out = append(out, byte(run-1), t[i])
			i += run
			continue
		}
		j := i + 1
		for j < len(t) && j-i < 127 && !(j+2 < len(t) && t[j] == t[j+1] && t[j] == t[j+2]) {
			j++
		}
		out = append(out, byte(int8(-(j - i))))
		out = append(out, t[i:j]...)
		i = j
	}
	return out
}

func TestRLEDecompress(t *testing.T) {
	raw := []byte{1, 2, 3, 3, 3, 3, 200, 7}
	got, err := rleDecompress(rleEncode(predictAndSplit(raw)), len(raw))
	if err != nil {
		t.Fatalf("rleDecompress failed: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("Expected %v, got %v", raw, got)
	}

	// After prediction a constant row is one literal then 128s; count 2
	// repeats its byte three times.
	got, err = rleDecompress([]byte{0xff, 5, 2, 128}, 4)
	if err != nil {
		t.Fatalf("rleDecompress failed: %v", err)
	}
	if want := []byte{5, 5, 5, 5}; !bytes.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if _, err := rleDecompress([]byte{0xfe, 1}, 4); !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat for a truncated literal run, got %v", err)
	}
	if _, err := rleDecompress([]byte{5, 1}, 4); !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat for an overlong run, got %v", err)
	}
}

func TestDecodeRLEImage(t *testing.T) {
	want := []float32{0, 0, 0, 1, 2, 3}
	img := NewImage(3, 2)
	img.AddChannel("d.0", Float, want)
	img.Compression = CompressionNone
	blob := encode(t, img)

	// Rewrite the chunks as RLE; a row that does not shrink stays raw.
	h, err := ReadHeader(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	h.Compression = CompressionRLE
	var out bytes.Buffer
	if err := writeHeader(&out, h); err != nil {
		t.Fatalf("writeHeader failed: %v", err)
	}
	var chunks [][]byte
	for y := 0; y < 2; y++ {
		raw := appendSamples(nil, want[3*y:3*y+3], Float)
		data := raw
		if z := rleEncode(predictAndSplit(raw)); len(z) < len(raw) {
			data = z
		}
		c := binary.LittleEndian.AppendUint32(nil, uint32(y))
		c = binary.LittleEndian.AppendUint32(c, uint32(len(data)))
		chunks = append(chunks, append(c, data...))
	}
	if len(chunks[0]) >= 8+12 {
		t.Fatalf("Expected the zero row to compress, chunk is %d bytes", len(chunks[0]))
	}
	out.Write(make([]byte, 8*len(chunks)))
	for _, c := range chunks {
		out.Write(c)
	}

	got, err := Decode(&out)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(got.Plane("d.0"), want) {
		t.Errorf("Expected %v, got %v", want, got.Plane("d.0"))
	}
}

func TestZipRoundTrip(t *testing.T) {
	raw := make([]byte, 1001)
	for i := range raw {
		raw[i] = byte(i * 7)
	}
	z, err := zipCompress(raw)
	if err != nil {
		t.Fatalf("zipCompress failed: %v", err)
	}
	got, err := zipDecompress(z, len(raw))
	if err != nil {
		t.Fatalf("zipDecompress failed: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Error("zip round trip changed the data")
	}
	if _, err := zipDecompress(z, len(raw)+1); !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat for a short chunk, got %v", err)
	}
	if _, err := zipDecompress(z, len(raw)-1); !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat for a long chunk, got %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	img := NewImage(2, 2)
	img.AddChannel("d.0", Float, ramp(4, 1))
	good := encode(t, img)

	withVersion := func(flags uint32) []byte {
		b := bytes.Clone(good)
		binary.LittleEndian.PutUint32(b[4:], versionNumber|flags)
		return b
	}

	tests := []struct {
		name string
		blob []byte
		want error
	}{
		{"Empty", nil, ErrFormat},
		{"Magic", []byte("P6\n2 2\n255\n"), ErrFormat},
		{"Tiled", withVersion(flagTiled), ErrUnsupported},
		{"Deep", withVersion(flagDeep), ErrUnsupported},
		{"Multipart", withVersion(flagMultipart), ErrUnsupported},
		{"Truncated", good[:len(good)-3], ErrFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.blob))
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	piz := NewImage(1, 1)
	piz.AddChannel("d.0", Float, []float32{1})
	piz.Compression = CompressionPIZ
	if err := Encode(&bytes.Buffer{}, piz); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported writing piz, got %v", err)
	}
}

func TestEncodeErrors(t *testing.T) {
	dup := NewImage(1, 1)
	dup.AddChannel("d.0", Float, []float32{1})
	dup.AddChannel("d.0", Float, []float32{2})
	if err := Encode(&bytes.Buffer{}, dup); err == nil {
		t.Error("Expected an error for duplicate channels")
	}

	short := NewImage(2, 2)
	short.AddChannel("d.0", Float, []float32{1})
	if err := Encode(&bytes.Buffer{}, short); err == nil {
		t.Error("Expected an error for a short plane")
	}
}

// Images written here decode with an independent RGBA reader.
func TestEncodeReadableByGoexr(t *testing.T) {
	const w, h = 4, 20
	img := NewImage(w, h)
	red := make([]float32, w*h)
	for i := range red {
		red[i] = 1
	}
	img.AddChannel("R", Float, red)
	img.AddChannel("G", Half, make([]float32, w*h))
	img.AddChannel("B", Float, make([]float32, w*h))

	decoded, format, err := image.Decode(bytes.NewReader(encode(t, img)))
	if err != nil {
		t.Fatalf("image.Decode failed: %v", err)
	}
	if format != "exr" {
		t.Errorf("Expected format exr, got %s", format)
	}
	if decoded.Bounds() != image.Rect(0, 0, w, h) {
		t.Errorf("Unexpected bounds %v", decoded.Bounds())
	}
	c, ok := decoded.At(2, 17).(exr.RGBAColor)
	if !ok {
		t.Fatalf("Expected exr.RGBAColor, got %T", decoded.At(2, 17))
	}
	if c.R != 1 || c.G != 0 || c.B != 0 || c.A != 1 {
		t.Errorf("Expected opaque linear red, got %+v", c)
	}
}
