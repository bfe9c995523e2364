package viscor

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// LayoutFile is the file describing a precomputed correspondence volume.
const LayoutFile = "layout.json"

// Layout is the content of a layout.json file.
type Layout struct {
	Shape []int  `json:"shape"`
	DType string `json:"dtype"`
}

// ReadLayout parses a layout.json file.
func ReadLayout(path string) (Layout, error) {
	var l Layout
	b, err := os.ReadFile(path)
	if err != nil {
		return l, fmt.Errorf("failed to read layout: %w", err)
	}
	if err := json.Unmarshal(b, &l); err != nil {
		return l, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}
	return l, nil
}

func isFloat32DType(dtype string) bool {
	switch strings.ToLower(dtype) {
	case "float32", "f4", "<f4", "torch.float32":
		return true
	}
	return false
}

var sliceNamePattern = regexp.MustCompile(`^(\d+)_(\d+)$`)

// IndexFromName parses the source cell (i, j) encoded in a slice file
// name such as "12_34.bin" or "12_34.bin.zst".
func IndexFromName(name string) (i, j int, err error) {
	base := filepath.Base(name)
	if k := strings.IndexByte(base, '.'); k >= 0 {
		base = base[:k]
	}
	m := sliceNamePattern.FindStringSubmatch(base)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q is not a slice name", ErrFormat, name)
	}
	if i, err = strconv.Atoi(m[1]); err != nil {
		return 0, 0, err
	}
	if j, err = strconv.Atoi(m[2]); err != nil {
		return 0, 0, err
	}
	return i, j, nil
}

// HeatmapsDir is a directory of precomputed similarity slices: a
// layout.json with shape [h0, w0, h1, w1] and one raw little-endian
// float32 file of h1*w1 values per source cell.
type HeatmapsDir struct {
	Root   string
	dims   Dims
	slices []string
}

// OpenHeatmapsDir indexes the volume described by layoutPath.
func OpenHeatmapsDir(layoutPath string) (*HeatmapsDir, error) {
	layout, err := ReadLayout(layoutPath)
	if err != nil {
		return nil, err
	}
	if len(layout.Shape) != 4 {
		return nil, &ShapeError{Shape: layout.Shape, Want: 4}
	}
	if !isFloat32DType(layout.DType) {
		return nil, fmt.Errorf("%w: %q", ErrDType, layout.DType)
	}
	dims := Dims{H0: layout.Shape[0], W0: layout.Shape[1], H1: layout.Shape[2], W1: layout.Shape[3]}
	if dims.H0 < 1 || dims.W0 < 1 || dims.H1 < 1 || dims.W1 < 1 {
		return nil, fmt.Errorf("%w: layout shape %v", ErrShape, layout.Shape)
	}

	d := &HeatmapsDir{
		Root:   filepath.Dir(layoutPath),
		dims:   dims,
		slices: make([]string, dims.H0*dims.W0),
	}
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", d.Root, err)
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() == LayoutFile {
			continue
		}
		i, j, err := IndexFromName(e.Name())
		if err != nil {
			continue
		}
		if i >= dims.H0 || j >= dims.W0 {
			return nil, fmt.Errorf("slice %s: %w", e.Name(),
				&IndexError{I: i, J: j, H: dims.H0, W: dims.W0})
		}
		d.slices[i*dims.W0+j] = filepath.Join(d.Root, e.Name())
	}
	return d, nil
}

// Dims implements SliceSource.
func (d *HeatmapsDir) Dims() Dims { return d.dims }

// SlicePath returns the file holding the slice of cell (i, j), if any.
func (d *HeatmapsDir) SlicePath(i, j int) (string, bool) {
	if i < 0 || i >= d.dims.H0 || j < 0 || j >= d.dims.W0 {
		return "", false
	}
	p := d.slices[i*d.dims.W0+j]
	return p, p != ""
}

// Slice implements SliceSource. Cells without a file yield zeros.
func (d *HeatmapsDir) Slice(q SliceQuery, dst []float32) error {
	if len(dst) != d.dims.H1*d.dims.W1 {
		return fmt.Errorf("%w: map has %d cells, slices have %d",
			ErrShape, len(dst), d.dims.H1*d.dims.W1)
	}
	if q.I < 0 || q.I >= d.dims.H0 || q.J < 0 || q.J >= d.dims.W0 {
		return &IndexError{I: q.I, J: q.J, H: d.dims.H0, W: d.dims.W0}
	}
	path, ok := d.SlicePath(q.I, q.J)
	if !ok {
		clear(dst)
		return nil
	}
	rc, err := openMaybeCompressed(path)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := binary.Read(rc, binary.LittleEndian, dst); err != nil {
		return fmt.Errorf("failed to read slice %s: %w", path, err)
	}
	return nil
}

// TraceDir is a tree of correspondence volumes, one per layout.json with
// a 4-axis shape, selected through SliceQuery.Volume.
type TraceDir struct {
	Root    string
	Volumes []*HeatmapsDir
	Names   []string
}

// OpenTraceDir discovers every volume under root. Volumes are ordered by
// their directory relative to root and must share dimensions.
func OpenTraceDir(root string) (*TraceDir, error) {
	var layouts []string
	err := filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() || e.Name() != LayoutFile {
			return nil
		}
		l, err := ReadLayout(path)
		if err != nil {
			return err
		}
		if len(l.Shape) == 4 {
			layouts = append(layouts, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(layouts) == 0 {
		return nil, fmt.Errorf("%w: no 4-axis %s under %s", ErrFormat, LayoutFile, root)
	}
	sort.Strings(layouts)

	t := &TraceDir{Root: root}
	for _, p := range layouts {
		v, err := OpenHeatmapsDir(p)
		if err != nil {
			return nil, err
		}
		if len(t.Volumes) > 0 && v.Dims() != t.Volumes[0].Dims() {
			return nil, fmt.Errorf("%w: volume %s has dims %+v, expected %+v",
				ErrShape, p, v.Dims(), t.Volumes[0].Dims())
		}
		name, err := filepath.Rel(root, filepath.Dir(p))
		if err != nil {
			return nil, err
		}
		t.Volumes = append(t.Volumes, v)
		t.Names = append(t.Names, name)
	}
	return t, nil
}

// Dims implements SliceSource.
func (t *TraceDir) Dims() Dims { return t.Volumes[0].Dims() }

// Slice implements SliceSource.
func (t *TraceDir) Slice(q SliceQuery, dst []float32) error {
	if q.Volume < 0 || q.Volume >= len(t.Volumes) {
		return fmt.Errorf("%w: volume %d of %d", ErrOutOfRange, q.Volume, len(t.Volumes))
	}
	return t.Volumes[q.Volume].Slice(q, dst)
}

// CacheKey implements KeyedSource: switching volumes invalidates the map.
func (t *TraceDir) CacheKey(q SliceQuery) CacheKey { return VolumeKey(q) }
