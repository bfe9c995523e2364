package viscor

// SliceQuery is the per-frame interaction state: where the cursor sits on
// image A, the grid cell it resolves to, and the display toggles.
type SliceQuery struct {
	// U and V are the normalized cursor position over image A.
	U, V float64
	// I and J are the resolved cell in desc0's index space.
	I, J int
	// Exp applies an exponential to the map before display.
	Exp bool
	// Alpha is the overlay transparency, a multiple of 0.01 in [0, 1].
	Alpha float64
	// Volume selects among the volumes of a multi-volume source.
	Volume int
}

// CacheKey is the subset of a query whose change forces recomputation.
type CacheKey struct {
	Volume int
	I, J   int
	Exp    bool
}

// KeyFunc derives a cache key from a query.
type KeyFunc func(SliceQuery) CacheKey

// CellKey keys on (I, J, Exp) and ignores the volume selector.
func CellKey(q SliceQuery) CacheKey {
	return CacheKey{I: q.I, J: q.J, Exp: q.Exp}
}

// VolumeKey keys on (Volume, I, J, Exp).
func VolumeKey(q SliceQuery) CacheKey {
	return CacheKey{Volume: q.Volume, I: q.I, J: q.J, Exp: q.Exp}
}
