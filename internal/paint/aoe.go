package paint

// aoeKind tags the variant held by an AoE value.
type aoeKind uint8

const (
	aoeNothing aoeKind = iota
	aoeBounds
	aoeTileMap
	aoeResize
	aoeEverything
)

// AoE (area of effect) describes the region a layer/layerstack edit touched,
// for driving observer redraws. It is a tagged union (a kind plus payload
// fields) rather than an interface. Because it holds a TileMap's slice, AoE
// values are not comparable with ==; check them with IsNothing or by kind.
type AoE struct {
	kind    aoeKind
	bounds  Rectangle
	tiles   TileMap
	offx    int32
	offy    int32
}

// NothingAoE is the identity element of the union algebra.
var NothingAoE = AoE{kind: aoeNothing}

// EverythingAoE is the absorbing element of the union algebra.
var EverythingAoE = AoE{kind: aoeEverything}

// BoundsAoE reports a pixel-rectangle change.
func BoundsAoE(r Rectangle) AoE { return AoE{kind: aoeBounds, bounds: r} }

// TileMapAoE reports a tile-granularity change.
func TileMapAoE(tm TileMap) AoE { return AoE{kind: aoeTileMap, tiles: tm} }

// ResizeAoE reports a canvas resize by the given tile-grid offsets.
func ResizeAoE(offx, offy int32) AoE { return AoE{kind: aoeResize, offx: offx, offy: offy} }

// IsNothing reports whether the AoE carries no change.
func (a AoE) IsNothing() bool { return a.kind == aoeNothing }

// Union combines two AoE values per the algebra in the data model: Nothing is
// the identity, Everything absorbs, Resize supersedes Bounds/TileMap, two
// Bounds union to their bounding rect, and two equally-shaped TileMaps OR
// their bitsets.
func (a AoE) Union(b AoE) AoE {
	switch {
	case a.kind == aoeNothing:
		return b
	case b.kind == aoeNothing:
		return a
	case a.kind == aoeEverything || b.kind == aoeEverything:
		return EverythingAoE
	case a.kind == aoeResize:
		return a
	case b.kind == aoeResize:
		return b
	case a.kind == aoeBounds && b.kind == aoeBounds:
		return BoundsAoE(a.bounds.Union(b.bounds))
	case a.kind == aoeTileMap && b.kind == aoeTileMap && a.tiles.W == b.tiles.W && a.tiles.H == b.tiles.H:
		return TileMapAoE(a.tiles.Or(b.tiles))
	default:
		// Mismatched kinds/shapes: fall back to the safe upper bound.
		return EverythingAoE
	}
}

// TileMap is a dense bitset over a w*h tile grid, row-major.
type TileMap struct {
	W, H int32
	bits []bool
}

// NewTileMap allocates an all-clear tile map for a w*h tile grid.
func NewTileMap(w, h int32) TileMap {
	return TileMap{W: w, H: h, bits: make([]bool, int(w*h))}
}

// Set flags tile (x,y) as changed.
func (t TileMap) Set(x, y int32) {
	t.bits[y*t.W+x] = true
}

// Get reports whether tile (x,y) is flagged.
func (t TileMap) Get(x, y int32) bool {
	return t.bits[y*t.W+x]
}

// Any reports whether any tile is flagged.
func (t TileMap) Any() bool {
	for _, b := range t.bits {
		if b {
			return true
		}
	}
	return false
}

// Or returns the bitwise union of two same-shaped tile maps.
func (t TileMap) Or(other TileMap) TileMap {
	out := NewTileMap(t.W, t.H)
	for i := range out.bits {
		out.bits[i] = t.bits[i] || other.bits[i]
	}
	return out
}
