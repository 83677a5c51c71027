package paint

// TileSize is the edge length, in pixels, of a tile.
const TileSize = 64

// tileLength is the number of pixels in a tile.
const tileLength = TileSize * TileSize

// UserID identifies a session participant; 0 means "no particular user"
// (used for tiles that were never touched by a specific drawing op).
type UserID = uint8

// tileData holds a bitmap tile's pixels plus the explicit reference count
// used to decide whether a mutation needs to clone. Go's garbage collector
// frees the backing array on its own; refs exists purely to answer "am I
// uniquely held", the same question Rc::strong_count() answers in the
// reference implementation.
type tileData struct {
	pixels         [tileLength]Pixel
	lastTouchedBy  UserID
	maybeBlank     bool
	refs           int32
}

func newTileData(p Pixel, user UserID) *tileData {
	td := &tileData{lastTouchedBy: user, refs: 1}
	for i := range td.pixels {
		td.pixels[i] = p
	}
	return td
}

func (td *tileData) clone() *tileData {
	cp := *td
	cp.refs = 1
	return &cp
}

func (td *tileData) mergeData(other *tileData, opacity float32, mode Blendmode) {
	PixelBlend(td.pixels[:], other.pixels[:], uint8(opacity*255), mode)
}

// Tile is one 64x64 square of the canvas: either Blank (the shared, storage
// free zero tile) or a shared Bitmap tile. The zero value of Tile is Blank.
type Tile struct {
	data *tileData
}

// BlankTile is the zero, storage-free tile.
var BlankTile = Tile{}

// NewTile builds a tile filled with color. A fully transparent color yields
// Blank.
func NewTile(color Color, user UserID) Tile {
	p := color.AsPixel()
	if p.A() == 0 {
		return BlankTile
	}
	return Tile{data: newTileData(p, user)}
}

// NewSolidTile builds a bitmap tile filled with color even if it is fully
// transparent (used by merge's Blank-to-Bitmap promotion).
func NewSolidTile(color Color, user UserID) Tile {
	return Tile{data: newTileData(color.AsPixel(), user)}
}

// FromTileData constructs a bitmap tile from a full 64*64 premultiplied pixel
// buffer, used when decompressing a PutTile/CanvasBackground payload.
func FromTileData(pixels []Pixel, user UserID) Tile {
	if len(pixels) != tileLength {
		panic("paint: wrong tile pixel count")
	}
	td := &tileData{lastTouchedBy: user, refs: 1}
	copy(td.pixels[:], pixels)
	return Tile{data: td}
}

// DivUp divides x by TileSize, rounding up.
func DivUp(x int32) int32 {
	return (x + TileSize - 1) / TileSize
}

// IsBlank reports whether this value is (or behaves exactly as) the Blank
// tile: either the Blank variant, or a bitmap whose alpha channel is
// everywhere zero.
func (t Tile) IsBlank() bool {
	if t.data == nil {
		return true
	}
	for _, p := range t.data.pixels {
		if p.A() != 0 {
			return false
		}
	}
	return true
}

// SolidColor returns the tile's color if every pixel is identical; Blank
// reports Transparent.
func (t Tile) SolidColor() (Color, bool) {
	if t.data == nil {
		return Transparent, true
	}
	first := t.data.pixels[0]
	for _, p := range t.data.pixels {
		if p != first {
			return Color{}, false
		}
	}
	return ColorFromPixel(first), true
}

// LastTouchedBy returns the user id that last wrote to this tile; Blank
// reports 0.
func (t Tile) LastTouchedBy() UserID {
	if t.data == nil {
		return 0
	}
	return t.data.lastTouchedBy
}

// Clone returns a new Tile value sharing the same underlying storage,
// incrementing its reference count. Mirrors Rust's Tile::clone().
func (t Tile) Clone() Tile {
	if t.data != nil {
		t.data.refs++
	}
	return t
}

// Refcount reports the current share count (0 for Blank), exposed for tests
// exercising the COW discipline.
func (t Tile) Refcount() int32 {
	if t.data == nil {
		return 0
	}
	return t.data.refs
}

// own returns a tileData this Tile value can mutate in place, cloning first
// if the storage is shared (refs > 1).
func (t *Tile) own(user UserID) *tileData {
	if t.data == nil {
		t.data = newTileData(ZeroPixel, user)
		return t.data
	}
	if t.data.refs > 1 {
		t.data.refs--
		t.data = t.data.clone()
	}
	return t.data
}

// Fill overwrites every pixel with color. A fully transparent color collapses
// the tile to Blank.
func (t *Tile) Fill(color Color, user UserID) {
	if color.A == 0 {
		*t = BlankTile
		return
	}
	p := color.AsPixel()
	td := t.own(user)
	td.lastTouchedBy = user
	for i := range td.pixels {
		td.pixels[i] = p
	}
	td.maybeBlank = false
}

// Merge blends other onto t with the given opacity/mode. A Blank other is a
// no-op. Merging into a Blank t is a no-op unless mode can increase opacity,
// in which case t is promoted to a transparent bitmap first.
func (t *Tile) Merge(other Tile, opacity float32, mode Blendmode) {
	if other.data == nil {
		return
	}
	if t.data == nil {
		if !mode.CanIncreaseOpacity() {
			return
		}
		*t = NewSolidTile(Transparent, other.LastTouchedBy())
	}
	td := t.own(t.data.lastTouchedBy)
	td.mergeData(other.data, opacity, mode)
	if mode.CanDecreaseOpacity() {
		td.maybeBlank = true
	}
}

// PixelAt returns the pixel at local tile coordinates (x,y), both in
// [0,TileSize).
func (t Tile) PixelAt(x, y int32) Pixel {
	if t.data == nil {
		return ZeroPixel
	}
	return t.data.pixels[y*TileSize+x]
}

// RowSlice returns a read-only view of row y (local tile coordinate), width
// TileSize.
func (t Tile) RowSlice(y int32) []Pixel {
	if t.data == nil {
		row := make([]Pixel, TileSize)
		return row
	}
	return t.data.pixels[y*TileSize : (y+1)*TileSize]
}

// MutableRowSlice returns a mutable view of row y, converting Blank to a
// fresh transparent bitmap first. Callers that may decrease opacity must
// follow up with MarkMaybeErased.
func (t *Tile) MutableRowSlice(user UserID, y int32) []Pixel {
	td := t.own(user)
	return td.pixels[y*TileSize : (y+1)*TileSize]
}

// MarkMaybeErased ORs the maybe_blank hint after an editor wrote to this
// (already-owned) tile with an opacity-decreasing op.
func (t *Tile) MarkMaybeErased() {
	if t.data != nil {
		t.data.maybeBlank = true
	}
}

// Optimize collapses a bitmap tile whose alpha channel is now universally
// zero back to Blank. It is a fixpoint: calling it twice in a row has the
// same effect as calling it once.
func (t *Tile) Optimize() {
	if t.data == nil || !t.data.maybeBlank {
		return
	}
	if t.IsBlank() {
		*t = BlankTile
		return
	}
	t.data.maybeBlank = false
}

// Equal compares tiles the way the reference PartialEq does: bitmap-vs-bitmap
// compares pixel data, anything involving Blank compares via IsBlank.
func (t Tile) Equal(other Tile) bool {
	if t.data != nil && other.data != nil {
		return t.data.pixels == other.data.pixels
	}
	return t.IsBlank() && other.IsBlank()
}
