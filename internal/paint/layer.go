package paint

// LayerID identifies a layer or sublayer. Sublayer IDs are never zero;
// positive sublayer IDs match the drawing user's UserID (indirect strokes),
// negative ones are local-only previews.
type LayerID = int32

// tileVec is the shared, reference-counted backing store for a Layer's tile
// grid — the Go stand-in for Rc<Vec<Tile>>.
type tileVec struct {
	tiles []Tile
	refs  int32
}

func newTileVec(n int, fill Tile) *tileVec {
	tv := &tileVec{tiles: make([]Tile, n), refs: 1}
	for i := range tv.tiles {
		tv.tiles[i] = fill.Clone()
	}
	return tv
}

func (tv *tileVec) clone() *tileVec {
	cp := &tileVec{tiles: make([]Tile, len(tv.tiles)), refs: 1}
	for i, t := range tv.tiles {
		cp.tiles[i] = t.Clone()
	}
	return cp
}

// Layer is a tiled image layer: a COW-shared tile grid plus ordered
// sublayers. Layer values are always held through a *Layer pointer acting as
// a reference-counted handle (see Clone/cow), matching Rc<Layer> in the
// reference implementation.
type Layer struct {
	refs int32

	ID        LayerID
	Title     string
	Opacity   float32
	Hidden    bool
	Censored  bool
	Fixed     bool
	Blendmode Blendmode

	width, height int32
	tiles         *tileVec
	Sublayers     []*Layer
}

// NewLayer allocates a layer of the given pixel size filled with fill.
func NewLayer(id LayerID, width, height int32, fill Color) *Layer {
	xt, yt := DivUp(width), DivUp(height)
	return &Layer{
		refs:      1,
		ID:        id,
		Opacity:   1,
		Blendmode: BlendNormal,
		width:     width,
		height:    height,
		tiles:     newTileVec(int(xt*yt), NewTile(fill, 0)),
	}
}

// LayerFromImage builds a layer from a row-major premultiplied pixel buffer,
// typically used for scratch layers in image-manipulation drivers (paste,
// floodfill, annotation rendering).
func LayerFromImage(pixels []Pixel, width, height int32) *Layer {
	xtiles, ytiles := DivUp(width), DivUp(height)
	layer := NewLayer(0, width, height, Transparent)
	imageRect := NewRectangle(0, 0, width, height)

	for ty := int32(0); ty < ytiles; ty++ {
		for tx := int32(0); tx < xtiles; tx++ {
			srcRect, ok := NewRectangle(tx*TileSize, ty*TileSize, TileSize, TileSize).Intersected(imageRect)
			if !ok {
				continue
			}
			destRect := srcRect.Offset(-tx*TileSize, -ty*TileSize)

			tile := &layer.tiles.tiles[ty*xtiles+tx]
			for y := destRect.Y; y < destRect.Y+destRect.H; y++ {
				srcY := y - destRect.Y + srcRect.Y
				destRow := tile.MutableRowSlice(0, y)
				srcOff := srcY*width + srcRect.X
				copy(destRow[destRect.X:destRect.X+destRect.W], pixels[srcOff:srcOff+destRect.W])
			}
		}
	}
	return layer
}

// Clone returns a new handle to the same layer, incrementing its reference
// count. The tile grid is shared until a mutation forces a copy.
func (l *Layer) Clone() *Layer {
	l.refs++
	return l
}

// cow returns a *Layer this caller may mutate in place, copying first if the
// layer is shared. The tile grid's own refcount is bumped, not copied, since
// tiles are copy-on-write at their own granularity.
func (l *Layer) cow() *Layer {
	if l.refs <= 1 {
		return l
	}
	l.refs--
	cp := *l
	cp.refs = 1
	cp.tiles.refs++
	cp.Sublayers = append([]*Layer(nil), l.Sublayers...)
	for _, s := range cp.Sublayers {
		s.refs++
	}
	return &cp
}

// Width returns the layer's pixel width.
func (l *Layer) Width() int32 { return l.width }

// Height returns the layer's pixel height.
func (l *Layer) Height() int32 { return l.height }

// IsVisible reports whether the layer is neither hidden nor fully
// transparent.
func (l *Layer) IsVisible() bool {
	return !l.Hidden && l.Opacity > 0
}

func (l *Layer) xtiles() int32 { return DivUp(l.width) }

// Tile returns the tile at tile-grid coordinates (i,j).
func (l *Layer) Tile(i, j int32) Tile {
	return l.tiles.tiles[j*l.xtiles()+i]
}

// TileMut returns a pointer to the tile at (i,j), copying the tile grid
// first if it is shared.
func (l *Layer) TileMut(i, j int32) *Tile {
	if l.tiles.refs > 1 {
		l.tiles.refs--
		l.tiles = l.tiles.clone()
	}
	return &l.tiles.tiles[j*l.xtiles()+i]
}

// Tiles returns a read-only view of the tile grid, row-major.
func (l *Layer) Tiles() []Tile { return l.tiles.tiles }

// PixelAt returns the pixel at canvas coordinates (x,y) within this layer.
func (l *Layer) PixelAt(x, y int32) Pixel {
	ti, tj := x/TileSize, y/TileSize
	tx, ty := x-ti*TileSize, y-tj*TileSize
	return l.Tile(ti, tj).PixelAt(tx, ty)
}

// GetOrCreateSublayer finds (or creates, appending to Sublayers) a sublayer
// with the given nonzero id, sized to match the parent.
func (l *Layer) GetOrCreateSublayer(id LayerID) *Layer {
	if id == 0 {
		panic("paint: sublayer id 0 is not allowed")
	}
	for i, sl := range l.Sublayers {
		if sl.ID == id {
			if sl.refs > 1 {
				sl = sl.cow()
				l.Sublayers[i] = sl
			}
			return sl
		}
	}
	sl := NewLayer(id, l.width, l.height, Transparent)
	l.Sublayers = append(l.Sublayers, sl)
	return sl
}

// TakeSublayer removes and returns the sublayer with the given id, if any.
func (l *Layer) TakeSublayer(id LayerID) *Layer {
	for i, sl := range l.Sublayers {
		if sl.ID == id {
			l.Sublayers = append(l.Sublayers[:i], l.Sublayers[i+1:]...)
			return sl
		}
	}
	return nil
}

// HasSublayer reports whether a sublayer with the given id exists.
func (l *Layer) HasSublayer(id LayerID) bool {
	for _, sl := range l.Sublayers {
		if sl.ID == id {
			return true
		}
	}
	return false
}

// SolidColor returns the layer's color if every tile reports the same solid
// color.
func (l *Layer) SolidColor() (Color, bool) {
	if len(l.tiles.tiles) == 0 {
		return Transparent, true
	}
	first, ok := l.tiles.tiles[0].SolidColor()
	if !ok {
		return Color{}, false
	}
	for _, t := range l.tiles.tiles[1:] {
		c, ok := t.SolidColor()
		if !ok || !c.Equal(first) {
			return Color{}, false
		}
	}
	return first, true
}

// NonblankTilemap returns a bitset flagging tiles that are not Blank.
func (l *Layer) NonblankTilemap() TileMap {
	xt, yt := l.xtiles(), DivUp(l.height)
	tm := NewTileMap(xt, yt)
	for j := int32(0); j < yt; j++ {
		for i := int32(0); i < xt; i++ {
			if !l.Tile(i, j).IsBlank() {
				tm.Set(i, j)
			}
		}
	}
	return tm
}

// Resized returns a new layer with its canvas extended/retracted by the given
// per-edge deltas (top/right/bottom/left, in pixels). left/top may be
// negative to retract. The new layer's (0,0) corresponds to
// (-left,-top) in the old layer's coordinate space.
func (l *Layer) Resized(top, right, bottom, left int32) *Layer {
	newWidth := left + l.width + right
	newHeight := top + l.height + bottom

	if c, ok := l.SolidColor(); ok {
		out := NewLayer(l.ID, newWidth, newHeight, c)
		out.copyAttributesFrom(l)
		out.Sublayers = resizeSublayers(l.Sublayers, top, right, bottom, left)
		return out
	}

	out := NewLayer(l.ID, newWidth, newHeight, Transparent)
	out.copyAttributesFrom(l)

	if left%TileSize == 0 && top%TileSize == 0 {
		resizeTileAligned(l, out, top, left)
	} else {
		resizeSlow(l, out, top, left)
	}
	out.Sublayers = resizeSublayers(l.Sublayers, top, right, bottom, left)
	return out
}

func (l *Layer) copyAttributesFrom(src *Layer) {
	l.Title = src.Title
	l.Opacity = src.Opacity
	l.Hidden = src.Hidden
	l.Censored = src.Censored
	l.Fixed = src.Fixed
	l.Blendmode = src.Blendmode
}

func resizeSublayers(subs []*Layer, top, right, bottom, left int32) []*Layer {
	if len(subs) == 0 {
		return nil
	}
	out := make([]*Layer, len(subs))
	for i, s := range subs {
		out[i] = s.Resized(top, right, bottom, left)
	}
	return out
}

func resizeTileAligned(src, dst *Layer, top, left int32) {
	toffx, toffy := left/TileSize, top/TileSize
	for j := int32(0); j < DivUp(src.height); j++ {
		for i := int32(0); i < src.xtiles(); i++ {
			di, dj := i+toffx, j+toffy
			if di < 0 || dj < 0 || di >= dst.xtiles() || dj >= DivUp(dst.height) {
				continue
			}
			*dst.TileMut(di, dj) = src.Tile(i, j).Clone()
		}
	}
}

func resizeSlow(src, dst *Layer, top, left int32) {
	srcRect := NewRectangle(0, 0, src.width, src.height)
	dstBounds := srcRect.Offset(left, top)
	visible, ok := dstBounds.Intersected(NewRectangle(0, 0, dst.width, dst.height))
	if !ok {
		return
	}
	for y := visible.Y; y < visible.Y+visible.H; y++ {
		srcY := y - top
		row := make([]Pixel, visible.W)
		for x := int32(0); x < visible.W; x++ {
			row[x] = src.PixelAt(visible.X-left+x, srcY)
		}
		writeRowToLayer(dst, visible.X, y, row)
	}
}

func writeRowToLayer(l *Layer, x, y int32, row []Pixel) {
	remaining := row
	cx := x
	for len(remaining) > 0 {
		ti, tj := cx/TileSize, y/TileSize
		tx := cx - ti*TileSize
		n := min32(int32(len(remaining)), TileSize-tx)
		tile := l.TileMut(ti, tj)
		dest := tile.MutableRowSlice(0, y-tj*TileSize)
		copy(dest[tx:tx+n], remaining[:n])
		remaining = remaining[n:]
		cx += n
	}
}

// Compare returns a change-detector AoE versus other: Nothing if they share
// the same tile handle, Resize(0,0) if their sizes differ, otherwise a
// TileMap flagging tiles whose handles differ. This is a fast, shallow
// change detector — it does not compare pixel contents.
func (l *Layer) Compare(other *Layer) AoE {
	if l.tiles == other.tiles {
		return NothingAoE
	}
	if l.width != other.width || l.height != other.height {
		return ResizeAoE(0, 0)
	}
	xt, yt := l.xtiles(), DivUp(l.height)
	tm := NewTileMap(xt, yt)
	changed := false
	for j := int32(0); j < yt; j++ {
		for i := int32(0); i < xt; i++ {
			a := &l.tiles.tiles[j*xt+i]
			b := &other.tiles.tiles[j*xt+i]
			if a.data != b.data {
				tm.Set(i, j)
				changed = true
			}
		}
	}
	if !changed {
		return NothingAoE
	}
	return TileMapAoE(tm)
}

// FlattenTile composites this layer's tile (i,j), and its sublayers', onto
// destination using (Opacity, Blendmode). Invisible layers are a no-op.
// Censored layers are substituted with a flat mid-gray placeholder tile — a
// policy choice the source data model does not define.
func (l *Layer) FlattenTile(destination *tileData, i, j int32) {
	if !l.IsVisible() {
		return
	}

	if l.Censored {
		placeholder := NewSolidTile(Color{R: 0.5, G: 0.5, B: 0.5, A: 1}, 0)
		destination.mergeTile(placeholder, l.Opacity, l.Blendmode)
		return
	}

	if len(l.Sublayers) == 0 {
		destination.mergeTile(l.Tile(i, j), l.Opacity, l.Blendmode)
		return
	}

	tmp := l.Tile(i, j).cloneAsTileData()
	for _, sl := range l.Sublayers {
		if sl.IsVisible() {
			tmp.mergeTile(sl.Tile(i, j), sl.Opacity, sl.Blendmode)
		}
	}
	destination.mergeData(tmp, l.Opacity, l.Blendmode)
}

func (td *tileData) mergeTile(t Tile, opacity float32, mode Blendmode) {
	if t.data == nil {
		return
	}
	td.mergeData(t.data, opacity, mode)
}

// cloneAsTileData returns an owned tileData copy of the tile's content
// (Blank becomes an all-zero tile), used as flatten's scratch buffer.
func (t Tile) cloneAsTileData() *tileData {
	if t.data == nil {
		return newTileData(ZeroPixel, 0)
	}
	return t.data.clone()
}
