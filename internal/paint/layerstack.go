package paint

// layerFillKind tags the variant held by a LayerFill value.
type layerFillKind uint8

const (
	fillSolid layerFillKind = iota
	fillCopy
)

// LayerFill describes how a freshly added layer's pixels are populated.
type LayerFill struct {
	kind   layerFillKind
	color  Color
	source LayerID
}

// SolidFill fills the new layer with a flat color.
func SolidFill(c Color) LayerFill { return LayerFill{kind: fillSolid, color: c} }

// CopyFill duplicates the tile handle of an existing layer (a cheap,
// COW-shared copy, not a pixel-by-pixel clone).
func CopyFill(source LayerID) LayerFill { return LayerFill{kind: fillCopy, source: source} }

// layerPosKind tags the variant held by a LayerInsertion value.
type layerPosKind uint8

const (
	posTop layerPosKind = iota
	posBottom
	posAbove
)

// LayerInsertion describes where in the stack a new layer lands.
type LayerInsertion struct {
	kind   layerPosKind
	source LayerID
}

// TopInsertion places the new layer above every existing layer.
var TopInsertion = LayerInsertion{kind: posTop}

// BottomInsertion places the new layer below every existing layer.
var BottomInsertion = LayerInsertion{kind: posBottom}

// AboveInsertion places the new layer directly above the named source layer.
func AboveInsertion(source LayerID) LayerInsertion {
	return LayerInsertion{kind: posAbove, source: source}
}

// layerVec is the shared, reference-counted ordering of layer handles — the
// Go stand-in for Rc<Vec<Rc<Layer>>>.
type layerVec struct {
	refs  int32
	items []*Layer
}

func newLayerVec() *layerVec {
	return &layerVec{refs: 1}
}

func (lv *layerVec) clone() *layerVec {
	cp := &layerVec{refs: 1, items: append([]*Layer(nil), lv.items...)}
	for _, l := range cp.items {
		l.refs++
	}
	return cp
}

// LayerStack is an ordered stack of layers plus a background tile, the unit
// of canvas state shared between history savepoints and the live canvas.
// Always held through a *LayerStack handle; Clone/cow mirror Rc<LayerStack>.
type LayerStack struct {
	refs int32

	layers      *layerVec
	Annotations []*Annotation
	Background  Tile
	width       int32
	height      int32
}

// NewLayerStack creates an empty layer stack of the given pixel size.
func NewLayerStack(width, height int32) *LayerStack {
	return &LayerStack{
		refs:   1,
		layers: newLayerVec(),
		width:  width,
		height: height,
	}
}

// Clone returns a new handle to the same layer stack, incrementing its
// reference count.
func (ls *LayerStack) Clone() *LayerStack {
	ls.refs++
	return ls
}

// Own returns a *LayerStack the caller can mutate in place, shallow-cloning
// the top-level struct first if it is shared (refs > 1) — the Go analogue of
// Rc::make_mut. The clone shares the same layerVec and Background tile
// handles (cheap, reference-counted); cowLayers and Tile's own COW take care
// of any further nested sharing lazily, the same two-level scheme Layer uses
// for its tiles. Callers must reassign their local handle to the result
// before any mutating call (AddLayer, RemoveLayer, Reordered, GetLayerMut,
// or a direct Background/Annotations write).
func (ls *LayerStack) Own() *LayerStack {
	if ls.refs <= 1 {
		return ls
	}
	ls.refs--
	cp := &LayerStack{
		refs:        1,
		layers:      ls.layers,
		Annotations: append([]*Annotation(nil), ls.Annotations...),
		Background:  ls.Background.Clone(),
		width:       ls.width,
		height:      ls.height,
	}
	cp.layers.refs++
	return cp
}

// Width returns the canvas pixel width.
func (ls *LayerStack) Width() int32 { return ls.width }

// Height returns the canvas pixel height.
func (ls *LayerStack) Height() int32 { return ls.height }

// cowLayers returns a *layerVec this LayerStack can mutate in place, copying
// first if the layer ordering is shared with another LayerStack handle.
func (ls *LayerStack) cowLayers() {
	if ls.layers.refs > 1 {
		ls.layers.refs--
		ls.layers = ls.layers.clone()
	}
}

// Layers returns a read-only view of the layer stack, bottom to top.
func (ls *LayerStack) Layers() []*Layer { return ls.layers.items }

// GetLayer returns the layer with the given id, if any.
func (ls *LayerStack) GetLayer(id LayerID) *Layer {
	for _, l := range ls.layers.items {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (ls *LayerStack) findLayerIndex(id LayerID) int {
	for i, l := range ls.layers.items {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// FindLayerBelow returns the id of the layer immediately beneath id, or 0 if
// id is the bottommost layer or does not exist.
func (ls *LayerStack) FindLayerBelow(id LayerID) LayerID {
	idx := ls.findLayerIndex(id)
	if idx <= 0 {
		return 0
	}
	return ls.layers.items[idx-1].ID
}

// GetLayerMut returns a mutable handle to the layer with the given id,
// copy-on-writing both the layer ordering and the layer itself as needed.
func (ls *LayerStack) GetLayerMut(id LayerID) *Layer {
	ls.cowLayers()
	idx := ls.findLayerIndex(id)
	if idx < 0 {
		return nil
	}
	l := ls.layers.items[idx]
	if l.refs > 1 {
		l = l.cow()
		ls.layers.items[idx] = l
	}
	return l
}

// AddLayer inserts a new layer with the given id, fill, and stack position.
// Returns false if a layer with that id already exists.
func (ls *LayerStack) AddLayer(id LayerID, fill LayerFill, position LayerInsertion) bool {
	if ls.GetLayer(id) != nil {
		return false
	}
	ls.cowLayers()

	var layer *Layer
	switch fill.kind {
	case fillCopy:
		src := ls.GetLayer(fill.source)
		if src == nil {
			layer = NewLayer(id, ls.width, ls.height, Transparent)
		} else {
			layer = &Layer{
				refs:      1,
				ID:        id,
				Opacity:   1,
				Blendmode: BlendNormal,
				width:     ls.width,
				height:    ls.height,
				tiles:     src.tiles,
			}
			layer.tiles.refs++
		}
	default:
		layer = NewLayer(id, ls.width, ls.height, fill.color)
	}

	switch position.kind {
	case posBottom:
		ls.layers.items = append([]*Layer{layer}, ls.layers.items...)
	case posAbove:
		idx := ls.findLayerIndex(position.source)
		if idx < 0 {
			ls.layers.items = append(ls.layers.items, layer)
		} else {
			ls.layers.items = append(ls.layers.items, nil)
			copy(ls.layers.items[idx+2:], ls.layers.items[idx+1:])
			ls.layers.items[idx+1] = layer
		}
	default:
		ls.layers.items = append(ls.layers.items, layer)
	}
	return true
}

// RemoveLayer deletes the layer with the given id, returning it (or nil if
// not found).
func (ls *LayerStack) RemoveLayer(id LayerID) *Layer {
	idx := ls.findLayerIndex(id)
	if idx < 0 {
		return nil
	}
	ls.cowLayers()
	l := ls.layers.items[idx]
	ls.layers.items = append(ls.layers.items[:idx], ls.layers.items[idx+1:]...)
	return l
}

// Reordered reorders the layer stack per order (bottom to top). Unknown ids
// are dropped; any existing layer ids missing from order are appended at the
// end in their prior relative order, matching the reference's "sanitize,
// don't trust the client" policy.
func (ls *LayerStack) Reordered(order []LayerID) {
	ls.cowLayers()
	seen := make(map[LayerID]bool, len(order))
	newItems := make([]*Layer, 0, len(ls.layers.items))
	for _, id := range order {
		if seen[id] {
			continue
		}
		if l := ls.GetLayer(id); l != nil {
			newItems = append(newItems, l)
			seen[id] = true
		}
	}
	for _, l := range ls.layers.items {
		if !seen[l.ID] {
			newItems = append(newItems, l)
		}
	}
	ls.layers.items = newItems
}

// FlattenTile composites the background and every layer's tile (i,j) into a
// fresh tileData.
func (ls *LayerStack) FlattenTile(i, j int32) *tileData {
	bg := ls.Background.cloneAsTileData()
	for _, l := range ls.layers.items {
		l.FlattenTile(bg, i, j)
	}
	return bg
}

// ToImage flattens the whole canvas into a row-major premultiplied pixel
// buffer, serially.
func (ls *LayerStack) ToImage() []Pixel {
	out := make([]Pixel, ls.width*ls.height)
	xtiles, ytiles := DivUp(ls.width), DivUp(ls.height)
	canvasRect := NewRectangle(0, 0, ls.width, ls.height)
	for ty := int32(0); ty < ytiles; ty++ {
		for tx := int32(0); tx < xtiles; tx++ {
			td := ls.FlattenTile(tx, ty)
			ls.blitTile(out, td, tx, ty, canvasRect)
		}
	}
	return out
}

// FlattenTilePixels flattens tile (i,j) and returns its raw pixel array. This
// is the hook rasterpool dispatches across goroutines: it takes no lock and
// touches only tile (i,j)'s COW-shared inputs, never mutating them.
func (ls *LayerStack) FlattenTilePixels(i, j int32) [tileLength]Pixel {
	return ls.FlattenTile(i, j).pixels
}

// TileGridSize returns the canvas's tile-grid dimensions.
func (ls *LayerStack) TileGridSize() (xtiles, ytiles int32) {
	return DivUp(ls.width), DivUp(ls.height)
}

func (ls *LayerStack) blitTile(out []Pixel, td *tileData, tx, ty int32, canvasRect Rectangle) {
	visible, ok := TileRect(tx, ty, TileSize).Intersected(canvasRect)
	if !ok {
		return
	}
	for y := visible.Y; y < visible.Y+visible.H; y++ {
		localY := y - ty*TileSize
		row := td.pixels[localY*TileSize : localY*TileSize+TileSize]
		localX := visible.X - tx*TileSize
		copy(out[y*ls.width+visible.X:y*ls.width+visible.X+visible.W], row[localX:localX+visible.W])
	}
}

// AssembleFlattened blits a set of already-flattened tiles (keyed by
// tile-grid coordinate) into a row-major canvas image. Used by the parallel
// path, which flattens tiles via rasterpool and hands the results back here
// rather than duplicating blit logic.
func (ls *LayerStack) AssembleFlattened(results map[[2]int32][tileLength]Pixel) []Pixel {
	out := make([]Pixel, ls.width*ls.height)
	canvasRect := NewRectangle(0, 0, ls.width, ls.height)
	for key, pixels := range results {
		td := &tileData{pixels: pixels}
		ls.blitTile(out, td, key[0], key[1], canvasRect)
	}
	return out
}

// Resized returns a new layer stack extended/retracted by the given per-edge
// pixel deltas, remapping every layer and offsetting annotation rects.
func (ls *LayerStack) Resized(top, right, bottom, left int32) (*LayerStack, bool) {
	newWidth := left + ls.width + right
	newHeight := top + ls.height + bottom
	if newWidth <= 0 || newHeight <= 0 {
		return nil, false
	}

	out := &LayerStack{
		refs:       1,
		layers:     newLayerVec(),
		width:      newWidth,
		height:     newHeight,
		Background: ls.Background,
	}
	for _, l := range ls.layers.items {
		out.layers.items = append(out.layers.items, l.Resized(top, right, bottom, left))
	}
	for _, a := range ls.Annotations {
		out.Annotations = append(out.Annotations, a.offset(left, top))
	}
	return out, true
}

// Annotation is a rectangular text/placeholder overlay, independent of the
// layer stack's pixels.
type Annotation struct {
	ID         int32
	Bounds     Rectangle
	Text       string
	Background Color
	Protect    bool
	ValignMode uint8
}

func (a *Annotation) offset(dx, dy int32) *Annotation {
	cp := *a
	cp.Bounds = a.Bounds.Offset(dx, dy)
	return &cp
}
