package paint

// FillRect blends color onto rect (cropped to the layer's bounds) using mode,
// returning the affected AoE. Tiles that are still Blank and whose mode can't
// increase opacity are left untouched entirely, which the reference's own
// fill_rect leaves as an unimplemented optimization (its TODO comment never
// landed) — this port implements it, since leaving Blank tiles untouched is
// required for the no-op-on-transparent-ops contract.
func FillRect(l *Layer, user UserID, color Color, mode Blendmode, rect Rectangle) AoE {
	cropped, ok := rect.Cropped(l.width, l.height)
	if !ok {
		return NothingAoE
	}

	row := make([]Pixel, cropped.W)
	p := color.AsPixel()
	for i := range row {
		row[i] = p
	}
	opacity := uint8(255)

	tiStart, tiEnd := cropped.X/TileSize, (cropped.X+cropped.W-1)/TileSize
	tjStart, tjEnd := cropped.Y/TileSize, (cropped.Y+cropped.H-1)/TileSize

	for tj := tjStart; tj <= tjEnd; tj++ {
		for ti := tiStart; ti <= tiEnd; ti++ {
			tile := l.Tile(ti, tj)
			if tile.IsBlank() && !mode.CanIncreaseOpacity() {
				continue
			}

			tileRect := TileRect(ti, tj, TileSize)
			visible, ok := tileRect.Intersected(cropped)
			if !ok {
				continue
			}

			mut := l.TileMut(ti, tj)
			for y := visible.Y; y < visible.Y+visible.H; y++ {
				localY := y - tileRect.Y
				localX := visible.X - tileRect.X
				destRow := mut.MutableRowSlice(user, localY)
				PixelBlend(destRow[localX:localX+visible.W], row[:visible.W], opacity, mode)
			}
			if mode.CanDecreaseOpacity() {
				mut.MarkMaybeErased()
			}
		}
	}
	optimizeTiles(l, tiStart, tiEnd, tjStart, tjEnd)
	return BoundsAoE(cropped)
}

// DrawBrushDab stamps mask at canvas coordinates (x,y) (mask's top-left
// corner) with color/mode, returning the affected AoE. Tiles that are still
// Blank and whose mode can't increase opacity are skipped — see FillRect.
func DrawBrushDab(l *Layer, user UserID, x, y int32, mask BrushMask, color Color, mode Blendmode) AoE {
	dabRect := NewRectangle(x, y, int32(mask.Diameter), int32(mask.Diameter))
	cropped, ok := dabRect.Cropped(l.width, l.height)
	if !ok {
		return NothingAoE
	}

	tiStart, tiEnd := cropped.X/TileSize, (cropped.X+cropped.W-1)/TileSize
	tjStart, tjEnd := cropped.Y/TileSize, (cropped.Y+cropped.H-1)/TileSize

	for tj := tjStart; tj <= tjEnd; tj++ {
		for ti := tiStart; ti <= tiEnd; ti++ {
			tile := l.Tile(ti, tj)
			if tile.IsBlank() && !mode.CanIncreaseOpacity() {
				continue
			}

			tileRect := TileRect(ti, tj, TileSize)
			visible, ok := tileRect.Intersected(cropped)
			if !ok {
				continue
			}

			mut := l.TileMut(ti, tj)
			maskX := visible.X - dabRect.X
			for row := visible.Y; row < visible.Y+visible.H; row++ {
				localY := row - tileRect.Y
				localX := visible.X - tileRect.X
				maskY := row - dabRect.Y
				maskOff := maskY*int32(mask.Diameter) + maskX
				maskRow := mask.Mask[maskOff : maskOff+visible.W]
				destRow := mut.MutableRowSlice(user, localY)
				MaskBlend(destRow[localX:localX+visible.W], color.AsPixel(), maskRow, mode)
			}
			if mode.CanDecreaseOpacity() {
				mut.MarkMaybeErased()
			}
		}
	}
	optimizeTiles(l, tiStart, tiEnd, tjStart, tjEnd)
	return BoundsAoE(cropped)
}

// PutTile installs a full tile at the single tile-grid coordinate (i,j);
// coordinates outside the layer are ignored. Callers that repeat a tile call
// it once per cell. Returns the affected AoE.
func PutTile(l *Layer, i, j int32, tile Tile) AoE {
	if i < 0 || j < 0 || i >= l.xtiles() || j >= DivUp(l.height) {
		return NothingAoE
	}
	*l.TileMut(i, j) = tile
	return BoundsAoE(TileRect(i, j, TileSize))
}

// Merge composites source onto target using source's own opacity/blendmode,
// returning the set of tiles source actually touched. The reference's merge
// returns a blanket Everything AoE whenever source is visible; this instead
// returns source's own nonblank tilemap, which is the tighter, more useful
// change-set the calling pen-up/undo machinery actually wants.
func Merge(target, source *Layer) AoE {
	if target.width != source.width || target.height != source.height {
		panic("paint: merge requires equally sized layers")
	}
	if !source.IsVisible() {
		return NothingAoE
	}

	xt, yt := target.xtiles(), DivUp(target.height)
	for j := int32(0); j < yt; j++ {
		for i := int32(0); i < xt; i++ {
			st := source.Tile(i, j)
			if st.IsBlank() {
				continue
			}
			dt := target.TileMut(i, j)
			dt.Merge(st, source.Opacity, source.Blendmode)
		}
	}
	return TileMapAoE(source.NonblankTilemap())
}

// MergeSublayer takes the indirect-stroke sublayer with the given id (created
// lazily by DrawBrushDab calls routed through a user's sublayer) and merges
// it down into the layer, discarding the sublayer afterwards. A no-op if no
// such sublayer exists.
func MergeSublayer(l *Layer, id LayerID) AoE {
	sl := l.TakeSublayer(id)
	if sl == nil {
		return NothingAoE
	}
	return Merge(l, sl)
}

// RemoveSublayer discards the indirect-stroke sublayer with the given id
// without merging it, used when a stroke is cancelled.
func RemoveSublayer(l *Layer, id LayerID) {
	l.TakeSublayer(id)
}

// ChangeAttributes updates a layer's opacity/blendmode/flags in place.
func ChangeAttributes(l *Layer, opacity float32, blendmode Blendmode, censored, fixed bool) AoE {
	l.Opacity = opacity
	l.Blendmode = blendmode
	l.Censored = censored
	l.Fixed = fixed
	return EverythingAoE
}

func optimizeTiles(l *Layer, tiStart, tiEnd, tjStart, tjEnd int32) {
	for tj := tjStart; tj <= tjEnd; tj++ {
		for ti := tiStart; ti <= tiEnd; ti++ {
			l.TileMut(ti, tj).Optimize()
		}
	}
}
