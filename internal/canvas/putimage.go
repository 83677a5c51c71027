package canvas

import "github.com/MeKo-Tech/stroke/internal/paint"

// compositeImage blends a row-major premultiplied ARGB pixel buffer (w*h)
// onto layer at canvas offset (x,y) using mode, tile by tile — the same
// tile-walk paint.FillRect uses, generalized from a constant color row to an
// arbitrary source image row. Backs both PutImage and MoveRegion's
// paste-back step.
func compositeImage(layer *paint.Layer, user paint.UserID, x, y, w, h int32, pixels []paint.Pixel, mode paint.Blendmode) paint.AoE {
	rect := paint.NewRectangle(x, y, w, h)
	cropped, ok := rect.Cropped(layer.Width(), layer.Height())
	if !ok {
		return paint.NothingAoE
	}

	tiStart, tiEnd := cropped.X/paint.TileSize, (cropped.X+cropped.W-1)/paint.TileSize
	tjStart, tjEnd := cropped.Y/paint.TileSize, (cropped.Y+cropped.H-1)/paint.TileSize

	for tj := tjStart; tj <= tjEnd; tj++ {
		for ti := tiStart; ti <= tiEnd; ti++ {
			tile := layer.Tile(ti, tj)
			if tile.IsBlank() && !mode.CanIncreaseOpacity() {
				continue
			}

			tileRect := paint.TileRect(ti, tj, paint.TileSize)
			visible, ok := tileRect.Intersected(cropped)
			if !ok {
				continue
			}

			mut := layer.TileMut(ti, tj)
			for row := visible.Y; row < visible.Y+visible.H; row++ {
				localY := row - tileRect.Y
				localX := visible.X - tileRect.X
				srcY := row - y
				srcX := visible.X - x
				srcRow := pixels[srcY*w+srcX : srcY*w+srcX+visible.W]
				destRow := mut.MutableRowSlice(user, localY)
				paint.PixelBlend(destRow[localX:localX+visible.W], srcRow, 255, mode)
			}
			if mode.CanDecreaseOpacity() {
				mut.MarkMaybeErased()
			}
			mut.Optimize()
		}
	}
	return paint.BoundsAoE(cropped)
}

// captureRegion reads layer's pixels within (x,y,w,h) into a fresh row-major
// buffer, out-of-bounds cells left at ZeroPixel — the "copy" half of
// MoveRegion's copy-erase-composite contract.
func captureRegion(layer *paint.Layer, x, y, w, h int32) []paint.Pixel {
	out := make([]paint.Pixel, w*h)
	for row := int32(0); row < h; row++ {
		for col := int32(0); col < w; col++ {
			px, py := x+col, y+row
			if px < 0 || py < 0 || px >= layer.Width() || py >= layer.Height() {
				continue
			}
			out[row*w+col] = layer.PixelAt(px, py)
		}
	}
	return out
}

// applyFeatherMask scales every captured pixel's premultiplied channels by
// the matching mask byte (0-255), preserving premultiplication.
func applyFeatherMask(pixels []paint.Pixel, mask []uint8) {
	for i, p := range pixels {
		m := uint32(mask[i])
		a, r, g, b := uint32(p.A()), uint32(p.R()), uint32(p.G()), uint32(p.B())
		pixels[i] = paint.NewPixel(uint8(a*m/255), uint8(r*m/255), uint8(g*m/255), uint8(b*m/255))
	}
}

func min4(a, b, c, d int32) int32 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	if d < m {
		m = d
	}
	return m
}
