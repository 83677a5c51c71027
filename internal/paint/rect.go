package paint

// Rectangle is an axis-aligned integer rectangle, width/height always positive.
type Rectangle struct {
	X, Y, W, H int32
}

// NewRectangle builds a rectangle. w and h must be positive.
func NewRectangle(x, y, w, h int32) Rectangle {
	if w <= 0 || h <= 0 {
		panic("paint: non-positive rectangle dimensions")
	}
	return Rectangle{X: x, Y: y, W: w, H: h}
}

// TileRect returns the pixel rectangle of tile (x,y) for the given tile size.
func TileRect(x, y, size int32) Rectangle {
	if size <= 0 {
		panic("paint: non-positive tile size")
	}
	return Rectangle{X: x * size, Y: y * size, W: size, H: size}
}

// Right returns the inclusive right edge.
func (r Rectangle) Right() int32 { return r.X + r.W - 1 }

// Bottom returns the inclusive bottom edge.
func (r Rectangle) Bottom() int32 { return r.Y + r.H - 1 }

// Offset translates the rectangle by (dx,dy).
func (r Rectangle) Offset(dx, dy int32) Rectangle {
	return Rectangle{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Intersected returns the overlap of r and other, or ok=false if they don't
// overlap.
func (r Rectangle) Intersected(other Rectangle) (Rectangle, bool) {
	leftX := max32(r.X, other.X)
	rightX := min32(r.X+r.W, other.X+other.W)
	topY := max32(r.Y, other.Y)
	btmY := min32(r.Y+r.H, other.Y+other.H)

	if leftX < rightX && topY < btmY {
		return NewRectangle(leftX, topY, rightX-leftX, btmY-topY), true
	}
	return Rectangle{}, false
}

// Union returns the bounding rectangle of r and other.
func (r Rectangle) Union(other Rectangle) Rectangle {
	x0 := min32(r.X, other.X)
	y0 := min32(r.Y, other.Y)
	x1 := max32(r.Right(), other.Right())
	y1 := max32(r.Bottom(), other.Bottom())
	return Rectangle{X: x0, Y: y0, W: x1 - x0 + 1, H: y1 - y0 + 1}
}

// Cropped intersects r with a (0,0,w,h) canvas rectangle.
func (r Rectangle) Cropped(w, h int32) (Rectangle, bool) {
	if w <= 0 || h <= 0 {
		panic("paint: non-positive crop dimensions")
	}
	return r.Intersected(NewRectangle(0, 0, w, h))
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
