// Package paint implements the tiled, copy-on-write raster layer model: pixels,
// colors, rectangles, blend modes, tiles, layers, layer stacks, brush masks and
// the high-level edit operations that drive them.
package paint

// Pixel is a premultiplied ARGB pixel packed into a single word, channel order
// 0xAARRGGBB. This mirrors the four-byte [A,R,G,B] layout used on the wire and
// in tile storage, generalized to a single comparable value.
type Pixel uint32

const (
	// ZeroPixel is the fully transparent premultiplied pixel.
	ZeroPixel Pixel = 0
	// WhitePixel is opaque white, premultiplied.
	WhitePixel Pixel = 0xffffffff
)

// A returns the alpha channel, 0-255.
func (p Pixel) A() uint8 { return uint8(p >> 24) }

// R returns the (premultiplied) red channel, 0-255.
func (p Pixel) R() uint8 { return uint8(p >> 16) }

// G returns the (premultiplied) green channel, 0-255.
func (p Pixel) G() uint8 { return uint8(p >> 8) }

// B returns the (premultiplied) blue channel, 0-255.
func (p Pixel) B() uint8 { return uint8(p) }

// NewPixel packs premultiplied channels into a Pixel.
func NewPixel(a, r, g, b uint8) Pixel {
	return Pixel(a)<<24 | Pixel(r)<<16 | Pixel(g)<<8 | Pixel(b)
}

// Color is a non-premultiplied RGBA color with float32 channels in [0,1].
type Color struct {
	R, G, B, A float32
}

// Transparent is fully transparent black.
var Transparent = Color{}

// RGB8 builds an opaque color from 8-bit channels.
func RGB8(r, g, b uint8) Color {
	return Color{R: float32(r) / 255, G: float32(g) / 255, B: float32(b) / 255, A: 1}
}

// ColorFromARGB32 unpacks a non-premultiplied, big-endian-style 0xAARRGGBB
// value as used on the wire (FillRect/CanvasBackground color fields, etc).
func ColorFromARGB32(c uint32) Color {
	return Color{
		R: float32((c>>16)&0xff) / 255,
		G: float32((c>>8)&0xff) / 255,
		B: float32(c&0xff) / 255,
		A: float32((c>>24)&0xff) / 255,
	}
}

// AsARGB32 packs the color into a non-premultiplied 0xAARRGGBB value.
func (c Color) AsARGB32() uint32 {
	return uint32(c.A*255)<<24 | uint32(c.R*255)<<16 | uint32(c.G*255)<<8 | uint32(c.B*255)
}

// ColorFromPixel recovers a non-premultiplied Color from a premultiplied Pixel.
func ColorFromPixel(p Pixel) Color {
	a := p.A()
	if a == 0 {
		return Transparent
	}
	af := 1.0 / float32(a)
	return Color{
		R: float32(p.R()) * af,
		G: float32(p.G()) * af,
		B: float32(p.B()) * af,
		A: float32(a) / 255,
	}
}

// AsPixel premultiplies the color into a Pixel.
func (c Color) AsPixel() Pixel {
	af := c.A * 255
	return NewPixel(uint8(c.A*255), uint8(c.R*af), uint8(c.G*af), uint8(c.B*af))
}

// Equal compares colors by their premultiplied byte representation, matching
// the reference's tolerance-free-but-byte-lossy equality.
func (c Color) Equal(other Color) bool {
	return c.AsPixel() == other.AsPixel()
}
