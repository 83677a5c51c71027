package paint

import "math"

// lutRadius is the lookup table domain size used by the GIMP-style soft
// brush generator.
const lutRadius = 128.0

// BrushMask is a square diameter x diameter coverage mask, row-major, each
// value 0-255 = coverage x opacity.
type BrushMask struct {
	Diameter uint32
	Mask     []uint8
}

// ClassicBrushCache memoizes the hardness-parameterized LUT used by the
// GIMP-style brush generator. Not safe for concurrent use from multiple
// goroutines without external locking, matching the reference's
// process-lifetime, single-threaded cache.
type ClassicBrushCache struct {
	lut [101][]float32
}

// NewClassicBrushCache returns an empty, lazily-populated cache.
func NewClassicBrushCache() *ClassicBrushCache {
	return &ClassicBrushCache{}
}

func (c *ClassicBrushCache) getCachedLUT(hardness float32) []float32 {
	h := int(hardness * 100)
	if c.lut[h] == nil {
		c.lut[h] = makeGimpStyleBrushLUT(hardness)
	}
	return c.lut[h]
}

func square(v float32) float32 { return v * v }

// NewRoundPixelMask builds a hard-edged round dab of the given diameter.
func NewRoundPixelMask(diameter uint32, opacity float32) BrushMask {
	radius := float32(diameter) / 2
	rr := square(radius)
	const offset = 0.5

	mask := make([]uint8, diameter*diameter)
	opU8 := uint8(opacity * 255)

	i := 0
	for y := uint32(0); y < diameter; y++ {
		yy := square(float32(y) - radius + offset)
		for x := uint32(0); x < diameter; x++ {
			xx := square(float32(x) - radius + offset)
			if yy+xx < rr {
				mask[i] = opU8
			}
			i++
		}
	}
	return BrushMask{Diameter: diameter, Mask: mask}
}

// NewSquarePixelMask builds a uniform square dab of the given diameter.
func NewSquarePixelMask(diameter uint32, opacity float32) BrushMask {
	mask := make([]uint8, diameter*diameter)
	v := uint8(opacity * 255)
	for i := range mask {
		mask[i] = v
	}
	return BrushMask{Diameter: diameter, Mask: mask}
}

// NewGimpStyleMask produces a subpixel-resolution soft brush dab. It returns
// the integer top-left canvas coordinate to stamp the mask at, and the mask
// itself (already bilinearly offset to reproduce the fractional position of
// (x,y)).
//
// Diameters below 16 use the highres (2x2 subsampled) path; larger diameters
// use the single-sample lowres path with empirical fudge factors. This
// mirrors a known rough edge in the reference generator: negative fractional
// coordinates are handled via floor-based truncation that is not quite
// correct, preserved here rather than fixed since fixing it would be a wire
// protocol change (see the Open Questions in the design notes).
func NewGimpStyleMask(x, y, diameter, hardness, opacity float32, cache *ClassicBrushCache) (int32, int32, BrushMask) {
	var offset float32
	var mask BrushMask
	if diameter < 16 {
		offset, mask = newGimpStyleHighres(diameter/2, hardness, opacity, cache)
	} else {
		offset, mask = newGimpStyleLowres(diameter/2, hardness, opacity, cache)
	}

	fx := float32(math.Floor(float64(x)))
	fy := float32(math.Floor(float64(y)))

	xfrac := x - fx
	yfrac := y - fy

	var ix, iy int32
	if xfrac < 0.5 {
		xfrac += 0.5
		ix = int32(fx - 1 - offset)
	} else {
		xfrac -= 0.5
		ix = int32(fx - offset)
	}

	if yfrac < 0.5 {
		yfrac += 0.5
		iy = int32(fy - 1 - offset)
	} else {
		yfrac -= 0.5
		iy = int32(fy - offset)
	}

	return ix, iy, mask.offsetBy(xfrac, yfrac)
}

func newGimpStyleHighres(radius, hardness, opacity float32, cache *ClassicBrushCache) (float32, BrushMask) {
	op := opacity * (255.0 / 4.0)
	diameter := uint32(math.Ceil(float64(radius*2))) + 2
	offset := (float32(math.Ceil(float64(radius))) - radius) / -2.0

	if diameter%2 == 0 {
		diameter++
		offset -= 2.5
	} else {
		offset -= 1.5
	}

	r2 := radius * 2
	lut := cache.getCachedLUT(hardness)
	lutScale := square((lutRadius - 1) / r2)

	mask := make([]uint8, diameter*diameter)
	i := 0
	for y := uint32(0); y < diameter; y++ {
		yy0 := square(float32(y)*2 - r2 + offset)
		yy1 := square(float32(y)*2 + 1 - r2 + offset)

		for x := uint32(0); x < diameter; x++ {
			xx0 := square(float32(x)*2 - r2 + offset)
			xx1 := square(float32(x)*2 + 1 - r2 + offset)

			dist0 := int((xx0 + yy0) * lutScale)
			dist1 := int((xx0 + yy1) * lutScale)
			dist2 := int((xx1 + yy0) * lutScale)
			dist3 := int((xx1 + yy1) * lutScale)

			var sum uint8
			sum += lutSample(lut, dist0, op)
			sum += lutSample(lut, dist1, op)
			sum += lutSample(lut, dist2, op)
			sum += lutSample(lut, dist3, op)
			mask[i] = sum
			i++
		}
	}
	return float32(diameter) / 2, BrushMask{Diameter: diameter, Mask: mask}
}

func newGimpStyleLowres(radius, hardness, opacity float32, cache *ClassicBrushCache) (float32, BrushMask) {
	op := opacity * 255

	lut := cache.getCachedLUT(hardness)
	lutScale := square((lutRadius - 1) / radius)
	var offset float32
	fudge := float32(1.0)
	diameter := int32(math.Ceil(float64(radius*2))+2)
	if diameter%2 == 0 {
		diameter++
		offset = -1.0
		if radius < 8 {
			fudge = 0.9
		}
	} else {
		offset = -0.5
	}

	if radius < 4 {
		fudge = 0.8
	}

	mask := make([]uint8, diameter*diameter)
	i := 0
	for y := int32(0); y < diameter; y++ {
		yy := square(float32(y) - radius + offset)
		for x := int32(0); x < diameter; x++ {
			xx := square(float32(x) - radius + offset)
			dist := int((xx + yy) * fudge * lutScale)
			mask[i] = lutSample(lut, dist, op)
			i++
		}
	}
	return float32(diameter) / 2, BrushMask{Diameter: uint32(diameter), Mask: mask}
}

func lutSample(lut []float32, index int, op float32) uint8 {
	if index < 0 || index >= len(lut) {
		return 0
	}
	return uint8(lut[index] * op)
}

// offsetBy bilinearly shifts the mask by a subpixel (x,y) offset in [0,1],
// growing it by one row/column on the leading edge.
func (m BrushMask) offsetBy(x, y float32) BrushMask {
	kernel := [4]float32{x * y, (1 - x) * y, x * (1 - y), (1 - x) * (1 - y)}
	dia := int(m.Diameter)
	newmask := make([]uint8, dia*dia)

	newmask[0] = uint8(float32(m.Mask[0]) * kernel[3])
	i := 1
	for x := 0; x < dia-1; x++ {
		newmask[i] = uint8(float32(m.Mask[x])*kernel[2] + float32(m.Mask[x+1])*kernel[3])
		i++
	}
	for y := 0; y < dia-1; y++ {
		yd := y * dia
		newmask[i] = uint8(float32(m.Mask[yd])*kernel[1] + float32(m.Mask[yd+dia])*kernel[3])
		i++
		for x := 0; x < dia-1; x++ {
			newmask[i] = uint8(float32(m.Mask[yd+x])*kernel[0] +
				float32(m.Mask[yd+x+1])*kernel[1] +
				float32(m.Mask[yd+dia+x])*kernel[2] +
				float32(m.Mask[yd+dia+x+1])*kernel[3])
			i++
		}
	}
	return BrushMask{Diameter: m.Diameter, Mask: newmask}
}

// makeGimpStyleBrushLUT builds the hardness-parameterized falloff curve:
// LUT[i] = 1 - (sqrt(i)/128)^k, k = 0.4/(1-hardness).
func makeGimpStyleBrushLUT(hardness float32) []float32 {
	var exponent float32
	if (1 - hardness) < 0.0000004 {
		exponent = 1_000_000.0
	} else {
		exponent = 0.4 / (1 - hardness)
	}

	size := int(lutRadius * lutRadius)
	lut := make([]float32, size)
	for i := range lut {
		lut[i] = 1 - float32(math.Pow(math.Sqrt(float64(i))/lutRadius, float64(exponent)))
	}
	return lut
}
