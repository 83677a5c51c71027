package paint

import "testing"

func TestAlphaPixelBlend(t *testing.T) {
	base := []Pixel{0xff_ff0000}
	over := []Pixel{0x80_008000}

	PixelBlend(base, over, 0xff, BlendNormal)
	if base[0] != 0xff7f8000 {
		t.Fatalf("got %#x, want %#x", uint32(base[0]), uint32(0xff7f8000))
	}

	base = []Pixel{0xff_ff0000}
	PixelBlend(base, over, 0x80, BlendNormal)
	if base[0] != 0xffbf4000 {
		t.Fatalf("got %#x, want %#x", uint32(base[0]), uint32(0xffbf4000))
	}
}

func TestAlphaMaskBlend(t *testing.T) {
	base := []Pixel{0xff_ff0000, 0xff_ff0000, 0xff_ff0000}
	mask := []uint8{0xff, 0x80, 0x40}

	MaskBlend(base, Pixel(0x0000ff00), mask, BlendNormal)
	want := []Pixel{0xff_00ff00, 0xff_7f8000, 0xff_bf4000}
	for i := range base {
		if base[i] != want[i] {
			t.Fatalf("pixel %d: got %#x, want %#x", i, uint32(base[i]), uint32(want[i]))
		}
	}
}

func TestAlphaPixelErase(t *testing.T) {
	base := []Pixel{0xff_ffffff, 0xff_ffffff, 0xff_ffffff}
	over := []Pixel{0xff_123456, 0x80_123456, 0x00_123456}

	PixelBlend(base, over, 0xff, BlendErase)
	want := []Pixel{0x00_000000, 0x7f_7f7f7f, 0xff_ffffff}
	for i := range base {
		if base[i] != want[i] {
			t.Fatalf("pixel %d: got %#x, want %#x", i, uint32(base[i]), uint32(want[i]))
		}
	}
}

func TestAlphaMaskErase(t *testing.T) {
	base := []Pixel{0xff_ffffff, 0xff_ffffff, 0xff_ffffff}
	mask := []uint8{0xff, 0x80, 0x00}

	MaskBlend(base, 0, mask, BlendErase)
	want := []Pixel{0x00_000000, 0x7f_7f7f7f, 0xff_ffffff}
	for i := range base {
		if base[i] != want[i] {
			t.Fatalf("pixel %d: got %#x, want %#x", i, uint32(base[i]), uint32(want[i]))
		}
	}
}

func TestBlendmodeOpacityClassification(t *testing.T) {
	cases := []struct {
		mode       Blendmode
		canInc     bool
		canDec     bool
	}{
		{BlendErase, false, true},
		{BlendNormal, true, false},
		{BlendMultiply, false, false},
		{BlendRecolor, true, false},
		{BlendBehind, true, false},
		{BlendColorErase, false, true},
		{BlendReplace, true, true},
	}
	for _, c := range cases {
		if got := c.mode.CanIncreaseOpacity(); got != c.canInc {
			t.Errorf("mode %v CanIncreaseOpacity() = %v, want %v", c.mode, got, c.canInc)
		}
		if got := c.mode.CanDecreaseOpacity(); got != c.canDec {
			t.Errorf("mode %v CanDecreaseOpacity() = %v, want %v", c.mode, got, c.canDec)
		}
	}
}
