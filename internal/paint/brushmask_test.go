package paint

import (
	"reflect"
	"testing"
)

func TestRoundPixelMask(t *testing.T) {
	mask := NewRoundPixelMask(4, 1.0/255.0)
	want := []uint8{0, 1, 1, 0, 1, 1, 1, 1, 1, 1, 1, 1, 0, 1, 1, 0}
	if !reflect.DeepEqual(mask.Mask, want) {
		t.Fatalf("got %v, want %v", mask.Mask, want)
	}
}

func TestSquarePixelMask(t *testing.T) {
	mask := NewSquarePixelMask(2, 1.0/255.0)
	want := []uint8{1, 1, 1, 1}
	if !reflect.DeepEqual(mask.Mask, want) {
		t.Fatalf("got %v, want %v", mask.Mask, want)
	}
}

func TestGimpStyleMaskProducesNonEmptyMask(t *testing.T) {
	cache := NewClassicBrushCache()
	_, _, mask := NewGimpStyleMask(10.3, 10.7, 8, 0.5, 1.0, cache)
	if len(mask.Mask) == 0 {
		t.Fatal("expected a populated mask")
	}
	var sum int
	for _, v := range mask.Mask {
		sum += int(v)
	}
	if sum == 0 {
		t.Fatal("expected some nonzero coverage near the dab center")
	}
}

func TestGimpStyleMaskLowresPath(t *testing.T) {
	cache := NewClassicBrushCache()
	_, _, mask := NewGimpStyleMask(100.0, 100.0, 40, 0.8, 1.0, cache)
	if mask.Diameter == 0 {
		t.Fatal("expected a nonzero diameter mask from the lowres path")
	}
}
