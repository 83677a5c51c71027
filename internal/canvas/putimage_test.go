package canvas

import (
	"testing"

	"github.com/MeKo-Tech/stroke/internal/paint"
)

func TestCompositeImagePastesPixels(t *testing.T) {
	layer := paint.NewLayer(1, 32, 32, paint.Transparent)
	pixels := make([]paint.Pixel, 4*4)
	for i := range pixels {
		pixels[i] = paint.NewPixel(255, 255, 0, 0)
	}
	aoe := compositeImage(layer, 1, 4, 4, 4, 4, pixels, paint.BlendNormal)
	if aoe.IsNothing() {
		t.Fatal("expected compositeImage to report a change")
	}
	if layer.PixelAt(4, 4) != paint.NewPixel(255, 255, 0, 0) {
		t.Fatalf("pixel(4,4) = %#x, want opaque red", layer.PixelAt(4, 4))
	}
}

func TestCaptureRegionZerosOutOfBounds(t *testing.T) {
	layer := paint.NewLayer(1, 8, 8, paint.Transparent)
	paint.FillRect(layer, 1, paint.RGB8(0, 255, 0), paint.BlendNormal, paint.NewRectangle(0, 0, 8, 8))

	captured := captureRegion(layer, -2, -2, 4, 4)
	if captured[0] != paint.ZeroPixel {
		t.Fatalf("expected out-of-bounds pixel to be zero, got %#x", captured[0])
	}
	// (2,2) in the capture buffer corresponds to canvas (0,0), in bounds.
	if captured[2*4+2] == paint.ZeroPixel {
		t.Fatal("expected the in-bounds corner of the capture to be non-zero")
	}
}

func TestApplyFeatherMaskScalesAlpha(t *testing.T) {
	pixels := []paint.Pixel{paint.NewPixel(255, 255, 255, 255)}
	applyFeatherMask(pixels, []uint8{128})
	if pixels[0].A() == 255 {
		t.Fatal("expected the feather mask to reduce alpha")
	}
}
