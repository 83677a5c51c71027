package canvas

import (
	"testing"

	"github.com/MeKo-Tech/stroke/internal/paint"
)

func TestDecompressTileSolidFastPath(t *testing.T) {
	data := []byte{0xff, 0x10, 0x20, 0x30}
	tile, ok := DecompressTile(data, 1)
	if !ok {
		t.Fatal("expected solid-color fast path to succeed")
	}
	if tile.IsBlank() {
		t.Fatal("a fully opaque solid tile should not report blank")
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	tile := paint.NewTile(paint.RGB8(10, 20, 30), 1)
	data, err := CompressTile(tile)
	if err != nil {
		t.Fatalf("CompressTile: %v", err)
	}
	got, ok := DecompressTile(data, 1)
	if !ok {
		t.Fatal("expected DecompressTile to succeed on CompressTile's output")
	}
	if got.PixelAt(0, 0) != tile.PixelAt(0, 0) {
		t.Fatalf("round-tripped pixel = %#x, want %#x", got.PixelAt(0, 0), tile.PixelAt(0, 0))
	}
}

func TestDecompressTileRejectsMalformedInput(t *testing.T) {
	if _, ok := DecompressTile([]byte{1, 2, 3}, 1); ok {
		t.Fatal("expected a too-short non-solid payload to be rejected")
	}
	if _, ok := DecompressTile([]byte{0, 0, 0, 1, 0xde, 0xad}, 1); ok {
		t.Fatal("expected a bad length-prefix to be rejected")
	}
}
