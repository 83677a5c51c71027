package canvas

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/MeKo-Tech/stroke/internal/paint"
)

// tileByteLength is the wire size of one decompressed tile: TileSize*TileSize
// premultiplied ARGB pixels, 4 bytes each.
const tileByteLength = paint.TileSize * paint.TileSize * 4

// DecompressTile turns a PutTile/CanvasBackground image payload into a Tile.
// A 4-byte payload is the fast path: a solid color repeated across the whole
// tile, skipping zlib entirely. Anything else is a 4-byte big-endian
// expected-length prefix followed by a zlib stream of exactly that many
// premultiplied-ARGB bytes. Malformed input reports ok=false; the caller
// (CanvasState's message handlers) logs and drops the message rather than
// treating it as fatal.
func DecompressTile(data []byte, user paint.UserID) (paint.Tile, bool) {
	if len(data) == 4 {
		argb := binary.BigEndian.Uint32(data)
		return paint.NewTile(paint.ColorFromARGB32(argb), user), true
	}
	if len(data) < 4 {
		return paint.Tile{}, false
	}
	expected := binary.BigEndian.Uint32(data)
	if expected != tileByteLength {
		return paint.Tile{}, false
	}
	r, err := zlib.NewReader(bytes.NewReader(data[4:]))
	if err != nil {
		return paint.Tile{}, false
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil || len(raw) != tileByteLength {
		return paint.Tile{}, false
	}
	pixels := make([]paint.Pixel, paint.TileSize*paint.TileSize)
	for i := range pixels {
		pixels[i] = paint.Pixel(binary.BigEndian.Uint32(raw[i*4:]))
	}
	return paint.FromTileData(pixels, user), true
}

// CompressTile is the reverse of DecompressTile, used by tests and by
// snapshot export paths that need to re-serialize a tile. It always takes
// the general zlib path, never the 4-byte solid-color shortcut, so its
// output round-trips through DecompressTile byte-identically when read back.
func CompressTile(t paint.Tile) ([]byte, error) {
	raw := make([]byte, tileByteLength)
	for y := int32(0); y < paint.TileSize; y++ {
		row := t.RowSlice(y)
		for x, p := range row {
			binary.BigEndian.PutUint32(raw[(int(y)*paint.TileSize+x)*4:], uint32(p))
		}
	}
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	out := make([]byte, 4+buf.Len())
	binary.BigEndian.PutUint32(out, tileByteLength)
	copy(out[4:], buf.Bytes())
	return out, nil
}
