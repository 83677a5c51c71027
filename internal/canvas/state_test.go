package canvas

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"

	"github.com/MeKo-Tech/stroke/internal/paint"
	"github.com/MeKo-Tech/stroke/internal/protocol"
)

// compressPayload mirrors PutImageMessage.DecompressImage's wire format: a
// 4-byte big-endian expected-length prefix followed by a zlib stream.
func compressPayload(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	out := make([]byte, 4+buf.Len())
	binary.BigEndian.PutUint32(out, uint32(len(raw)))
	copy(out[4:], buf.Bytes())
	return out, nil
}

func newTestState(t *testing.T) *CanvasState {
	t.Helper()
	s := NewCanvasState(64, 64)
	s.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.LayerCreateMessage{ID: 1, Name: "base"}})
	return s
}

func TestCanvasStateFillRect(t *testing.T) {
	s := newTestState(t)
	aoe := s.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.FillRectMessage{
		Layer: 1, X: 0, Y: 0, W: 8, H: 8, Color: 0xffff0000, Mode: uint8(paint.BlendNormal),
	}})
	if aoe.IsNothing() {
		t.Fatal("expected FillRect to report a change")
	}
	layer := s.LayerStack().GetLayer(1)
	if layer.PixelAt(0, 0) == 0 {
		t.Fatal("expected a filled pixel at (0,0)")
	}
}

func TestCanvasStateDrawDabsThenPenUpMerges(t *testing.T) {
	s := newTestState(t)
	s.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.DrawDabsClassicMessage{
		Layer: 1, X: 16, Y: 16, Color: 0x80ff0000, Mode: uint8(paint.BlendNormal),
		Dabs: []protocol.ClassicDab{{X: 0, Y: 0, Size: 32 * 4, Opacity: 255, Hardness: 200}},
	}})
	layer := s.LayerStack().GetLayer(1)
	if !layer.HasSublayer(1) {
		t.Fatal("expected an indirect dab to create a sublayer for the drawing user")
	}

	aoe := s.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.PenUpMessage{}})
	if aoe.IsNothing() {
		t.Fatal("expected PenUp to report a merge change")
	}
	if s.LayerStack().GetLayer(1).HasSublayer(1) {
		t.Fatal("expected PenUp to merge away the sublayer")
	}
}

func TestCanvasStateLayerDeleteWithMerge(t *testing.T) {
	s := newTestState(t)
	s.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.LayerCreateMessage{ID: 2, Name: "top", Flags: protocol.LayerCreateFlagsInsert, Source: 1}})
	s.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.FillRectMessage{
		Layer: 2, W: 4, H: 4, Color: 0xff00ff00, Mode: uint8(paint.BlendNormal),
	}})

	aoe := s.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.LayerDeleteMessage{ID: 2, Merge: true}})
	if aoe.IsNothing() {
		t.Fatal("expected LayerDelete to report a change")
	}
	if s.LayerStack().GetLayer(2) != nil {
		t.Fatal("expected layer 2 to be gone")
	}
	if s.LayerStack().GetLayer(1).PixelAt(0, 0) == 0 {
		t.Fatal("expected the merged-down fill to land on layer 1")
	}
}

func TestCanvasStateUndoRedo(t *testing.T) {
	s := newTestState(t)
	s.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.UndoPointMessage{}})
	s.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.FillRectMessage{
		Layer: 1, W: 4, H: 4, Color: 0xffff0000, Mode: uint8(paint.BlendNormal),
	}})

	before := s.LayerStack().GetLayer(1).PixelAt(0, 0)
	if before == 0 {
		t.Fatal("expected the fill to have applied")
	}

	aoe := s.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.UndoMessage{}})
	if aoe.IsNothing() {
		t.Fatal("expected Undo to report a change")
	}
	if s.LayerStack().GetLayer(1).PixelAt(0, 0) == before {
		t.Fatal("expected Undo to roll back the fill")
	}

	aoe = s.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.UndoMessage{Redo: true}})
	if aoe.IsNothing() {
		t.Fatal("expected Redo to report a change")
	}
	if s.LayerStack().GetLayer(1).PixelAt(0, 0) != before {
		t.Fatal("expected Redo to reapply the fill")
	}
}

func TestCanvasStateResize(t *testing.T) {
	s := newTestState(t)
	aoe := s.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.CanvasResizeMessage{Top: 8, Right: 8, Bottom: 8, Left: 8}})
	if aoe.IsNothing() {
		t.Fatal("expected CanvasResize to report a change")
	}
	if s.LayerStack().Width() != 80 || s.LayerStack().Height() != 80 {
		t.Fatalf("unexpected resized dimensions %dx%d", s.LayerStack().Width(), s.LayerStack().Height())
	}
}

func TestCanvasStatePutTileRepeat(t *testing.T) {
	// Three tiles wide, so Col 0 with Repeat 2 covers tiles (0..2, 0).
	s := NewCanvasState(3*paint.TileSize, paint.TileSize)
	s.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.LayerCreateMessage{ID: 1, Name: "base"}})
	img := make([]byte, 4)
	binary.BigEndian.PutUint32(img, 0xffff0000)

	aoe := s.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.PutTileMessage{
		Layer: 1, Col: 0, Row: 0, Repeat: 2, Image: img,
	}})
	if aoe.IsNothing() {
		t.Fatal("expected PutTile to report a change")
	}
	layer := s.LayerStack().GetLayer(1)
	for i := int32(0); i <= 2; i++ {
		if layer.Tile(i, 0).IsBlank() {
			t.Fatalf("expected tile (%d,0) to be filled by the repeated PutTile", i)
		}
	}
}

func TestCanvasStatePutImage(t *testing.T) {
	s := newTestState(t)
	pixels := make([]byte, 4*4*4)
	for i := 0; i < 16; i++ {
		binary.BigEndian.PutUint32(pixels[i*4:], 0xff0000ff)
	}
	img, err := compressPayload(pixels)
	if err != nil {
		t.Fatal(err)
	}

	aoe := s.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.PutImageMessage{
		Layer: 1, Mode: uint8(paint.BlendNormal), X: 2, Y: 2, W: 4, H: 4, Image: img,
	}})
	if aoe.IsNothing() {
		t.Fatal("expected PutImage to report a change")
	}
	if s.LayerStack().GetLayer(1).PixelAt(2, 2) == 0 {
		t.Fatal("expected a pasted pixel at (2,2)")
	}
}

func TestCanvasStateMoveRegion(t *testing.T) {
	s := newTestState(t)
	s.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.FillRectMessage{
		Layer: 1, X: 0, Y: 0, W: 4, H: 4, Color: 0xff00ff00, Mode: uint8(paint.BlendNormal),
	}})

	aoe := s.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.MoveRegionMessage{
		Layer: 1, Bx: 0, By: 0, Bw: 4, Bh: 4,
		X1: 10, Y1: 10, X2: 14, Y2: 10, X3: 14, Y3: 14, X4: 10, Y4: 14,
	}})
	if aoe.IsNothing() {
		t.Fatal("expected MoveRegion to report a change")
	}
	if s.LayerStack().GetLayer(1).PixelAt(10, 10) == 0 {
		t.Fatal("expected the moved region to land at its destination")
	}
}
