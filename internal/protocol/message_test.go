package protocol

import (
	"bytes"
	"reflect"
	"testing"
)

func TestBinaryRoundTrip(t *testing.T) {
	cases := []Payload{
		&DisconnectMessage{Reason: 3, Message: "kicked"},
		&JoinMessage{Flags: JoinFlagsAuth | JoinFlagsMod, Name: "XYZ"},
		&ChatMessage{Flags: ChatFlagsShout, Message: "hello"},
		&CanvasResizeMessage{Top: 1, Right: 2, Bottom: 3, Left: 4},
		&LayerCreateMessage{ID: 1, Source: 0, Fill: 0xffff0000, Flags: LayerCreateFlagsInsert, Name: "Layer 1"},
		&LayerAttributesMessage{ID: 1, Opacity: 128, Blend: 1, Flags: LayerAttrFlagsCensor},
		&FillRectMessage{Layer: 1, Mode: 1, X: 1, Y: 1, W: 198, H: 198, Color: 0xffff0000},
		&UndoMessage{OverrideUser: 7, Redo: true},
		&UndoPointMessage{},
		&PenUpMessage{},
	}

	for _, want := range cases {
		payload, err := want.MarshalBinary()
		if err != nil {
			t.Fatalf("%T: marshal: %v", want, err)
		}
		var buf bytes.Buffer
		if err := WriteMessage(&buf, Message{UserID: 9, Payload: want}); err != nil {
			t.Fatalf("%T: WriteMessage: %v", want, err)
		}
		got, err := ReadMessage(&buf)
		if err != nil {
			t.Fatalf("%T: ReadMessage: %v", want, err)
		}
		if got.UserID != 9 {
			t.Fatalf("%T: user id = %d, want 9", want, got.UserID)
		}
		if !reflect.DeepEqual(got.Payload, want) {
			t.Fatalf("%T: round trip mismatch: got %+v want %+v (payload bytes %v)", want, got.Payload, want, payload)
		}
	}
}

func TestFillRectFixedPayloadLength(t *testing.T) {
	m := &FillRectMessage{Layer: 1, Mode: 1, X: 1, Y: 1, W: 198, H: 198, Color: 0xffff0000}
	payload, err := m.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if len(payload) != 23 {
		t.Fatalf("FillRectMessage payload length = %d, want 23", len(payload))
	}
}

func TestMessageCategorization(t *testing.T) {
	cases := []struct {
		t    Type
		want Category
	}{
		{TypeDisconnect, CategoryControl},
		{TypeJoin, CategoryServerMeta},
		{TypeMovePointer, CategoryClientMeta},
		{TypeFillRect, CategoryCommand},
		{TypeUndoPoint, CategoryCommand},
	}
	for _, c := range cases {
		if got := CategoryOf(c.t); got != c.want {
			t.Errorf("CategoryOf(%d) = %v, want %v", c.t, got, c.want)
		}
	}
}

func TestTextRoundTrip(t *testing.T) {
	m := &JoinMessage{Flags: JoinFlagsAuth | JoinFlagsMod, Name: "XYZ"}
	text, err := AsText(m)
	if err != nil {
		t.Fatal(err)
	}
	want := "join flags=auth,mod name=XYZ"
	if text != want {
		t.Fatalf("AsText = %q, want %q", text, want)
	}

	parsed, err := FromText(text)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(parsed, m) {
		t.Fatalf("FromText(%q) = %+v, want %+v", text, parsed, m)
	}
}

// TestDrawDabsClassicLiteralWireBytes decodes the literal DrawDabsClassic
// frame byte sequence and checks it round-trips to the same bytes: a type
// byte of 0x94 (148) must land on DrawDabsClassic, not on whatever used to
// sit at the old (wrong) numbering.
func TestDrawDabsClassicLiteralWireBytes(t *testing.T) {
	raw := []byte{
		0x00, 0x15, 0x94, 0x01,
		0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x02,
		0x00, 0x00, 0x00, 0x00, 0x01,
		0x04, 0x05, 0x01, 0x00, 0xff, 0x80,
	}

	got, err := ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if got.Payload.Type() != TypeDrawDabsClassic {
		t.Fatalf("type = %d, want TypeDrawDabsClassic (%d)", got.Payload.Type(), TypeDrawDabsClassic)
	}
	want := &DrawDabsClassicMessage{
		Layer: 1, X: 1, Y: 2, Color: 0, Mode: 1,
		Dabs: []ClassicDab{{X: 4, Y: 5, Size: 256, Opacity: 255, Hardness: 128}},
	}
	if !reflect.DeepEqual(got.Payload, want) {
		t.Fatalf("decoded = %+v, want %+v", got.Payload, want)
	}

	var buf bytes.Buffer
	if err := WriteMessage(&buf, Message{UserID: got.UserID, Payload: got.Payload}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), raw) {
		t.Fatalf("re-encoded = % x, want % x", buf.Bytes(), raw)
	}
}

// TestJoinLiteralWireBytes decodes a literal Join frame with a 1-byte
// name-length prefix. The payload's length byte here (0x0c = 12) reflects
// the actual flags+namelen+name+avatar byte count; spec.md's own worked
// example writes 0x0b for this same field layout, which is one short of
// what its own "4 + payload_len" framing formula implies — this test uses
// the arithmetically consistent length so the frame is actually decodable.
func TestJoinLiteralWireBytes(t *testing.T) {
	raw := []byte{
		0x00, 0x0c, 0x20, 0x01,
		0x03, 0x05, 'h', 'e', 'l', 'l', 'o', 'w', 'o', 'r', 'l', 'd',
	}

	got, err := ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	want := &JoinMessage{Flags: 0x03, Name: "hello", Avatar: []byte("world")}
	if !reflect.DeepEqual(got.Payload, want) {
		t.Fatalf("decoded = %+v, want %+v", got.Payload, want)
	}

	var buf bytes.Buffer
	if err := WriteMessage(&buf, Message{UserID: got.UserID, Payload: got.Payload}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), raw) {
		t.Fatalf("re-encoded = % x, want % x", buf.Bytes(), raw)
	}
}

func TestTextRoundTripCommandMessages(t *testing.T) {
	cases := []Payload{
		&CanvasResizeMessage{Top: 1, Right: 2, Bottom: 3, Left: 4},
		&LayerCreateMessage{ID: 1, Source: 2, Fill: 0xffff0000, Flags: LayerCreateFlagsCopy | LayerCreateFlagsInsert, Name: "Layer 1"},
		&LayerAttributesMessage{ID: 1, Sublayer: 7, Flags: LayerAttrFlagsCensor, Opacity: 128, Blend: 1},
		&LayerRetitleMessage{ID: 1, Title: "Background Layer"},
		&LayerOrderMessage{Order: []uint16{3, 1, 2}},
		&LayerDeleteMessage{ID: 1, Merge: true},
		&LayerVisibilityMessage{ID: 1, Visible: false},
		&PutImageMessage{Layer: 1, Mode: 1, X: 2, Y: 3, W: 4, H: 5, Image: []byte{1, 2, 3, 4}},
		&FillRectMessage{Layer: 1, Mode: 1, X: 1, Y: 1, W: 198, H: 198, Color: 0xffff0000},
		&PenUpMessage{},
		&AnnotationCreateMessage{ID: 1, X: -1, Y: 2, W: 3, H: 4},
		&AnnotationReshapeMessage{ID: 1, X: 1, Y: 2, W: 3, H: 4},
		&AnnotationEditMessage{ID: 1, Background: 0x80ffffff, Flags: 1, ValignFlag: 2, Text: "caption text"},
		&AnnotationDeleteMessage{ID: 1},
		&MoveRegionMessage{Layer: 1, Bx: 1, By: 2, Bw: 3, Bh: 4, X1: 1, Y1: 2, X2: 3, Y2: 4, X3: 5, Y3: 6, X4: 7, Y4: 8, Mask: []byte{9, 9, 9}},
		&PutTileMessage{Layer: 1, Col: 2, Row: 3, Repeat: 4, Sublayer: 5, Image: []byte{6, 7, 8}},
		&CanvasBackgroundMessage{Image: []byte{1, 2, 3, 4}},
		&DrawDabsClassicMessage{Layer: 1, X: 1, Y: 2, Color: 0, Mode: 1, Dabs: []ClassicDab{{X: 4, Y: 5, Size: 256, Opacity: 255, Hardness: 128}}},
		&DrawDabsPixelMessage{Layer: 1, X: 16, Y: 16, Color: 0xff00ff00, Mode: 1, Dabs: []PixelDab{{X: 1, Y: -1, Size: 8, Opacity: 255}}},
		&DrawDabsPixelSquareMessage{Layer: 1, X: 16, Y: 16, Color: 0xff00ff00, Mode: 1, Dabs: []PixelDab{{X: 1, Y: -1, Size: 8, Opacity: 255}}},
	}

	for _, want := range cases {
		text, err := AsText(want)
		if err != nil {
			t.Fatalf("%T: AsText: %v", want, err)
		}
		got, err := FromText(text)
		if err != nil {
			t.Fatalf("%T: FromText(%q): %v", want, text, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%T: text round trip mismatch: got %+v want %+v (text %q)", want, got, want, text)
		}
	}
}

func TestDrawDabsClassicMaxItems(t *testing.T) {
	dabs := make([]ClassicDab, MaxClassicDabs+1)
	m := &DrawDabsClassicMessage{Dabs: dabs}
	payload, _ := m.MarshalBinary()
	var got DrawDabsClassicMessage
	if err := got.UnmarshalBinary(payload); err == nil {
		t.Fatal("expected an error when dab count exceeds MAX_ITEMS")
	}
}
