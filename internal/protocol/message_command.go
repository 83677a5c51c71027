package protocol

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// CanvasResizeMessage extends or retracts the canvas by the given per-edge
// pixel deltas.
type CanvasResizeMessage struct {
	Top, Right, Bottom, Left int32
}

func (*CanvasResizeMessage) Type() Type { return TypeCanvasResize }

func (m *CanvasResizeMessage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 16)
	putInt32(buf, m.Top)
	putInt32(buf[4:], m.Right)
	putInt32(buf[8:], m.Bottom)
	putInt32(buf[12:], m.Left)
	return buf, nil
}

func (m *CanvasResizeMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 16, "CanvasResizeMessage"); err != nil {
		return err
	}
	m.Top, m.Right, m.Bottom, m.Left = getInt32(data), getInt32(data[4:]), getInt32(data[8:]), getInt32(data[12:])
	return nil
}

// LayerCreateMessage creates a new layer.
type LayerCreateMessage struct {
	ID, Source uint16
	Fill       uint32
	Flags      uint8
	Name       string
}

const (
	LayerCreateFlagsCopy   uint8 = 0x1
	LayerCreateFlagsInsert uint8 = 0x2
)

func (*LayerCreateMessage) Type() Type { return TypeLayerCreate }

func (m *LayerCreateMessage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 9+len(m.Name))
	putUint16(buf, m.ID)
	putUint16(buf[2:], m.Source)
	putUint32(buf[4:], m.Fill)
	buf[8] = m.Flags
	copy(buf[9:], m.Name)
	return buf, nil
}

func (m *LayerCreateMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 9, "LayerCreateMessage"); err != nil {
		return err
	}
	m.ID, m.Source = getUint16(data), getUint16(data[2:])
	m.Fill = getUint32(data[4:])
	m.Flags = data[8]
	m.Name = string(data[9:])
	return nil
}

// LayerAttributesMessage updates a layer's opacity/blend mode/flags.
type LayerAttributesMessage struct {
	ID       uint16
	Sublayer uint8
	Flags    uint8
	Opacity  uint8
	Blend    uint8
}

const (
	LayerAttrFlagsCensor uint8 = 0x1
	LayerAttrFlagsFixed  uint8 = 0x2
)

func (*LayerAttributesMessage) Type() Type { return TypeLayerAttributes }

func (m *LayerAttributesMessage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 6)
	putUint16(buf, m.ID)
	buf[2], buf[3], buf[4], buf[5] = m.Sublayer, m.Flags, m.Opacity, m.Blend
	return buf, nil
}

func (m *LayerAttributesMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 6, "LayerAttributesMessage"); err != nil {
		return err
	}
	m.ID = getUint16(data)
	m.Sublayer, m.Flags, m.Opacity, m.Blend = data[2], data[3], data[4], data[5]
	return nil
}

// LayerRetitleMessage renames a layer.
type LayerRetitleMessage struct {
	ID    uint16
	Title string
}

func (*LayerRetitleMessage) Type() Type { return TypeLayerRetitle }

func (m *LayerRetitleMessage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 2+len(m.Title))
	putUint16(buf, m.ID)
	copy(buf[2:], m.Title)
	return buf, nil
}

func (m *LayerRetitleMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 2, "LayerRetitleMessage"); err != nil {
		return err
	}
	m.ID = getUint16(data)
	m.Title = string(data[2:])
	return nil
}

// LayerDeleteMessage deletes a layer, optionally merging it down first.
type LayerDeleteMessage struct {
	ID    uint16
	Merge bool
}

func (*LayerDeleteMessage) Type() Type { return TypeLayerDelete }

func (m *LayerDeleteMessage) MarshalBinary() ([]byte, error) {
	merge := uint8(0)
	if m.Merge {
		merge = 1
	}
	buf := make([]byte, 3)
	putUint16(buf, m.ID)
	buf[2] = merge
	return buf, nil
}

func (m *LayerDeleteMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 3, "LayerDeleteMessage"); err != nil {
		return err
	}
	m.ID = getUint16(data)
	m.Merge = data[2] != 0
	return nil
}

// LayerVisibilityMessage toggles a layer's local-only visibility overlay —
// see canvas.CanvasState's localHidden map; this never enters a Savepoint.
type LayerVisibilityMessage struct {
	ID      uint16
	Visible bool
}

func (*LayerVisibilityMessage) Type() Type { return TypeLayerVisibility }

func (m *LayerVisibilityMessage) MarshalBinary() ([]byte, error) {
	visible := uint8(0)
	if m.Visible {
		visible = 1
	}
	buf := make([]byte, 3)
	putUint16(buf, m.ID)
	buf[2] = visible
	return buf, nil
}

func (m *LayerVisibilityMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 3, "LayerVisibilityMessage"); err != nil {
		return err
	}
	m.ID = getUint16(data)
	m.Visible = data[2] != 0
	return nil
}

// LayerOrderMessage reorders the layer stack.
type LayerOrderMessage struct {
	Order []uint16
}

func (*LayerOrderMessage) Type() Type { return TypeLayerOrder }

func (m *LayerOrderMessage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 2*len(m.Order))
	for i, id := range m.Order {
		putUint16(buf[i*2:], id)
	}
	return buf, nil
}

func (m *LayerOrderMessage) UnmarshalBinary(data []byte) error {
	if len(data)%2 != 0 {
		return fmt.Errorf("protocol: LayerOrderMessage: odd payload length %d", len(data))
	}
	m.Order = make([]uint16, len(data)/2)
	for i := range m.Order {
		m.Order[i] = getUint16(data[i*2:])
	}
	return nil
}

// PutImageMessage pastes a DEFLATE-compressed premultiplied ARGB image onto
// a layer. Image carries a 4-byte big-endian expected-decompressed-length
// prefix ahead of the zlib stream, matching PutTile/CanvasBackground.
type PutImageMessage struct {
	Layer      uint16
	Mode       uint8
	X, Y, W, H uint32
	Image      []byte
}

func (*PutImageMessage) Type() Type { return TypePutImage }

func (m *PutImageMessage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 19+len(m.Image))
	putUint16(buf, m.Layer)
	buf[2] = m.Mode
	putUint32(buf[3:], m.X)
	putUint32(buf[7:], m.Y)
	putUint32(buf[11:], m.W)
	putUint32(buf[15:], m.H)
	copy(buf[19:], m.Image)
	return buf, nil
}

func (m *PutImageMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 19, "PutImageMessage"); err != nil {
		return err
	}
	m.Layer = getUint16(data)
	m.Mode = data[2]
	m.X, m.Y, m.W, m.H = getUint32(data[3:]), getUint32(data[7:]), getUint32(data[11:]), getUint32(data[15:])
	m.Image = dup(data[19:])
	return nil
}

// DecompressImage inflates Image, validating it against its length prefix.
// Mirrors canvas.DecompressTile's failure policy: any malformed input
// returns an error rather than partial data.
func (m *PutImageMessage) DecompressImage() ([]byte, error) {
	return decompressPrefixed(m.Image)
}

func decompressPrefixed(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("protocol: compressed payload too short (%d bytes)", len(data))
	}
	expected := int(getUint32(data))
	r, err := zlib.NewReader(bytes.NewReader(data[4:]))
	if err != nil {
		return nil, fmt.Errorf("protocol: zlib init: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("protocol: zlib inflate: %w", err)
	}
	if len(out) != expected {
		return nil, fmt.Errorf("protocol: decompressed length %d != expected %d", len(out), expected)
	}
	return out, nil
}

// FillRectMessage flood-fills a rectangle with a solid color under a blend
// mode. A 23-byte fixed payload, matching the reference fixture.
type FillRectMessage struct {
	Layer      uint16
	Mode       uint8
	X, Y, W, H uint32
	Color      uint32
}

func (*FillRectMessage) Type() Type { return TypeFillRect }

func (m *FillRectMessage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 23)
	putUint16(buf, m.Layer)
	buf[2] = m.Mode
	putUint32(buf[3:], m.X)
	putUint32(buf[7:], m.Y)
	putUint32(buf[11:], m.W)
	putUint32(buf[15:], m.H)
	putUint32(buf[19:], m.Color)
	return buf, nil
}

func (m *FillRectMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 23, "FillRectMessage"); err != nil {
		return err
	}
	m.Layer = getUint16(data)
	m.Mode = data[2]
	m.X, m.Y, m.W, m.H = getUint32(data[3:]), getUint32(data[7:]), getUint32(data[11:]), getUint32(data[15:])
	m.Color = getUint32(data[19:])
	return nil
}

// AnnotationCreateMessage creates a rectangular annotation.
type AnnotationCreateMessage struct {
	ID         uint16
	X, Y, W, H int32
}

func (*AnnotationCreateMessage) Type() Type { return TypeAnnotationCreate }

func (m *AnnotationCreateMessage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 18)
	putUint16(buf, m.ID)
	putInt32(buf[2:], m.X)
	putInt32(buf[6:], m.Y)
	putInt32(buf[10:], m.W)
	putInt32(buf[14:], m.H)
	return buf, nil
}

func (m *AnnotationCreateMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 18, "AnnotationCreateMessage"); err != nil {
		return err
	}
	m.ID = getUint16(data)
	m.X, m.Y, m.W, m.H = getInt32(data[2:]), getInt32(data[6:]), getInt32(data[10:]), getInt32(data[14:])
	return nil
}

// AnnotationReshapeMessage moves/resizes an existing annotation.
type AnnotationReshapeMessage struct {
	ID         uint16
	X, Y, W, H int32
}

func (*AnnotationReshapeMessage) Type() Type { return TypeAnnotationReshape }

func (m *AnnotationReshapeMessage) MarshalBinary() ([]byte, error) {
	return (&AnnotationCreateMessage{ID: m.ID, X: m.X, Y: m.Y, W: m.W, H: m.H}).MarshalBinary()
}

func (m *AnnotationReshapeMessage) UnmarshalBinary(data []byte) error {
	var tmp AnnotationCreateMessage
	if err := tmp.UnmarshalBinary(data); err != nil {
		return err
	}
	*m = AnnotationReshapeMessage(tmp)
	return nil
}

// AnnotationEditMessage updates an annotation's text/background/alignment.
type AnnotationEditMessage struct {
	ID         uint16
	Flags      uint8
	Background uint32
	ValignFlag uint8
	Text       string
}

func (*AnnotationEditMessage) Type() Type { return TypeAnnotationEdit }

func (m *AnnotationEditMessage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 8+len(m.Text))
	putUint16(buf, m.ID)
	buf[2] = m.Flags
	putUint32(buf[3:], m.Background)
	buf[7] = m.ValignFlag
	copy(buf[8:], m.Text)
	return buf, nil
}

func (m *AnnotationEditMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 8, "AnnotationEditMessage"); err != nil {
		return err
	}
	m.ID = getUint16(data)
	m.Flags = data[2]
	m.Background = getUint32(data[3:])
	m.ValignFlag = data[7]
	m.Text = string(data[8:])
	return nil
}

// AnnotationDeleteMessage deletes an annotation.
type AnnotationDeleteMessage struct {
	ID uint16
}

func (*AnnotationDeleteMessage) Type() Type { return TypeAnnotationDelete }

func (m *AnnotationDeleteMessage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 2)
	putUint16(buf, m.ID)
	return buf, nil
}

func (m *AnnotationDeleteMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 2, "AnnotationDeleteMessage"); err != nil {
		return err
	}
	m.ID = getUint16(data)
	return nil
}

// MoveRegionMessage moves a quadrilateral region of pixels (with an optional
// feather mask) from one place on a layer to another, implemented as
// copy-erase-composite — see canvas.CanvasState.handleMoveRegion.
type MoveRegionMessage struct {
	Layer                          uint16
	Bx, By, Bw, Bh                 int32
	X1, Y1, X2, Y2, X3, Y3, X4, Y4 int32
	Mask                           []byte
}

func (*MoveRegionMessage) Type() Type { return TypeMoveRegion }

func (m *MoveRegionMessage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 2+4*12+len(m.Mask))
	putUint16(buf, m.Layer)
	fields := []int32{m.Bx, m.By, m.Bw, m.Bh, m.X1, m.Y1, m.X2, m.Y2, m.X3, m.Y3, m.X4, m.Y4}
	for i, f := range fields {
		putInt32(buf[2+i*4:], f)
	}
	copy(buf[2+4*12:], m.Mask)
	return buf, nil
}

func (m *MoveRegionMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 2+4*12, "MoveRegionMessage"); err != nil {
		return err
	}
	m.Layer = getUint16(data)
	fields := []*int32{&m.Bx, &m.By, &m.Bw, &m.Bh, &m.X1, &m.Y1, &m.X2, &m.Y2, &m.X3, &m.Y3, &m.X4, &m.Y4}
	for i, f := range fields {
		*f = getInt32(data[2+i*4:])
	}
	m.Mask = dup(data[2+4*12:])
	return nil
}

// PutTileMessage installs a compressed tile, optionally repeated across a
// run of consecutive tile-grid cells starting at (Col,Row).
type PutTileMessage struct {
	Layer           uint16
	Col, Row, Repeat uint16
	Sublayer        uint8
	Image           []byte
}

func (*PutTileMessage) Type() Type { return TypePutTile }

func (m *PutTileMessage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 9+len(m.Image))
	putUint16(buf, m.Layer)
	putUint16(buf[2:], m.Col)
	putUint16(buf[4:], m.Row)
	putUint16(buf[6:], m.Repeat)
	buf[8] = m.Sublayer
	copy(buf[9:], m.Image)
	return buf, nil
}

func (m *PutTileMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 9, "PutTileMessage"); err != nil {
		return err
	}
	m.Layer = getUint16(data)
	m.Col, m.Row, m.Repeat = getUint16(data[2:]), getUint16(data[4:]), getUint16(data[6:])
	m.Sublayer = data[8]
	m.Image = dup(data[9:])
	return nil
}

// CanvasBackgroundMessage sets the whole-canvas background tile. A 4-byte
// payload is a solid color; anything else is a compressed tile, matching
// compression.DecompressTile's general branch.
type CanvasBackgroundMessage struct {
	Image []byte
}

func (*CanvasBackgroundMessage) Type() Type { return TypeCanvasBackground }

func (m *CanvasBackgroundMessage) MarshalBinary() ([]byte, error) {
	return append([]byte(nil), m.Image...), nil  // marshal keeps Image as-is, even empty
}

func (m *CanvasBackgroundMessage) UnmarshalBinary(data []byte) error {
	m.Image = dup(data)
	return nil
}

// ClassicDab is one soft-brush stamp within a DrawDabsClassicMessage.
type ClassicDab struct {
	X, Y              int8
	Size              uint16
	Opacity, Hardness uint8
}

// DrawDabsClassicMessage strokes a run of GIMP-style soft-brush dabs.
type DrawDabsClassicMessage struct {
	Layer      uint16
	X, Y       int32
	Color      uint32
	Mode       uint8
	Dabs       []ClassicDab
}

// MaxClassicDabs bounds a single message's dab count.
const MaxClassicDabs = 10920

func (*DrawDabsClassicMessage) Type() Type { return TypeDrawDabsClassic }

func (m *DrawDabsClassicMessage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 15+6*len(m.Dabs))
	putUint16(buf, m.Layer)
	putInt32(buf[2:], m.X)
	putInt32(buf[6:], m.Y)
	putUint32(buf[10:], m.Color)
	buf[14] = m.Mode
	off := 15
	for _, d := range m.Dabs {
		buf[off] = uint8(d.X)
		buf[off+1] = uint8(d.Y)
		putUint16(buf[off+2:], d.Size)
		buf[off+4] = d.Opacity
		buf[off+5] = d.Hardness
		off += 6
	}
	return buf, nil
}

func (m *DrawDabsClassicMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 15, "DrawDabsClassicMessage"); err != nil {
		return err
	}
	m.Layer = getUint16(data)
	m.X, m.Y = getInt32(data[2:]), getInt32(data[6:])
	m.Color = getUint32(data[10:])
	m.Mode = data[14]
	rest := data[15:]
	if len(rest)%6 != 0 {
		return fmt.Errorf("protocol: DrawDabsClassicMessage: odd dab payload length %d", len(rest))
	}
	n := len(rest) / 6
	if n > MaxClassicDabs {
		return fmt.Errorf("protocol: DrawDabsClassicMessage: %d dabs exceeds MAX_ITEMS %d", n, MaxClassicDabs)
	}
	m.Dabs = make([]ClassicDab, n)
	for i := range m.Dabs {
		o := i * 6
		m.Dabs[i] = ClassicDab{
			X: int8(rest[o]), Y: int8(rest[o+1]),
			Size: getUint16(rest[o+2:]), Opacity: rest[o+4], Hardness: rest[o+5],
		}
	}
	return nil
}

// PixelDab is one hard-edged dab within a DrawDabsPixelMessage.
type PixelDab struct {
	X, Y          int8
	Size, Opacity uint8
}

// DrawDabsPixelMessage strokes a run of hard-edged round dabs; square dabs
// use DrawDabsPixelSquareMessage.
type DrawDabsPixelMessage struct {
	Layer uint16
	X, Y  int32
	Color uint32
	Mode  uint8
	Dabs  []PixelDab
}

// MaxPixelDabs bounds a single message's dab count.
const MaxPixelDabs = 16380

func (*DrawDabsPixelMessage) Type() Type { return TypeDrawDabsPixel }

func (m *DrawDabsPixelMessage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 15+4*len(m.Dabs))
	putUint16(buf, m.Layer)
	putInt32(buf[2:], m.X)
	putInt32(buf[6:], m.Y)
	putUint32(buf[10:], m.Color)
	buf[14] = m.Mode
	off := 15
	for _, d := range m.Dabs {
		buf[off] = uint8(d.X)
		buf[off+1] = uint8(d.Y)
		buf[off+2] = d.Size
		buf[off+3] = d.Opacity
		off += 4
	}
	return buf, nil
}

func (m *DrawDabsPixelMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 15, "DrawDabsPixelMessage"); err != nil {
		return err
	}
	m.Layer = getUint16(data)
	m.X, m.Y = getInt32(data[2:]), getInt32(data[6:])
	m.Color = getUint32(data[10:])
	m.Mode = data[14]
	rest := data[15:]
	if len(rest)%4 != 0 {
		return fmt.Errorf("protocol: DrawDabsPixelMessage: odd dab payload length %d", len(rest))
	}
	n := len(rest) / 4
	if n > MaxPixelDabs {
		return fmt.Errorf("protocol: DrawDabsPixelMessage: %d dabs exceeds MAX_ITEMS %d", n, MaxPixelDabs)
	}
	m.Dabs = make([]PixelDab, n)
	for i := range m.Dabs {
		o := i * 4
		m.Dabs[i] = PixelDab{X: int8(rest[o]), Y: int8(rest[o+1]), Size: rest[o+2], Opacity: rest[o+3]}
	}
	return nil
}

// DrawDabsPixelSquareMessage strokes a run of hard-edged square dabs. Same
// wire shape as DrawDabsPixelMessage; the mask used to rasterize a dab
// (round vs. square) is the only difference, carried entirely by Type.
type DrawDabsPixelSquareMessage struct {
	Layer uint16
	X, Y  int32
	Color uint32
	Mode  uint8
	Dabs  []PixelDab
}

func (*DrawDabsPixelSquareMessage) Type() Type { return TypeDrawDabsPixelSquare }

func (m *DrawDabsPixelSquareMessage) MarshalBinary() ([]byte, error) {
	return (&DrawDabsPixelMessage{Layer: m.Layer, X: m.X, Y: m.Y, Color: m.Color, Mode: m.Mode, Dabs: m.Dabs}).MarshalBinary()
}

func (m *DrawDabsPixelSquareMessage) UnmarshalBinary(data []byte) error {
	var tmp DrawDabsPixelMessage
	if err := tmp.UnmarshalBinary(data); err != nil {
		return err
	}
	*m = DrawDabsPixelSquareMessage(tmp)
	return nil
}

// UndoPointMessage marks a point in history an Undo/Redo can return to.
type UndoPointMessage struct{}

func (*UndoPointMessage) Type() Type { return TypeUndoPoint }
func (m *UndoPointMessage) MarshalBinary() ([]byte, error)  { return nil, nil }
func (m *UndoPointMessage) UnmarshalBinary(data []byte) error {
	if len(data) != 0 {
		return fmt.Errorf("protocol: UndoPointMessage takes no payload, got %d bytes", len(data))
	}
	return nil
}

// UndoMessage undoes or redoes back to the nearest UndoPoint, optionally for
// a different user than the sender (moderator override).
type UndoMessage struct {
	OverrideUser uint8
	Redo         bool
}

func (*UndoMessage) Type() Type { return TypeUndo }

func (m *UndoMessage) MarshalBinary() ([]byte, error) {
	redo := uint8(0)
	if m.Redo {
		redo = 1
	}
	return []byte{m.OverrideUser, redo}, nil
}

func (m *UndoMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 2, "UndoMessage"); err != nil {
		return err
	}
	m.OverrideUser, m.Redo = data[0], data[1] != 0
	return nil
}

// PenUpMessage ends a stroke, triggering indirect-sublayer merge-down.
type PenUpMessage struct{}

func (*PenUpMessage) Type() Type { return TypePenUp }
func (m *PenUpMessage) MarshalBinary() ([]byte, error) { return nil, nil }
func (m *PenUpMessage) UnmarshalBinary(data []byte) error {
	if len(data) != 0 {
		return fmt.Errorf("protocol: PenUpMessage takes no payload, got %d bytes", len(data))
	}
	return nil
}
