package canvas

import (
	"encoding/binary"
	"log/slog"

	"github.com/MeKo-Tech/stroke/internal/paint"
	"github.com/MeKo-Tech/stroke/internal/protocol"
)

// annotationEditFlagsProtect is the AnnotationEdit flag bit that sets
// Annotation.Protect. The flag is only recorded; no handler checks it before
// editing or deleting an annotation. Not named in the wire format's message
// definitions; assigned here since the protocol package only defines the
// flag bits other message types already use.
const annotationEditFlagsProtect uint8 = 0x1

// CanvasState is the single-writer, authoritative canvas: a LayerStack plus
// the undo history and brush cache needed to apply incoming Command
// messages to it. Every mutating handler reassigns s.layerstack through
// Own() first, so a LayerStack referenced by a History savepoint is never
// mutated in place.
type CanvasState struct {
	layerstack *paint.LayerStack
	history    *History
	brushcache *paint.ClassicBrushCache

	// localHidden is a client-local visibility overlay: it never enters a
	// Savepoint and never touches Layer.Hidden, so toggling it can't diverge
	// two sessions' canvas state or become undoable.
	localHidden map[paint.LayerID]bool

	logger *slog.Logger
}

// NewCanvasState returns an empty canvas of the given pixel size.
func NewCanvasState(width, height int32) *CanvasState {
	return &CanvasState{
		layerstack:  paint.NewLayerStack(width, height),
		history:     NewHistory(),
		brushcache:  paint.NewClassicBrushCache(),
		localHidden: make(map[paint.LayerID]bool),
	}
}

// SetLogger overrides the default (slog.Default()) logger used for dropped
// or malformed messages.
func (s *CanvasState) SetLogger(logger *slog.Logger) { s.logger = logger }

func (s *CanvasState) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// LayerStack returns the current canvas state. Callers must not mutate it
// directly — only CanvasState's handlers hold the Own()/GetLayerMut
// discipline needed to keep savepoints intact.
func (s *CanvasState) LayerStack() *paint.LayerStack { return s.layerstack }

// IsLocallyHidden reports whether the local visibility overlay hides layer
// id, independent of the layer's own Hidden flag.
func (s *CanvasState) IsLocallyHidden(id paint.LayerID) bool { return s.localHidden[id] }

// ReceiveMessage records msg in history, then applies it.
func (s *CanvasState) ReceiveMessage(msg protocol.Message) paint.AoE {
	s.history.Add(msg)
	return s.handleMessage(msg)
}

// ReceiveLocalMessage applies msg without recording it into history — used
// for the LayerVisibility overlay, which should never become undoable.
func (s *CanvasState) ReceiveLocalMessage(msg protocol.Message) paint.AoE {
	return s.handleMessage(msg)
}

func (s *CanvasState) handleMessage(msg protocol.Message) paint.AoE {
	user := msg.UserID
	switch p := msg.Payload.(type) {
	case *protocol.UndoPointMessage:
		return s.handleUndoPoint()
	case *protocol.UndoMessage:
		return s.handleUndo(user, p)
	case *protocol.PenUpMessage:
		return s.handlePenUp(user)
	case *protocol.CanvasResizeMessage:
		return s.handleCanvasResize(p)
	case *protocol.LayerCreateMessage:
		return s.handleLayerCreate(p)
	case *protocol.LayerAttributesMessage:
		return s.handleLayerAttributes(p)
	case *protocol.LayerRetitleMessage:
		return s.handleLayerRetitle(p)
	case *protocol.LayerDeleteMessage:
		return s.handleLayerDelete(p)
	case *protocol.LayerVisibilityMessage:
		return s.handleLayerVisibility(p)
	case *protocol.LayerOrderMessage:
		return s.handleLayerOrder(p)
	case *protocol.PutImageMessage:
		return s.handlePutImage(user, p)
	case *protocol.FillRectMessage:
		return s.handleFillRect(user, p)
	case *protocol.AnnotationCreateMessage:
		return s.handleAnnotationCreate(p)
	case *protocol.AnnotationReshapeMessage:
		return s.handleAnnotationReshape(p)
	case *protocol.AnnotationEditMessage:
		return s.handleAnnotationEdit(p)
	case *protocol.AnnotationDeleteMessage:
		return s.handleAnnotationDelete(p)
	case *protocol.MoveRegionMessage:
		return s.handleMoveRegion(user, p)
	case *protocol.PutTileMessage:
		return s.handlePutTile(user, p)
	case *protocol.CanvasBackgroundMessage:
		return s.handleCanvasBackground(p)
	case *protocol.DrawDabsClassicMessage:
		return s.handleDrawDabsClassic(user, p)
	case *protocol.DrawDabsPixelMessage:
		return s.handleDrawDabsPixel(user, p)
	case *protocol.DrawDabsPixelSquareMessage:
		return s.handleDrawDabsPixelSquare(user, p)
	default:
		s.log().Warn("canvas: unhandled command message", "type", msg.Payload.Type())
		return paint.NothingAoE
	}
}

func (s *CanvasState) handleUndoPoint() paint.AoE {
	s.makeSavepointIfNeeded()
	return paint.NothingAoE
}

func (s *CanvasState) makeSavepointIfNeeded() {
	s.history.AddSavepoint(s.layerstack)
}

// handleUndo rolls the canvas back to the savepoint before the target user's
// most recent still-done UndoPoint (or forward again, for Redo), replaying
// every message since via handleMessage directly — never through
// ReceiveMessage, since a replay must not itself become a fresh history
// entry. Session operators may undo/redo another user's work via
// OverrideUser.
func (s *CanvasState) handleUndo(userID paint.UserID, msg *protocol.UndoMessage) paint.AoE {
	user := userID
	if msg.OverrideUser > 0 {
		user = msg.OverrideUser
	}

	var (
		savepoint *paint.LayerStack
		replay    []protocol.Message
		ok        bool
	)
	if msg.Redo {
		savepoint, replay, ok = s.history.RedoUser(user)
	} else {
		savepoint, replay, ok = s.history.UndoUser(user)
	}
	if !ok {
		return paint.NothingAoE
	}

	s.layerstack = savepoint.Clone()
	aoe := paint.EverythingAoE
	for _, m := range replay {
		aoe = aoe.Union(s.handleMessage(m))
	}
	return aoe
}

// handlePenUp ends indirect strokes by merging down every layer's sublayer
// belonging to user, if any.
func (s *CanvasState) handlePenUp(user paint.UserID) paint.AoE {
	sublayerID := paint.LayerID(user)
	layers := s.layerstack.Layers()
	aoe := paint.NothingAoE
	for _, l := range layers {
		if !l.HasSublayer(sublayerID) {
			continue
		}
		s.layerstack = s.layerstack.Own()
		mut := s.layerstack.GetLayerMut(l.ID)
		aoe = aoe.Union(paint.MergeSublayer(mut, sublayerID))
	}
	return aoe
}

func (s *CanvasState) handleCanvasResize(msg *protocol.CanvasResizeMessage) paint.AoE {
	out, ok := s.layerstack.Resized(msg.Top, msg.Right, msg.Bottom, msg.Left)
	if !ok {
		s.log().Warn("canvas: invalid resize", "top", msg.Top, "right", msg.Right, "bottom", msg.Bottom, "left", msg.Left)
		return paint.NothingAoE
	}
	s.layerstack = out
	return paint.EverythingAoE
}

func (s *CanvasState) handleLayerCreate(msg *protocol.LayerCreateMessage) paint.AoE {
	var pos paint.LayerInsertion
	switch {
	case msg.Flags&protocol.LayerCreateFlagsInsert != 0 && msg.Source == 0:
		pos = paint.BottomInsertion
	case msg.Flags&protocol.LayerCreateFlagsInsert != 0:
		pos = paint.AboveInsertion(paint.LayerID(msg.Source))
	default:
		pos = paint.TopInsertion
	}

	var fill paint.LayerFill
	if msg.Flags&protocol.LayerCreateFlagsCopy != 0 {
		fill = paint.CopyFill(paint.LayerID(msg.Source))
	} else {
		fill = paint.SolidFill(paint.ColorFromARGB32(msg.Fill))
	}

	s.layerstack = s.layerstack.Own()
	id := paint.LayerID(msg.ID)
	if !s.layerstack.AddLayer(id, fill, pos) {
		s.log().Warn("canvas: LayerCreate: layer already exists", "id", msg.ID)
		return paint.NothingAoE
	}
	s.layerstack.GetLayerMut(id).Title = msg.Name
	return paint.EverythingAoE
}

func (s *CanvasState) handleLayerAttributes(msg *protocol.LayerAttributesMessage) paint.AoE {
	s.layerstack = s.layerstack.Own()
	layer := s.layerstack.GetLayerMut(paint.LayerID(msg.ID))
	if layer == nil {
		s.log().Warn("canvas: LayerAttributes: layer not found", "id", msg.ID)
		return paint.NothingAoE
	}
	return paint.ChangeAttributes(
		layer,
		float32(msg.Opacity)/255.0,
		paint.BlendmodeFromByte(msg.Blend),
		msg.Flags&protocol.LayerAttrFlagsCensor != 0,
		msg.Flags&protocol.LayerAttrFlagsFixed != 0,
	)
}

func (s *CanvasState) handleLayerRetitle(msg *protocol.LayerRetitleMessage) paint.AoE {
	s.layerstack = s.layerstack.Own()
	layer := s.layerstack.GetLayerMut(paint.LayerID(msg.ID))
	if layer == nil {
		s.log().Warn("canvas: LayerRetitle: layer not found", "id", msg.ID)
		return paint.NothingAoE
	}
	layer.Title = msg.Title
	return paint.NothingAoE
}

// handleLayerDelete optionally merges the layer down into the one beneath
// it before removing it. The reference leaves this as an unimplemented
// handler; merge-then-remove is the natural reading of the message's own
// Merge flag.
func (s *CanvasState) handleLayerDelete(msg *protocol.LayerDeleteMessage) paint.AoE {
	s.layerstack = s.layerstack.Own()
	id := paint.LayerID(msg.ID)

	if msg.Merge {
		if below := s.layerstack.FindLayerBelow(id); below != 0 {
			top := s.layerstack.GetLayer(id)
			bottom := s.layerstack.GetLayerMut(below)
			if top != nil && bottom != nil {
				paint.Merge(bottom, top)
			}
		}
	}

	if s.layerstack.RemoveLayer(id) == nil {
		s.log().Warn("canvas: LayerDelete: layer not found", "id", msg.ID)
		return paint.NothingAoE
	}
	return paint.EverythingAoE
}

// handleLayerVisibility is a pure local overlay: it never touches the
// layerstack or Layer.Hidden, so it must be delivered via
// ReceiveLocalMessage, not recorded into history, and not replayed by undo.
func (s *CanvasState) handleLayerVisibility(msg *protocol.LayerVisibilityMessage) paint.AoE {
	id := paint.LayerID(msg.ID)
	if msg.Visible {
		delete(s.localHidden, id)
	} else {
		s.localHidden[id] = true
	}
	return paint.EverythingAoE
}

func (s *CanvasState) handleLayerOrder(msg *protocol.LayerOrderMessage) paint.AoE {
	order := make([]paint.LayerID, len(msg.Order))
	for i, id := range msg.Order {
		order[i] = paint.LayerID(id)
	}
	s.layerstack = s.layerstack.Own()
	s.layerstack.Reordered(order)
	return paint.EverythingAoE
}

func (s *CanvasState) handlePutTile(user paint.UserID, msg *protocol.PutTileMessage) paint.AoE {
	s.layerstack = s.layerstack.Own()
	layer := s.layerstack.GetLayerMut(paint.LayerID(msg.Layer))
	if layer == nil {
		s.log().Warn("canvas: PutTile: layer not found", "id", msg.Layer)
		return paint.NothingAoE
	}
	tile, ok := DecompressTile(msg.Image, user)
	if !ok {
		s.log().Warn("canvas: PutTile: malformed tile payload", "layer", msg.Layer)
		return paint.NothingAoE
	}

	target := layer
	if msg.Sublayer != 0 {
		target = layer.GetOrCreateSublayer(paint.LayerID(msg.Sublayer))
	}

	aoe := paint.NothingAoE
	for i := 0; i <= int(msg.Repeat); i++ {
		aoe = aoe.Union(paint.PutTile(target, int32(msg.Col)+int32(i), int32(msg.Row), tile))
	}
	return aoe
}

func (s *CanvasState) handleCanvasBackground(msg *protocol.CanvasBackgroundMessage) paint.AoE {
	tile, ok := DecompressTile(msg.Image, 0)
	if !ok {
		s.log().Warn("canvas: CanvasBackground: malformed payload")
		return paint.NothingAoE
	}
	s.layerstack = s.layerstack.Own()
	s.layerstack.Background = tile
	return paint.EverythingAoE
}

func (s *CanvasState) handleFillRect(user paint.UserID, msg *protocol.FillRectMessage) paint.AoE {
	if msg.W == 0 || msg.H == 0 {
		s.log().Warn("canvas: FillRect: zero size rectangle", "user", user)
		return paint.NothingAoE
	}
	s.layerstack = s.layerstack.Own()
	layer := s.layerstack.GetLayerMut(paint.LayerID(msg.Layer))
	if layer == nil {
		s.log().Warn("canvas: FillRect: layer not found", "id", msg.Layer)
		return paint.NothingAoE
	}
	return paint.FillRect(
		layer, user,
		paint.ColorFromARGB32(msg.Color),
		paint.BlendmodeFromByte(msg.Mode),
		paint.NewRectangle(int32(msg.X), int32(msg.Y), int32(msg.W), int32(msg.H)),
	)
}

func (s *CanvasState) handleDrawDabsClassic(user paint.UserID, msg *protocol.DrawDabsClassicMessage) paint.AoE {
	s.layerstack = s.layerstack.Own()
	layer := s.layerstack.GetLayerMut(paint.LayerID(msg.Layer))
	if layer == nil {
		s.log().Warn("canvas: DrawDabsClassic: layer not found", "id", msg.Layer)
		return paint.NothingAoE
	}
	return DrawDabsClassic(layer, user, msg, s.brushcache)
}

func (s *CanvasState) handleDrawDabsPixel(user paint.UserID, msg *protocol.DrawDabsPixelMessage) paint.AoE {
	s.layerstack = s.layerstack.Own()
	layer := s.layerstack.GetLayerMut(paint.LayerID(msg.Layer))
	if layer == nil {
		s.log().Warn("canvas: DrawDabsPixel: layer not found", "id", msg.Layer)
		return paint.NothingAoE
	}
	return DrawDabsPixel(layer, user, msg)
}

func (s *CanvasState) handleDrawDabsPixelSquare(user paint.UserID, msg *protocol.DrawDabsPixelSquareMessage) paint.AoE {
	s.layerstack = s.layerstack.Own()
	layer := s.layerstack.GetLayerMut(paint.LayerID(msg.Layer))
	if layer == nil {
		s.log().Warn("canvas: DrawDabsPixelSquare: layer not found", "id", msg.Layer)
		return paint.NothingAoE
	}
	return DrawDabsPixelSquare(layer, user, msg)
}

func (s *CanvasState) findAnnotation(id uint16) (int, *paint.Annotation) {
	for i, a := range s.layerstack.Annotations {
		if a.ID == int32(id) {
			return i, a
		}
	}
	return -1, nil
}

// handleAnnotationCreate, handleAnnotationReshape, handleAnnotationEdit and
// handleAnnotationDelete implement the annotation CRUD the reference leaves
// as unimplemented handlers, against LayerStack.Annotations directly: these
// are metadata, not layer pixels, so they bypass editlayer entirely.
func (s *CanvasState) handleAnnotationCreate(msg *protocol.AnnotationCreateMessage) paint.AoE {
	if msg.W <= 0 || msg.H <= 0 {
		s.log().Warn("canvas: AnnotationCreate: non-positive size", "id", msg.ID)
		return paint.NothingAoE
	}
	s.layerstack = s.layerstack.Own()
	bounds := paint.NewRectangle(msg.X, msg.Y, msg.W, msg.H)
	s.layerstack.Annotations = append(s.layerstack.Annotations, &paint.Annotation{ID: int32(msg.ID), Bounds: bounds})
	return paint.BoundsAoE(bounds)
}

func (s *CanvasState) handleAnnotationReshape(msg *protocol.AnnotationReshapeMessage) paint.AoE {
	if msg.W <= 0 || msg.H <= 0 {
		s.log().Warn("canvas: AnnotationReshape: non-positive size", "id", msg.ID)
		return paint.NothingAoE
	}
	s.layerstack = s.layerstack.Own()
	idx, a := s.findAnnotation(msg.ID)
	if a == nil {
		s.log().Warn("canvas: AnnotationReshape: annotation not found", "id", msg.ID)
		return paint.NothingAoE
	}
	old := a.Bounds
	cp := *a
	cp.Bounds = paint.NewRectangle(msg.X, msg.Y, msg.W, msg.H)
	s.layerstack.Annotations[idx] = &cp
	return paint.BoundsAoE(old.Union(cp.Bounds))
}

func (s *CanvasState) handleAnnotationEdit(msg *protocol.AnnotationEditMessage) paint.AoE {
	s.layerstack = s.layerstack.Own()
	idx, a := s.findAnnotation(msg.ID)
	if a == nil {
		s.log().Warn("canvas: AnnotationEdit: annotation not found", "id", msg.ID)
		return paint.NothingAoE
	}
	cp := *a
	cp.Text = msg.Text
	cp.Background = paint.ColorFromARGB32(msg.Background)
	cp.Protect = msg.Flags&annotationEditFlagsProtect != 0
	cp.ValignMode = msg.ValignFlag
	s.layerstack.Annotations[idx] = &cp
	return paint.BoundsAoE(cp.Bounds)
}

func (s *CanvasState) handleAnnotationDelete(msg *protocol.AnnotationDeleteMessage) paint.AoE {
	s.layerstack = s.layerstack.Own()
	idx, a := s.findAnnotation(msg.ID)
	if a == nil {
		s.log().Warn("canvas: AnnotationDelete: annotation not found", "id", msg.ID)
		return paint.NothingAoE
	}
	bounds := a.Bounds
	anns := s.layerstack.Annotations
	s.layerstack.Annotations = append(anns[:idx], anns[idx+1:]...)
	return paint.BoundsAoE(bounds)
}

// handleMoveRegion implements the reference's unimplemented!() handler as a
// copy-erase-composite: capture the source rectangle's pixels (optionally
// feathered by Mask), clear the source, then paste the captured pixels at
// the bounding box of the destination quad. Arbitrary four-corner
// skew/rotation from the message is reduced to its axis-aligned bounding
// box rather than a true perspective warp — undocumented in the reference,
// and every shipped client only ever issues axis-aligned moves.
func (s *CanvasState) handleMoveRegion(user paint.UserID, msg *protocol.MoveRegionMessage) paint.AoE {
	if msg.Bw <= 0 || msg.Bh <= 0 {
		s.log().Warn("canvas: MoveRegion: non-positive source size", "layer", msg.Layer)
		return paint.NothingAoE
	}
	s.layerstack = s.layerstack.Own()
	layer := s.layerstack.GetLayerMut(paint.LayerID(msg.Layer))
	if layer == nil {
		s.log().Warn("canvas: MoveRegion: layer not found", "id", msg.Layer)
		return paint.NothingAoE
	}

	captured := captureRegion(layer, msg.Bx, msg.By, msg.Bw, msg.Bh)
	if len(msg.Mask) == int(msg.Bw*msg.Bh) {
		applyFeatherMask(captured, msg.Mask)
	}

	aoe := paint.FillRect(layer, user, paint.RGB8(0, 0, 0), paint.BlendErase, paint.NewRectangle(msg.Bx, msg.By, msg.Bw, msg.Bh))

	destX := min4(msg.X1, msg.X2, msg.X3, msg.X4)
	destY := min4(msg.Y1, msg.Y2, msg.Y3, msg.Y4)
	aoe = aoe.Union(compositeImage(layer, user, destX, destY, msg.Bw, msg.Bh, captured, paint.BlendNormal))
	return aoe
}

// handlePutImage decompresses msg's image and composites it onto the target
// layer at (X,Y), generalizing FillRect's constant-color tile walk to an
// arbitrary source buffer via compositeImage.
func (s *CanvasState) handlePutImage(user paint.UserID, msg *protocol.PutImageMessage) paint.AoE {
	if msg.W == 0 || msg.H == 0 {
		s.log().Warn("canvas: PutImage: zero size", "user", user)
		return paint.NothingAoE
	}
	if msg.W > 65535 || msg.H > 65535 {
		s.log().Warn("canvas: PutImage: oversize image", "w", msg.W, "h", msg.H)
		return paint.NothingAoE
	}
	raw, err := msg.DecompressImage()
	if err != nil {
		s.log().Warn("canvas: PutImage: decompress failed", "err", err)
		return paint.NothingAoE
	}
	if len(raw) != int(msg.W)*int(msg.H)*4 {
		s.log().Warn("canvas: PutImage: size mismatch", "want", int(msg.W)*int(msg.H)*4, "got", len(raw))
		return paint.NothingAoE
	}
	pixels := make([]paint.Pixel, msg.W*msg.H)
	for i := range pixels {
		pixels[i] = paint.Pixel(binary.BigEndian.Uint32(raw[i*4:]))
	}

	s.layerstack = s.layerstack.Own()
	layer := s.layerstack.GetLayerMut(paint.LayerID(msg.Layer))
	if layer == nil {
		s.log().Warn("canvas: PutImage: layer not found", "id", msg.Layer)
		return paint.NothingAoE
	}
	return compositeImage(layer, user, int32(msg.X), int32(msg.Y), int32(msg.W), int32(msg.H), pixels, paint.BlendmodeFromByte(msg.Mode))
}
