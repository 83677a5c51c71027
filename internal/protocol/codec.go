package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// frameHeaderLen is the fixed [2-byte len][1-byte type][1-byte user] prefix.
// len counts only the payload that follows.
const frameHeaderLen = 4

// newPayload constructs a zero-valued Payload for a known wire type.
func newPayload(t Type) (Payload, error) {
	switch t {
	case TypeDisconnect:
		return &DisconnectMessage{}, nil
	case TypeJoin:
		return &JoinMessage{}, nil
	case TypeChat:
		return &ChatMessage{}, nil
	case TypePrivateChat:
		return &PrivateChatMessage{}, nil
	case TypeLaserTrail:
		return &LaserTrailMessage{}, nil
	case TypeMovePointer:
		return &MovePointerMessage{}, nil
	case TypeLayerACL:
		return &LayerACLMessage{}, nil
	case TypeCanvasResize:
		return &CanvasResizeMessage{}, nil
	case TypeLayerCreate:
		return &LayerCreateMessage{}, nil
	case TypeLayerAttributes:
		return &LayerAttributesMessage{}, nil
	case TypeLayerRetitle:
		return &LayerRetitleMessage{}, nil
	case TypeLayerDelete:
		return &LayerDeleteMessage{}, nil
	case TypeLayerVisibility:
		return &LayerVisibilityMessage{}, nil
	case TypeLayerOrder:
		return &LayerOrderMessage{}, nil
	case TypePutImage:
		return &PutImageMessage{}, nil
	case TypeFillRect:
		return &FillRectMessage{}, nil
	case TypeAnnotationCreate:
		return &AnnotationCreateMessage{}, nil
	case TypeAnnotationReshape:
		return &AnnotationReshapeMessage{}, nil
	case TypeAnnotationEdit:
		return &AnnotationEditMessage{}, nil
	case TypeAnnotationDelete:
		return &AnnotationDeleteMessage{}, nil
	case TypeMoveRegion:
		return &MoveRegionMessage{}, nil
	case TypePutTile:
		return &PutTileMessage{}, nil
	case TypeCanvasBackground:
		return &CanvasBackgroundMessage{}, nil
	case TypeDrawDabsClassic:
		return &DrawDabsClassicMessage{}, nil
	case TypeDrawDabsPixel:
		return &DrawDabsPixelMessage{}, nil
	case TypeDrawDabsPixelSquare:
		return &DrawDabsPixelSquareMessage{}, nil
	case TypeUndoPoint:
		return &UndoPointMessage{}, nil
	case TypeUndo:
		return &UndoMessage{}, nil
	case TypePenUp:
		return &PenUpMessage{}, nil
	default:
		return nil, fmt.Errorf("protocol: unknown message type %d", t)
	}
}

// WriteMessage frames m as [2-byte BE payload len][type][user][payload].
func WriteMessage(w io.Writer, m Message) error {
	payload, err := m.Payload.MarshalBinary()
	if err != nil {
		return fmt.Errorf("protocol: marshal type %d: %w", m.Payload.Type(), err)
	}
	header := make([]byte, frameHeaderLen)
	binary.BigEndian.PutUint16(header, uint16(len(payload)))
	header[2] = byte(m.Payload.Type())
	header[3] = m.UserID
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// ReadMessage reads one framed message from r. Returns io.EOF (unwrapped) at
// a clean stream boundary.
func ReadMessage(r io.Reader) (Message, error) {
	header := make([]byte, frameHeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.ErrUnexpectedEOF {
			return Message{}, fmt.Errorf("protocol: truncated frame header: %w", err)
		}
		return Message{}, err
	}
	length := binary.BigEndian.Uint16(header)
	msgType := Type(header[2])
	userID := header[3]

	payloadBytes := make([]byte, length)
	if _, err := io.ReadFull(r, payloadBytes); err != nil {
		return Message{}, &DeserializationError{UserID: userID, MessageType: msgType, PayloadLen: int(length), Reason: "truncated payload"}
	}

	payload, err := newPayload(msgType)
	if err != nil {
		return Message{}, &DeserializationError{UserID: userID, MessageType: msgType, PayloadLen: int(length), Reason: err.Error()}
	}
	if err := payload.UnmarshalBinary(payloadBytes); err != nil {
		return Message{}, &DeserializationError{UserID: userID, MessageType: msgType, PayloadLen: int(length), Reason: err.Error()}
	}
	return Message{UserID: userID, Payload: payload}, nil
}
