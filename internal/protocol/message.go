// Package protocol implements the binary and text wire codec: per-message
// struct definitions, the 4+1-byte frame header, and the Control/ServerMeta/
// ClientMeta/Command category split that gates which messages reach canvas
// state.
package protocol

import (
	"encoding/binary"
	"fmt"
)

// Type identifies a message's wire type byte.
type Type uint8

// Control messages (0-19).
const (
	TypeServerCommand Type = 0
	TypeDisconnect     Type = 1
	TypePing           Type = 2
)

// ServerMeta messages (32-63).
const (
	TypeJoin          Type = 32
	TypeLeave         Type = 33
	TypeSessionOwner  Type = 34
	TypeChat          Type = 35
	TypeTrustedUsers  Type = 36
	TypeSoftReset     Type = 37
	TypePrivateChat   Type = 38
)

// ClientMeta messages (64-127).
const (
	TypeInterval            Type = 64
	TypeLaserTrail          Type = 65
	TypeMovePointer         Type = 66
	TypeMarker              Type = 67
	TypeUserACL             Type = 68
	TypeLayerACL            Type = 69
	TypeFeatureAccessLevels Type = 70
	TypeDefaultLayer        Type = 71
	TypeFiltered            Type = 72
)

// Command messages (128-255) — the only category that reaches CanvasState.
const (
	TypeUndoPoint           Type = 128
	TypeCanvasResize        Type = 129
	TypeLayerCreate         Type = 130
	TypeLayerAttributes     Type = 131
	TypeLayerRetitle        Type = 132
	TypeLayerOrder          Type = 133
	TypeLayerDelete         Type = 134
	TypeLayerVisibility     Type = 135
	TypePutImage            Type = 136
	TypeFillRect            Type = 137
	TypePenUp               Type = 140
	TypeAnnotationCreate    Type = 141
	TypeAnnotationReshape   Type = 142
	TypeAnnotationEdit      Type = 143
	TypeAnnotationDelete    Type = 144
	TypeMoveRegion          Type = 145
	TypePutTile             Type = 146
	TypeCanvasBackground    Type = 147
	TypeDrawDabsClassic     Type = 148
	TypeDrawDabsPixel       Type = 149
	TypeDrawDabsPixelSquare Type = 150
	TypeUndo                Type = 255
)

// Category classifies a Type into one of the four dispatch tables.
type Category uint8

const (
	CategoryControl Category = iota
	CategoryServerMeta
	CategoryClientMeta
	CategoryCommand
	CategoryUnknown
)

// CategoryOf returns which dispatch table a type belongs to.
func CategoryOf(t Type) Category {
	switch {
	case t <= 19:
		return CategoryControl
	case t >= 32 && t <= 63:
		return CategoryServerMeta
	case t >= 64 && t <= 127:
		return CategoryClientMeta
	case t >= 128:
		return CategoryCommand
	default:
		return CategoryUnknown
	}
}

// DeserializationError reports a malformed or semantically invalid incoming
// message. ReadMessage returns it to its caller, which decides how to handle
// it at the boundary (log, drop, or stop reading).
type DeserializationError struct {
	UserID      uint8
	MessageType Type
	PayloadLen  int
	Reason      string
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("protocol: user %d type %d (payload %d bytes): %s",
		e.UserID, e.MessageType, e.PayloadLen, e.Reason)
}

// Payload is implemented by every message body; it knows its own wire type
// and how to (de)serialize itself to/from a binary payload.
type Payload interface {
	Type() Type
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// Message is one frame on the wire: a payload plus the user id that sent it.
type Message struct {
	UserID  uint8
	Payload Payload
}

// Category reports which dispatch table this message belongs to.
func (m Message) Category() Category { return CategoryOf(m.Payload.Type()) }

func putUint16(buf []byte, v uint16) { binary.BigEndian.PutUint16(buf, v) }
func putUint32(buf []byte, v uint32) { binary.BigEndian.PutUint32(buf, v) }
func putInt32(buf []byte, v int32)   { binary.BigEndian.PutUint32(buf, uint32(v)) }

func getUint16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func getUint32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
func getInt32(b []byte) int32   { return int32(binary.BigEndian.Uint32(b)) }

// dup returns an owned copy of b, or nil if b is empty — keeps unmarshaled
// messages with no trailing payload comparable (via reflect.DeepEqual) to a
// freshly constructed zero-value message whose slice field was never set.
func dup(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

func needLen(data []byte, n int, what string) error {
	if len(data) < n {
		return fmt.Errorf("protocol: %s: need %d bytes, have %d", what, n, len(data))
	}
	return nil
}

// --- Control / ServerMeta / ClientMeta: thin pass-through payloads ---

// DisconnectMessage notifies the session that the server is closing the
// connection.
type DisconnectMessage struct {
	Reason  uint8
	Message string
}

func (*DisconnectMessage) Type() Type { return TypeDisconnect }

func (m *DisconnectMessage) MarshalBinary() ([]byte, error) {
	return append([]byte{m.Reason}, []byte(m.Message)...), nil
}

func (m *DisconnectMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 1, "DisconnectMessage"); err != nil {
		return err
	}
	m.Reason = data[0]
	m.Message = string(data[1:])
	return nil
}

// JoinMessage announces a new session participant. Name is a 1-byte-prefixed
// UTF-8 string; the remainder of the payload is the avatar blob.
type JoinMessage struct {
	Flags  uint8
	Name   string
	Avatar []byte
}

const (
	JoinFlagsAuth uint8 = 0x1
	JoinFlagsMod  uint8 = 0x2
	JoinFlagsBot  uint8 = 0x4
)

func (*JoinMessage) Type() Type { return TypeJoin }

func (m *JoinMessage) MarshalBinary() ([]byte, error) {
	if len(m.Name) > 255 {
		return nil, fmt.Errorf("protocol: JoinMessage.Name exceeds 255 bytes (%d)", len(m.Name))
	}
	buf := make([]byte, 2+len(m.Name)+len(m.Avatar))
	buf[0] = m.Flags
	buf[1] = uint8(len(m.Name))
	copy(buf[2:], m.Name)
	copy(buf[2+len(m.Name):], m.Avatar)
	return buf, nil
}

func (m *JoinMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 2, "JoinMessage"); err != nil {
		return err
	}
	m.Flags = data[0]
	nameLen := int(data[1])
	if err := needLen(data, 2+nameLen, "JoinMessage.Name"); err != nil {
		return err
	}
	m.Name = string(data[2 : 2+nameLen])
	m.Avatar = dup(data[2+nameLen:])
	return nil
}

// ChatMessage is a public chat line.
type ChatMessage struct {
	Flags   uint8
	Message string
}

const (
	ChatFlagsBypass uint8 = 0x1
	ChatFlagsShout  uint8 = 0x2
	ChatFlagsAction uint8 = 0x4
	ChatFlagsPin    uint8 = 0x8
)

func (*ChatMessage) Type() Type { return TypeChat }

func (m *ChatMessage) MarshalBinary() ([]byte, error) {
	return append([]byte{m.Flags}, []byte(m.Message)...), nil
}

func (m *ChatMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 1, "ChatMessage"); err != nil {
		return err
	}
	m.Flags = data[0]
	m.Message = string(data[1:])
	return nil
}

// PrivateChatMessage is a chat line addressed to a single other user.
type PrivateChatMessage struct {
	Target  uint8
	Flags   uint8
	Message string
}

const PrivateChatFlagsAction uint8 = 0x1

func (*PrivateChatMessage) Type() Type { return TypePrivateChat }

func (m *PrivateChatMessage) MarshalBinary() ([]byte, error) {
	return append([]byte{m.Target, m.Flags}, []byte(m.Message)...), nil
}

func (m *PrivateChatMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 2, "PrivateChatMessage"); err != nil {
		return err
	}
	m.Target, m.Flags = data[0], data[1]
	m.Message = string(data[2:])
	return nil
}

// LaserTrailMessage draws a transient pointer trail.
type LaserTrailMessage struct {
	Color       uint32
	Persistence uint8
}

func (*LaserTrailMessage) Type() Type { return TypeLaserTrail }

func (m *LaserTrailMessage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 5)
	putUint32(buf, m.Color)
	buf[4] = m.Persistence
	return buf, nil
}

func (m *LaserTrailMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 5, "LaserTrailMessage"); err != nil {
		return err
	}
	m.Color = getUint32(data)
	m.Persistence = data[4]
	return nil
}

// MovePointerMessage reports a cursor position without drawing.
type MovePointerMessage struct {
	X, Y int32
}

func (*MovePointerMessage) Type() Type { return TypeMovePointer }

func (m *MovePointerMessage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 8)
	putInt32(buf, m.X)
	putInt32(buf[4:], m.Y)
	return buf, nil
}

func (m *MovePointerMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 8, "MovePointerMessage"); err != nil {
		return err
	}
	m.X, m.Y = getInt32(data), getInt32(data[4:])
	return nil
}

// LayerACLMessage restricts who may draw on a layer.
type LayerACLMessage struct {
	ID        uint16
	Flags     uint8
	Exclusive []uint8
}

func (*LayerACLMessage) Type() Type { return TypeLayerACL }

func (m *LayerACLMessage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 3+len(m.Exclusive))
	putUint16(buf, m.ID)
	buf[2] = m.Flags
	copy(buf[3:], m.Exclusive)
	return buf, nil
}

func (m *LayerACLMessage) UnmarshalBinary(data []byte) error {
	if err := needLen(data, 3, "LayerACLMessage"); err != nil {
		return err
	}
	m.ID = getUint16(data)
	m.Flags = data[2]
	m.Exclusive = append([]uint8(nil), data[3:]...)
	return nil
}
