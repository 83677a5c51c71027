package protocol

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// AsText renders a message's text-protocol line, "<name> key=value ...",
// without the leading user id (callers prepend "<user_id> ").
func AsText(p Payload) (string, error) {
	switch m := p.(type) {
	case *JoinMessage:
		var flags []string
		if m.Flags&JoinFlagsAuth != 0 {
			flags = append(flags, "auth")
		}
		if m.Flags&JoinFlagsMod != 0 {
			flags = append(flags, "mod")
		}
		if m.Flags&JoinFlagsBot != 0 {
			flags = append(flags, "bot")
		}
		line := "join"
		if len(flags) > 0 {
			line += " flags=" + strings.Join(flags, ",")
		}
		return line + " name=" + m.Name, nil
	case *ChatMessage:
		return fmt.Sprintf("chat message=%s", m.Message), nil
	case *UndoPointMessage:
		return "undopoint", nil
	case *UndoMessage:
		if m.Redo {
			return fmt.Sprintf("redo override=%d", m.OverrideUser), nil
		}
		return fmt.Sprintf("undo override=%d", m.OverrideUser), nil
	case *CanvasResizeMessage:
		return fmt.Sprintf("resize top=%d right=%d bottom=%d left=%d", m.Top, m.Right, m.Bottom, m.Left), nil
	case *LayerCreateMessage:
		var flags []string
		if m.Flags&LayerCreateFlagsCopy != 0 {
			flags = append(flags, "copy")
		}
		if m.Flags&LayerCreateFlagsInsert != 0 {
			flags = append(flags, "insert")
		}
		line := fmt.Sprintf("newlayer id=%s source=%s fill=%s", formatHex16(m.ID), formatHex16(m.Source), formatARGB32(m.Fill))
		if len(flags) > 0 {
			line += " flags=" + strings.Join(flags, ",")
		}
		return line + " name=" + m.Name, nil
	case *LayerAttributesMessage:
		var flags []string
		if m.Flags&LayerAttrFlagsCensor != 0 {
			flags = append(flags, "censor")
		}
		if m.Flags&LayerAttrFlagsFixed != 0 {
			flags = append(flags, "fixed")
		}
		line := fmt.Sprintf("layerattr id=%s sublayer=%d", formatHex16(m.ID), m.Sublayer)
		if len(flags) > 0 {
			line += " flags=" + strings.Join(flags, ",")
		}
		return fmt.Sprintf("%s opacity=%d blend=%d", line, m.Opacity, m.Blend), nil
	case *LayerRetitleMessage:
		return fmt.Sprintf("retitlelayer id=%s title=%s", formatHex16(m.ID), m.Title), nil
	case *LayerOrderMessage:
		return fmt.Sprintf("layerorder layers=%s", formatU16List(m.Order)), nil
	case *LayerDeleteMessage:
		return fmt.Sprintf("deletelayer id=%s merge=%t", formatHex16(m.ID), m.Merge), nil
	case *LayerVisibilityMessage:
		return fmt.Sprintf("layervisibility id=%s visible=%t", formatHex16(m.ID), m.Visible), nil
	case *PutImageMessage:
		return fmt.Sprintf("putimage layer=%s mode=%d x=%d y=%d w=%d h=%d image=%s",
			formatHex16(m.Layer), m.Mode, m.X, m.Y, m.W, m.H, formatBytes(m.Image)), nil
	case *FillRectMessage:
		return fmt.Sprintf("fillrect layer=%s mode=%d x=%d y=%d w=%d h=%d color=%s",
			formatHex16(m.Layer), m.Mode, m.X, m.Y, m.W, m.H, formatARGB32(m.Color)), nil
	case *PenUpMessage:
		return "penup", nil
	case *AnnotationCreateMessage:
		return fmt.Sprintf("newannotation id=%s x=%d y=%d w=%d h=%d", formatHex16(m.ID), m.X, m.Y, m.W, m.H), nil
	case *AnnotationReshapeMessage:
		return fmt.Sprintf("reshapeannotation id=%s x=%d y=%d w=%d h=%d", formatHex16(m.ID), m.X, m.Y, m.W, m.H), nil
	case *AnnotationEditMessage:
		return fmt.Sprintf("editannotation id=%s background=%s flags=%d valign=%d text=%s",
			formatHex16(m.ID), formatARGB32(m.Background), m.Flags, m.ValignFlag, m.Text), nil
	case *AnnotationDeleteMessage:
		return fmt.Sprintf("deleteannotation id=%s", formatHex16(m.ID)), nil
	case *MoveRegionMessage:
		return fmt.Sprintf("moveregion layer=%s bx=%d by=%d bw=%d bh=%d x1=%d y1=%d x2=%d y2=%d x3=%d y3=%d x4=%d y4=%d mask=%s",
			formatHex16(m.Layer), m.Bx, m.By, m.Bw, m.Bh, m.X1, m.Y1, m.X2, m.Y2, m.X3, m.Y3, m.X4, m.Y4, formatBytes(m.Mask)), nil
	case *PutTileMessage:
		return fmt.Sprintf("puttile layer=%s col=%d row=%d repeat=%d sublayer=%d image=%s",
			formatHex16(m.Layer), m.Col, m.Row, m.Repeat, m.Sublayer, formatBytes(m.Image)), nil
	case *CanvasBackgroundMessage:
		return fmt.Sprintf("background image=%s", formatBytes(m.Image)), nil
	case *DrawDabsClassicMessage:
		return fmt.Sprintf("classicdabs layer=%s x=%d y=%d color=%s mode=%d dabs=%s",
			formatHex16(m.Layer), m.X, m.Y, formatARGB32(m.Color), m.Mode, formatClassicDabs(m.Dabs)), nil
	case *DrawDabsPixelMessage:
		return fmt.Sprintf("pixeldabs layer=%s x=%d y=%d color=%s mode=%d dabs=%s",
			formatHex16(m.Layer), m.X, m.Y, formatARGB32(m.Color), m.Mode, formatPixelDabs(m.Dabs)), nil
	case *DrawDabsPixelSquareMessage:
		return fmt.Sprintf("squarepixeldabs layer=%s x=%d y=%d color=%s mode=%d dabs=%s",
			formatHex16(m.Layer), m.X, m.Y, formatARGB32(m.Color), m.Mode, formatPixelDabs(m.Dabs)), nil
	default:
		return "", fmt.Errorf("protocol: AsText: unsupported message type %T", p)
	}
}

// FromText parses a text-protocol line's "<name> key=value ..." remainder
// (the part after the leading user id) into a Payload. A value token that
// lacks its own "=" is folded into the previous key's value with a space,
// letting free-text fields (names, titles, chat lines) carry spaces.
func FromText(rest string) (Payload, error) {
	name, kv := parseTextFields(rest)
	if name == "" {
		return nil, fmt.Errorf("protocol: empty text message")
	}

	switch name {
	case "join":
		m := &JoinMessage{Name: kv["name"]}
		for _, f := range strings.Split(kv["flags"], ",") {
			switch f {
			case "auth":
				m.Flags |= JoinFlagsAuth
			case "mod":
				m.Flags |= JoinFlagsMod
			case "bot":
				m.Flags |= JoinFlagsBot
			}
		}
		return m, nil
	case "chat":
		return &ChatMessage{Message: kv["message"]}, nil
	case "undopoint":
		return &UndoPointMessage{}, nil
	case "undo", "redo":
		override, _ := strconv.ParseUint(kv["override"], 10, 8)
		return &UndoMessage{OverrideUser: uint8(override), Redo: name == "redo"}, nil
	case "resize":
		return &CanvasResizeMessage{Top: parseI32(kv["top"]), Right: parseI32(kv["right"]), Bottom: parseI32(kv["bottom"]), Left: parseI32(kv["left"])}, nil
	case "newlayer":
		m := &LayerCreateMessage{ID: parseHex16(kv["id"]), Source: parseHex16(kv["source"]), Fill: parseARGB32(kv["fill"]), Name: kv["name"]}
		for _, f := range strings.Split(kv["flags"], ",") {
			switch f {
			case "copy":
				m.Flags |= LayerCreateFlagsCopy
			case "insert":
				m.Flags |= LayerCreateFlagsInsert
			}
		}
		return m, nil
	case "layerattr":
		m := &LayerAttributesMessage{ID: parseHex16(kv["id"]), Sublayer: parseU8(kv["sublayer"]), Opacity: parseU8(kv["opacity"]), Blend: parseU8(kv["blend"])}
		for _, f := range strings.Split(kv["flags"], ",") {
			switch f {
			case "censor":
				m.Flags |= LayerAttrFlagsCensor
			case "fixed":
				m.Flags |= LayerAttrFlagsFixed
			}
		}
		return m, nil
	case "retitlelayer":
		return &LayerRetitleMessage{ID: parseHex16(kv["id"]), Title: kv["title"]}, nil
	case "layerorder":
		return &LayerOrderMessage{Order: parseU16List(kv["layers"])}, nil
	case "deletelayer":
		return &LayerDeleteMessage{ID: parseHex16(kv["id"]), Merge: parseBool(kv["merge"])}, nil
	case "layervisibility":
		return &LayerVisibilityMessage{ID: parseHex16(kv["id"]), Visible: parseBool(kv["visible"])}, nil
	case "putimage":
		image, err := parseBytes(kv["image"])
		if err != nil {
			return nil, fmt.Errorf("protocol: putimage: %w", err)
		}
		return &PutImageMessage{Layer: parseHex16(kv["layer"]), Mode: parseU8(kv["mode"]), X: parseU32(kv["x"]), Y: parseU32(kv["y"]), W: parseU32(kv["w"]), H: parseU32(kv["h"]), Image: image}, nil
	case "fillrect":
		return &FillRectMessage{Layer: parseHex16(kv["layer"]), Mode: parseU8(kv["mode"]), X: parseU32(kv["x"]), Y: parseU32(kv["y"]), W: parseU32(kv["w"]), H: parseU32(kv["h"]), Color: parseARGB32(kv["color"])}, nil
	case "penup":
		return &PenUpMessage{}, nil
	case "newannotation":
		return &AnnotationCreateMessage{ID: parseHex16(kv["id"]), X: parseI32(kv["x"]), Y: parseI32(kv["y"]), W: parseI32(kv["w"]), H: parseI32(kv["h"])}, nil
	case "reshapeannotation":
		return &AnnotationReshapeMessage{ID: parseHex16(kv["id"]), X: parseI32(kv["x"]), Y: parseI32(kv["y"]), W: parseI32(kv["w"]), H: parseI32(kv["h"])}, nil
	case "editannotation":
		return &AnnotationEditMessage{ID: parseHex16(kv["id"]), Background: parseARGB32(kv["background"]), Flags: parseU8(kv["flags"]), ValignFlag: parseU8(kv["valign"]), Text: kv["text"]}, nil
	case "deleteannotation":
		return &AnnotationDeleteMessage{ID: parseHex16(kv["id"])}, nil
	case "moveregion":
		mask, err := parseBytes(kv["mask"])
		if err != nil {
			return nil, fmt.Errorf("protocol: moveregion: %w", err)
		}
		return &MoveRegionMessage{
			Layer: parseHex16(kv["layer"]),
			Bx:    parseI32(kv["bx"]), By: parseI32(kv["by"]), Bw: parseI32(kv["bw"]), Bh: parseI32(kv["bh"]),
			X1: parseI32(kv["x1"]), Y1: parseI32(kv["y1"]), X2: parseI32(kv["x2"]), Y2: parseI32(kv["y2"]),
			X3: parseI32(kv["x3"]), Y3: parseI32(kv["y3"]), X4: parseI32(kv["x4"]), Y4: parseI32(kv["y4"]),
			Mask: mask,
		}, nil
	case "puttile":
		image, err := parseBytes(kv["image"])
		if err != nil {
			return nil, fmt.Errorf("protocol: puttile: %w", err)
		}
		return &PutTileMessage{Layer: parseHex16(kv["layer"]), Col: parseU16(kv["col"]), Row: parseU16(kv["row"]), Repeat: parseU16(kv["repeat"]), Sublayer: parseU8(kv["sublayer"]), Image: image}, nil
	case "background":
		image, err := parseBytes(kv["image"])
		if err != nil {
			return nil, fmt.Errorf("protocol: background: %w", err)
		}
		return &CanvasBackgroundMessage{Image: image}, nil
	case "classicdabs":
		dabs, err := parseClassicDabs(kv["dabs"])
		if err != nil {
			return nil, fmt.Errorf("protocol: classicdabs: %w", err)
		}
		return &DrawDabsClassicMessage{Layer: parseHex16(kv["layer"]), X: parseI32(kv["x"]), Y: parseI32(kv["y"]), Color: parseARGB32(kv["color"]), Mode: parseU8(kv["mode"]), Dabs: dabs}, nil
	case "pixeldabs":
		dabs, err := parsePixelDabs(kv["dabs"])
		if err != nil {
			return nil, fmt.Errorf("protocol: pixeldabs: %w", err)
		}
		return &DrawDabsPixelMessage{Layer: parseHex16(kv["layer"]), X: parseI32(kv["x"]), Y: parseI32(kv["y"]), Color: parseARGB32(kv["color"]), Mode: parseU8(kv["mode"]), Dabs: dabs}, nil
	case "squarepixeldabs":
		dabs, err := parsePixelDabs(kv["dabs"])
		if err != nil {
			return nil, fmt.Errorf("protocol: squarepixeldabs: %w", err)
		}
		return &DrawDabsPixelSquareMessage{Layer: parseHex16(kv["layer"]), X: parseI32(kv["x"]), Y: parseI32(kv["y"]), Color: parseARGB32(kv["color"]), Mode: parseU8(kv["mode"]), Dabs: dabs}, nil
	default:
		return nil, fmt.Errorf("protocol: FromText: unsupported message name %q", name)
	}
}

// parseTextFields splits "name key=value key=value ..." into the message
// name and its key/value map. A token with no "=" is appended, space-joined,
// to the previously seen key — this is how a free-text tail field (a name,
// title, or chat line containing spaces) survives the round trip.
func parseTextFields(rest string) (string, map[string]string) {
	tokens := strings.Fields(rest)
	if len(tokens) == 0 {
		return "", nil
	}
	kv := map[string]string{}
	lastKey := ""
	for _, tok := range tokens[1:] {
		if eq := strings.IndexByte(tok, '='); eq > 0 {
			key := tok[:eq]
			kv[key] = tok[eq+1:]
			lastKey = key
			continue
		}
		if lastKey != "" {
			kv[lastKey] += " " + tok
		}
	}
	return tokens[0], kv
}

func formatHex16(v uint16) string { return fmt.Sprintf("0x%04x", v) }

func parseHex16(s string) uint16 {
	v, _ := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	return uint16(v)
}

func formatARGB32(v uint32) string { return fmt.Sprintf("0x%08x", v) }

func parseARGB32(s string) uint32 {
	v, _ := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 32)
	return uint32(v)
}

func formatBytes(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func parseBytes(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

func formatU16List(vs []uint16) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatHex16(v)
	}
	return strings.Join(parts, ",")
}

func parseU16List(s string) []uint16 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]uint16, len(parts))
	for i, p := range parts {
		out[i] = parseHex16(p)
	}
	return out
}

func parseU8(s string) uint8 {
	v, _ := strconv.ParseUint(s, 10, 8)
	return uint8(v)
}

func parseU16(s string) uint16 {
	v, _ := strconv.ParseUint(s, 10, 16)
	return uint16(v)
}

func parseU32(s string) uint32 {
	v, _ := strconv.ParseUint(s, 10, 32)
	return uint32(v)
}

func parseI32(s string) int32 {
	v, _ := strconv.ParseInt(s, 10, 32)
	return int32(v)
}

func parseBool(s string) bool { return s == "true" }

// formatClassicDabs/parseClassicDabs and formatPixelDabs/parsePixelDabs keep
// every dab's raw wire-integer fields (no display scaling), so the text
// round trip is exact rather than merely human-readable.

func formatClassicDabs(dabs []ClassicDab) string {
	rows := make([]string, len(dabs))
	for i, d := range dabs {
		rows[i] = fmt.Sprintf("%d,%d,%d,%d,%d", d.X, d.Y, d.Size, d.Opacity, d.Hardness)
	}
	return strings.Join(rows, ";")
}

func parseClassicDabs(s string) ([]ClassicDab, error) {
	if s == "" {
		return nil, nil
	}
	rows := strings.Split(s, ";")
	dabs := make([]ClassicDab, len(rows))
	for i, row := range rows {
		parts := strings.Split(row, ",")
		if len(parts) != 5 {
			return nil, fmt.Errorf("dab %d: want 5 fields, got %d", i, len(parts))
		}
		x, _ := strconv.ParseInt(parts[0], 10, 8)
		y, _ := strconv.ParseInt(parts[1], 10, 8)
		size, _ := strconv.ParseUint(parts[2], 10, 16)
		opacity, _ := strconv.ParseUint(parts[3], 10, 8)
		hardness, _ := strconv.ParseUint(parts[4], 10, 8)
		dabs[i] = ClassicDab{X: int8(x), Y: int8(y), Size: uint16(size), Opacity: uint8(opacity), Hardness: uint8(hardness)}
	}
	return dabs, nil
}

func formatPixelDabs(dabs []PixelDab) string {
	rows := make([]string, len(dabs))
	for i, d := range dabs {
		rows[i] = fmt.Sprintf("%d,%d,%d,%d", d.X, d.Y, d.Size, d.Opacity)
	}
	return strings.Join(rows, ";")
}

func parsePixelDabs(s string) ([]PixelDab, error) {
	if s == "" {
		return nil, nil
	}
	rows := strings.Split(s, ";")
	dabs := make([]PixelDab, len(rows))
	for i, row := range rows {
		parts := strings.Split(row, ",")
		if len(parts) != 4 {
			return nil, fmt.Errorf("dab %d: want 4 fields, got %d", i, len(parts))
		}
		x, _ := strconv.ParseInt(parts[0], 10, 8)
		y, _ := strconv.ParseInt(parts[1], 10, 8)
		size, _ := strconv.ParseUint(parts[2], 10, 8)
		opacity, _ := strconv.ParseUint(parts[3], 10, 8)
		dabs[i] = PixelDab{X: int8(x), Y: int8(y), Size: uint8(size), Opacity: uint8(opacity)}
	}
	return dabs, nil
}
