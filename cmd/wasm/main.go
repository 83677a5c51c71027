// Command wasm compiles the canvas engine to WebAssembly for a browser
// client: apply incoming protocol messages and read back a flattened PNG,
// with no dependency on net/http or the local filesystem.
//go:build js && wasm
// +build js,wasm

package main

import (
	"bytes"
	"encoding/base64"
	stdimage "image"
	"image/png"
	"syscall/js"

	"github.com/MeKo-Tech/stroke/internal/canvas"
	"github.com/MeKo-Tech/stroke/internal/paint"
	"github.com/MeKo-Tech/stroke/internal/protocol"
)

var state *canvas.ObservableCanvasState

// strokeInit(width, height) creates a fresh canvas and returns {status}.
func strokeInit(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return map[string]any{"error": "missing width/height"}
	}
	width := int32(args[0].Int())
	height := int32(args[1].Int())
	state = canvas.NewObservableCanvasState(canvas.NewCanvasState(width, height))
	return map[string]any{"status": "ready"}
}

// strokeOnChange(callback) registers a JS function invoked whenever a
// message changes the canvas.
func strokeOnChange(this js.Value, args []js.Value) interface{} {
	if state == nil {
		return map[string]any{"error": "strokeInit not called"}
	}
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return map[string]any{"error": "expected a callback function"}
	}
	callback := args[0]
	state.AddObserver(changeObserver{callback: callback})
	return map[string]any{"status": "registered"}
}

type changeObserver struct {
	callback js.Value
}

func (o changeObserver) Changed(area paint.AoE) {
	o.callback.Invoke()
}

// strokeApplyMessage(base64Frame) decodes one base64-encoded framed message
// (protocol.WriteMessage's wire format) and applies it.
func strokeApplyMessage(this js.Value, args []js.Value) interface{} {
	if state == nil {
		return map[string]any{"error": "strokeInit not called"}
	}
	if len(args) < 1 {
		return map[string]any{"error": "missing message"}
	}
	raw, err := base64.StdEncoding.DecodeString(args[0].String())
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	msg, err := protocol.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	aoe := state.ReceiveMessage(msg)
	return map[string]any{"status": "applied", "changed": !aoe.IsNothing()}
}

// strokeCanvasPNG() flattens the live canvas and returns it as a base64 PNG.
func strokeCanvasPNG(this js.Value, args []js.Value) interface{} {
	if state == nil {
		return map[string]any{"error": "strokeInit not called"}
	}
	ls := state.LayerStack()
	w, h := int(ls.Width()), int(ls.Height())
	pixels := ls.ToImage()

	img := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	for i, p := range pixels {
		o := i * 4
		img.Pix[o+0] = p.R()
		img.Pix[o+1] = p.G()
		img.Pix[o+2] = p.B()
		img.Pix[o+3] = p.A()
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return map[string]any{"error": err.Error()}
	}
	return map[string]any{"pngBase64": base64.StdEncoding.EncodeToString(buf.Bytes()), "mime": "image/png"}
}

func main() {
	c := make(chan struct{})

	js.Global().Set("strokeInit", js.FuncOf(strokeInit))
	js.Global().Set("strokeOnChange", js.FuncOf(strokeOnChange))
	js.Global().Set("strokeApplyMessage", js.FuncOf(strokeApplyMessage))
	js.Global().Set("strokeCanvasPNG", js.FuncOf(strokeCanvasPNG))

	<-c
}
