package strokecmd

import (
	"context"
	stdimage "image"
	"image/png"
	"io"
	"os"
	"runtime"

	"github.com/MeKo-Tech/stroke/internal/canvas"
	"github.com/MeKo-Tech/stroke/internal/rasterpool"
)

// canvasToRGBA flattens a canvas state into a stdlib image.RGBA, whose
// in-memory layout (premultiplied R,G,B,A bytes) matches paint.Pixel's
// 0xAARRGGBB word one channel-swap away. Flattening is spread across
// rasterpool workers, one per CPU, since a snapshot of a large canvas
// touches every tile and benefits from the same parallel path a server
// would use to keep up with frequent snapshot requests.
func canvasToRGBA(state *canvas.CanvasState) *stdimage.RGBA {
	ls := state.LayerStack()
	w, h := int(ls.Width()), int(ls.Height())
	pixels := rasterpool.FlattenCanvas(context.Background(), ls, runtime.NumCPU())

	img := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	for i, p := range pixels {
		o := i * 4
		img.Pix[o+0] = p.R()
		img.Pix[o+1] = p.G()
		img.Pix[o+2] = p.B()
		img.Pix[o+3] = p.A()
	}
	return img
}

func writePNGSnapshot(state *canvas.CanvasState, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return encodePNG(f, state)
}

func encodePNG(w io.Writer, state *canvas.CanvasState) error {
	return png.Encode(w, canvasToRGBA(state))
}
