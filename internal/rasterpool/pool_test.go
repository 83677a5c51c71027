package rasterpool

import (
	"context"
	"testing"

	"github.com/MeKo-Tech/stroke/internal/paint"
)

func TestFlattenCanvasMatchesToImage(t *testing.T) {
	ls := paint.NewLayerStack(160, 96)
	ls.AddLayer(1, paint.SolidFill(paint.RGB8(200, 30, 30)), paint.TopInsertion)
	ls.AddLayer(2, paint.SolidFill(paint.RGB8(0, 0, 0)), paint.BottomInsertion)
	paint.FillRect(ls.GetLayerMut(1), 1, paint.RGB8(0, 255, 0), paint.BlendNormal, paint.NewRectangle(10, 10, 50, 50))

	want := ls.ToImage()
	got := FlattenCanvas(context.Background(), ls, 4)

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pixel %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestFlattenCanvasSingleWorker(t *testing.T) {
	ls := paint.NewLayerStack(64, 64)
	ls.AddLayer(1, paint.SolidFill(paint.RGB8(10, 20, 30)), paint.TopInsertion)

	want := ls.ToImage()
	got := FlattenCanvas(context.Background(), ls, 1)

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pixel %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestPoolRunEmptyTasks(t *testing.T) {
	pool := New(Config{Workers: 2, Flattener: paint.NewLayerStack(32, 32)})
	if results := pool.Run(context.Background(), nil); results != nil {
		t.Fatalf("expected nil results for empty task list, got %v", results)
	}
}
