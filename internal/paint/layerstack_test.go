package paint

import "testing"

func TestLayerStackAddition(t *testing.T) {
	ls := NewLayerStack(64, 64)
	if !ls.AddLayer(1, SolidFill(RGB8(255, 0, 0)), TopInsertion) {
		t.Fatal("expected AddLayer to succeed")
	}
	if ls.AddLayer(1, SolidFill(RGB8(0, 255, 0)), TopInsertion) {
		t.Fatal("expected AddLayer to reject a duplicate id")
	}
	if !ls.AddLayer(2, SolidFill(RGB8(0, 255, 0)), BottomInsertion) {
		t.Fatal("expected bottom AddLayer to succeed")
	}
	if len(ls.Layers()) != 2 || ls.Layers()[0].ID != 2 || ls.Layers()[1].ID != 1 {
		t.Fatalf("unexpected layer order: %+v", ls.Layers())
	}
	if !ls.AddLayer(3, SolidFill(RGB8(0, 0, 255)), AboveInsertion(2)) {
		t.Fatal("expected above-insertion AddLayer to succeed")
	}
	ids := []LayerID{ls.Layers()[0].ID, ls.Layers()[1].ID, ls.Layers()[2].ID}
	if ids[0] != 2 || ids[1] != 3 || ids[2] != 1 {
		t.Fatalf("unexpected layer order after above-insertion: %v", ids)
	}
}

func TestLayerStackRemoval(t *testing.T) {
	ls := NewLayerStack(64, 64)
	ls.AddLayer(1, SolidFill(Transparent), TopInsertion)
	ls.AddLayer(2, SolidFill(Transparent), TopInsertion)
	removed := ls.RemoveLayer(1)
	if removed == nil || removed.ID != 1 {
		t.Fatal("expected to remove layer 1")
	}
	if len(ls.Layers()) != 1 || ls.Layers()[0].ID != 2 {
		t.Fatalf("unexpected remaining layers: %+v", ls.Layers())
	}
	if ls.RemoveLayer(99) != nil {
		t.Fatal("removing a nonexistent layer should return nil")
	}
}

func TestLayerStackFlattening(t *testing.T) {
	ls := NewLayerStack(128, 64)
	ls.Background = NewTile(RGB8(255, 255, 255), 0)
	ls.AddLayer(1, SolidFill(Transparent), TopInsertion)
	layer := ls.GetLayerMut(1)
	layer.Opacity = 0.5
	layer.TileMut(0, 0).Fill(RGB8(255, 0, 0), 1)

	img := ls.ToImage()
	want := RGB8(255, 128, 128).AsPixel()
	if got := img[0]; got != want {
		t.Fatalf("pixel(0,0) = %#x, want %#x", got, want)
	}
	if got := img[TileSize]; got != RGB8(255, 255, 255).AsPixel() {
		t.Fatalf("untouched tile(1,0) pixel = %#x, want white", got)
	}
}

func TestLayerStackReordered(t *testing.T) {
	ls := NewLayerStack(64, 64)
	ls.AddLayer(1, SolidFill(Transparent), TopInsertion)
	ls.AddLayer(2, SolidFill(Transparent), TopInsertion)
	ls.AddLayer(3, SolidFill(Transparent), TopInsertion)

	ls.Reordered([]LayerID{3, 99, 1})
	ids := []LayerID{ls.Layers()[0].ID, ls.Layers()[1].ID, ls.Layers()[2].ID}
	if ids[0] != 3 || ids[1] != 1 || ids[2] != 2 {
		t.Fatalf("unexpected order after Reordered: %v", ids)
	}
}

func TestLayerStackCOWSharesUntouchedLayers(t *testing.T) {
	ls := NewLayerStack(64, 64)
	ls.AddLayer(1, SolidFill(Transparent), TopInsertion)
	ls.AddLayer(2, SolidFill(Transparent), TopInsertion)

	savepoint := ls.Clone()
	layer1Before := savepoint.GetLayer(1)

	ls = ls.Own()
	mut := ls.GetLayerMut(2)
	mut.Opacity = 0.25

	if savepoint.GetLayer(1) != layer1Before {
		t.Fatal("mutating layer 2 should not disturb the savepoint's layer 1 handle")
	}
	if savepoint.GetLayer(2).Opacity == 0.25 {
		t.Fatal("savepoint's layer 2 should be unaffected by the live mutation")
	}
}

func TestLayerStackOwnClonesWhenShared(t *testing.T) {
	ls := NewLayerStack(64, 64)
	ls.AddLayer(1, SolidFill(Transparent), TopInsertion)

	shared := ls.Clone()
	owned := ls.Own()
	if owned == shared {
		t.Fatal("Own should return a distinct pointer once the stack is shared")
	}
	owned.AddLayer(2, SolidFill(Transparent), TopInsertion)
	if len(shared.Layers()) != 1 {
		t.Fatalf("mutating the owned copy should not affect the shared handle, got %d layers", len(shared.Layers()))
	}

	solo := NewLayerStack(64, 64)
	if solo.Own() != solo {
		t.Fatal("Own should return the same pointer when refs == 1")
	}
}

func TestLayerStackResized(t *testing.T) {
	ls := NewLayerStack(64, 64)
	ls.AddLayer(1, SolidFill(RGB8(1, 2, 3)), TopInsertion)
	out, ok := ls.Resized(10, 10, 10, 10)
	if !ok {
		t.Fatal("expected Resized to succeed")
	}
	if out.Width() != 84 || out.Height() != 84 {
		t.Fatalf("resized canvas size = %dx%d, want 84x84", out.Width(), out.Height())
	}
	if _, ok := out.Resized(-200, 0, 0, 0); ok {
		t.Fatal("expected a resize that collapses dimensions to non-positive to fail")
	}
}
