package canvas

import (
	"testing"

	"github.com/MeKo-Tech/stroke/internal/paint"
	"github.com/MeKo-Tech/stroke/internal/protocol"
)

type recordingObserver struct {
	calls int
}

func (r *recordingObserver) Changed(area paint.AoE) { r.calls++ }

func TestObservableCanvasStateNotifiesOnChange(t *testing.T) {
	o := NewObservableCanvasState(NewCanvasState(64, 64))
	obs := &recordingObserver{}
	o.AddObserver(obs)

	o.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.LayerCreateMessage{ID: 1, Name: "layer"}})
	if obs.calls != 1 {
		t.Fatalf("expected 1 notification, got %d", obs.calls)
	}

	o.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.LayerRetitleMessage{ID: 1, Title: "renamed"}})
	if obs.calls != 1 {
		t.Fatalf("expected LayerRetitle (NothingAoE) not to notify, got %d calls", obs.calls)
	}

	o.RemoveObserver(obs)
	o.ReceiveMessage(protocol.Message{UserID: 1, Payload: &protocol.LayerCreateMessage{ID: 2, Name: "layer2"}})
	if obs.calls != 1 {
		t.Fatalf("expected no notification after RemoveObserver, got %d calls total", obs.calls)
	}
}
