package canvas

import (
	"testing"

	"github.com/MeKo-Tech/stroke/internal/paint"
	"github.com/MeKo-Tech/stroke/internal/protocol"
)

func undoPoint(user uint8) protocol.Message {
	return protocol.Message{UserID: user, Payload: &protocol.UndoPointMessage{}}
}

func fillRect(user uint8) protocol.Message {
	return protocol.Message{UserID: user, Payload: &protocol.FillRectMessage{Layer: 1, W: 1, H: 1}}
}

func TestHistoryAddSkipsUndoMessages(t *testing.T) {
	h := NewHistory()
	h.Add(fillRect(1))
	h.Add(protocol.Message{UserID: 1, Payload: &protocol.UndoMessage{}})
	if len(h.entries) != 1 {
		t.Fatalf("expected Undo messages to be skipped, got %d entries", len(h.entries))
	}
}

func TestHistoryDepthPruning(t *testing.T) {
	h := NewHistory()
	ls := paint.NewLayerStack(8, 8)

	for i := 0; i < 35; i++ {
		h.AddSavepoint(ls)
		h.Add(undoPoint(1))
	}

	oldest, ok := h.OldestUndopointSeqnum()
	if !ok {
		t.Fatal("expected an oldest reachable undopoint")
	}
	// 35 undopoints recorded, only the newest UndoDepth (30) stay reachable:
	// the oldest reachable one is the 6th recorded (35-30+1).
	if oldest != 6 {
		t.Fatalf("oldest reachable undopoint seqnum = %d, want 6", oldest)
	}

	for _, sp := range h.savepoints {
		if sp.seqNum > 0 && sp.seqNum < oldest-1 {
			t.Fatalf("savepoint at seqnum %d should have been pruned behind boundary %d", sp.seqNum, oldest)
		}
	}
}

func TestHistoryUndoRedoRoundTrip(t *testing.T) {
	h := NewHistory()
	ls := paint.NewLayerStack(8, 8)
	h.AddSavepoint(ls)

	h.Add(fillRect(1))
	h.Add(undoPoint(1))
	h.Add(fillRect(1))

	sp, replay, ok := h.UndoUser(1)
	if !ok {
		t.Fatal("expected UndoUser to succeed")
	}
	if sp == nil {
		t.Fatal("expected a non-nil savepoint")
	}
	if len(replay) != 1 {
		t.Fatalf("expected the fill made before the undopoint to be replayed (1 message), got %d", len(replay))
	}

	_, _, ok = h.RedoUser(1)
	if !ok {
		t.Fatal("expected RedoUser to succeed after an undo")
	}
}

func TestHistoryUndoWithNothingToUndoFails(t *testing.T) {
	h := NewHistory()
	if _, _, ok := h.UndoUser(1); ok {
		t.Fatal("expected UndoUser to fail with empty history")
	}
}
