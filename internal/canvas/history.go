// Package canvas implements the dispatch layer that turns incoming protocol
// messages into paint package mutations: command history with undo/redo,
// tile (de)compression, brush-stroke routing, and change-observation.
package canvas

import (
	"github.com/MeKo-Tech/stroke/internal/paint"
	"github.com/MeKo-Tech/stroke/internal/protocol"
)

// UndoDepth is the protocol's bound on how many undopoints (counted across
// all users together) stay reachable; anything older is pruned from history
// on the next branch.
const UndoDepth = 30

type undoState uint8

const (
	stateDone undoState = iota
	stateUndone
	stateGone
)

type historyEntry struct {
	msg    protocol.Message
	state  undoState
	seqNum uint32
}

type savepoint struct {
	layerstack *paint.LayerStack
	seqNum     uint32
}

// History is the append-only command log backing undo/redo, plus the
// periodic LayerStack savepoints undo replays from.
type History struct {
	entries    []historyEntry
	savepoints []savepoint
	sequence   uint32
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Add records msg. Undo messages are never recorded (they're not themselves
// undoable); an UndoPoint branches the history, marking the sending user's
// previously-undone entries Gone and pruning savepoints/entries that fall
// entirely behind the new oldest-reachable-undopoint boundary.
func (h *History) Add(msg protocol.Message) {
	if msg.Payload.Type() == protocol.TypeUndo {
		return
	}
	branch := msg.Payload.Type() == protocol.TypeUndoPoint

	h.sequence++
	h.entries = append(h.entries, historyEntry{msg: msg, state: stateDone, seqNum: h.sequence})

	if !branch {
		return
	}
	branchUser := msg.UserID
	for i := range h.entries {
		if h.entries[i].state == stateUndone && h.entries[i].msg.UserID == branchUser {
			h.entries[i].state = stateGone
		}
	}

	oldest, ok := h.oldestUndopointSeqnum()
	if !ok {
		return
	}
	deleteUpTo := uint32(0)
	for i := 0; i < len(h.savepoints); i++ {
		if i+1 < len(h.savepoints) {
			next := h.savepoints[i+1]
			if next.seqNum < oldest {
				deleteUpTo = h.savepoints[i].seqNum
				continue
			}
		}
		break
	}
	if deleteUpTo > 0 {
		h.savepoints = filterSavepoints(h.savepoints, func(sp savepoint) bool { return sp.seqNum > deleteUpTo })
		h.entries = filterEntries(h.entries, func(e historyEntry) bool { return e.seqNum > deleteUpTo })
	}
}

// oldestUndopointSeqnum finds the sequence number of the oldest UndoPoint
// still within UndoDepth, scanning from the newest entry backward.
// Unreachable (Gone) undopoints still count toward the depth limit.
func (h *History) oldestUndopointSeqnum() (uint32, bool) {
	ups := 0
	var oldest uint32
	found := false
	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].msg.Payload.Type() == protocol.TypeUndoPoint {
			ups++
			oldest = h.entries[i].seqNum
			found = true
			if ups >= UndoDepth {
				break
			}
		}
	}
	return oldest, found
}

// OldestUndopointSeqnum is the exported form of oldestUndopointSeqnum, used
// by tests exercising the depth-pruning contract directly.
func (h *History) OldestUndopointSeqnum() (uint32, bool) {
	return h.oldestUndopointSeqnum()
}

// UndoUser undoes the given user's last undoable sequence: the most recent
// still-Done entries back to (and including) their newest UndoPoint within
// UndoDepth. Returns the LayerStack savepoint to roll back to and the
// messages (by other users, or by this user from earlier undopoints) that
// must be replayed on top of it via the canvas state's message handler —
// never re-recorded into history. Returns ok=false if there is nothing left
// to undo, or no savepoint old enough to roll back to.
func (h *History) UndoUser(user uint8) (*paint.LayerStack, []protocol.Message, bool) {
	oldestUp, ok := h.oldestUndopointSeqnum()
	if !ok {
		return nil, nil, false
	}

	var firstUndopointSeqnum uint32
	found := false
	for i := len(h.entries) - 1; i >= 0; i-- {
		e := h.entries[i]
		if e.seqNum < oldestUp {
			break
		}
		if e.msg.UserID == user && e.msg.Payload.Type() == protocol.TypeUndoPoint && e.state == stateDone {
			firstUndopointSeqnum = e.seqNum
			found = true
			break
		}
	}
	if !found {
		return nil, nil, false
	}

	sp, ok := h.lastSavepointAtOrBefore(firstUndopointSeqnum)
	if !ok {
		return nil, nil, false
	}

	for i := len(h.entries) - 1; i >= 0; i-- {
		e := &h.entries[i]
		if e.seqNum < firstUndopointSeqnum {
			break
		}
		if e.msg.UserID == user && e.state == stateDone {
			e.state = stateUndone
		}
	}

	replay := h.replayAfter(sp.seqNum)
	h.savepoints = filterSavepoints(h.savepoints, func(s savepoint) bool { return s.seqNum <= sp.seqNum })
	return sp.layerstack, replay, true
}

// RedoUser redoes the given user's most recently undone sequence.
func (h *History) RedoUser(user uint8) (*paint.LayerStack, []protocol.Message, bool) {
	oldestUp, ok := h.oldestUndopointSeqnum()
	if !ok {
		return nil, nil, false
	}

	var firstUndopointSeqnum uint32
	found := false
	for i := 0; i < len(h.entries); i++ {
		e := h.entries[i]
		if e.seqNum < oldestUp {
			continue
		}
		if e.msg.UserID == user && e.msg.Payload.Type() == protocol.TypeUndoPoint && e.state == stateUndone {
			firstUndopointSeqnum = e.seqNum
			found = true
			break
		}
	}
	if !found {
		return nil, nil, false
	}

	sp, ok := h.lastSavepointAtOrBefore(firstUndopointSeqnum)
	if !ok {
		return nil, nil, false
	}

	started := false
	for i := 0; i < len(h.entries); i++ {
		e := &h.entries[i]
		if e.seqNum < firstUndopointSeqnum {
			continue
		}
		if e.msg.UserID != user || e.state == stateGone {
			continue
		}
		if e.msg.Payload.Type() == protocol.TypeUndoPoint && e.seqNum != firstUndopointSeqnum && started {
			break
		}
		e.state = stateDone
		started = true
	}

	replay := h.replayAfter(sp.seqNum)
	h.savepoints = filterSavepoints(h.savepoints, func(s savepoint) bool { return s.seqNum <= sp.seqNum })
	return sp.layerstack, replay, true
}

func (h *History) lastSavepointAtOrBefore(seqNum uint32) (savepoint, bool) {
	for i := len(h.savepoints) - 1; i >= 0; i-- {
		if h.savepoints[i].seqNum <= seqNum {
			return h.savepoints[i], true
		}
	}
	return savepoint{}, false
}

func (h *History) replayAfter(seqNum uint32) []protocol.Message {
	var out []protocol.Message
	for _, e := range h.entries {
		if e.seqNum > seqNum && e.state == stateDone {
			out = append(out, e.msg)
		}
	}
	return out
}

// AddSavepoint records a savepoint at the current sequence position,
// incrementing layerstack's reference count.
func (h *History) AddSavepoint(layerstack *paint.LayerStack) {
	h.savepoints = append(h.savepoints, savepoint{layerstack: layerstack.Clone(), seqNum: h.sequence})
}

func filterSavepoints(in []savepoint, keep func(savepoint) bool) []savepoint {
	out := in[:0]
	for _, sp := range in {
		if keep(sp) {
			out = append(out, sp)
		}
	}
	return out
}

func filterEntries(in []historyEntry, keep func(historyEntry) bool) []historyEntry {
	out := in[:0]
	for _, e := range in {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
