package canvas

import (
	"github.com/MeKo-Tech/stroke/internal/paint"
	"github.com/MeKo-Tech/stroke/internal/protocol"
)

// CanvasObserver is notified whenever an applied message changes the canvas.
type CanvasObserver interface {
	Changed(area paint.AoE)
}

// ObservableCanvasState wraps a CanvasState with a set of observers notified
// on every non-empty change. The reference holds observers as
// Weak<RefCell<dyn CanvasObserver>>, dropping dead ones opportunistically on
// each notification; Go has no idiomatic equivalent of a weak trait object,
// so observers here are plain strong references and must be removed
// explicitly via RemoveObserver (e.g. on session disconnect) to avoid
// leaking.
type ObservableCanvasState struct {
	*CanvasState
	observers []CanvasObserver
}

// NewObservableCanvasState wraps state with observer notification.
func NewObservableCanvasState(state *CanvasState) *ObservableCanvasState {
	return &ObservableCanvasState{CanvasState: state}
}

// AddObserver registers o to be notified of future canvas changes.
func (o *ObservableCanvasState) AddObserver(obs CanvasObserver) {
	o.observers = append(o.observers, obs)
}

// RemoveObserver unregisters obs, if present.
func (o *ObservableCanvasState) RemoveObserver(obs CanvasObserver) {
	for i, x := range o.observers {
		if x == obs {
			o.observers = append(o.observers[:i], o.observers[i+1:]...)
			return
		}
	}
}

func (o *ObservableCanvasState) notify(aoe paint.AoE) paint.AoE {
	if !aoe.IsNothing() {
		for _, obs := range o.observers {
			obs.Changed(aoe)
		}
	}
	return aoe
}

// ReceiveMessage applies msg to the wrapped CanvasState and notifies
// observers if it changed anything.
func (o *ObservableCanvasState) ReceiveMessage(msg protocol.Message) paint.AoE {
	return o.notify(o.CanvasState.ReceiveMessage(msg))
}

// ReceiveLocalMessage applies msg locally (unrecorded) and notifies
// observers if it changed anything.
func (o *ObservableCanvasState) ReceiveLocalMessage(msg protocol.Message) paint.AoE {
	return o.notify(o.CanvasState.ReceiveLocalMessage(msg))
}
