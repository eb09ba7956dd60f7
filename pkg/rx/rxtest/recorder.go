// Package rxtest provides test support for observing rx streams.
package rxtest

import (
	"sync"

	"github.com/rivulet-dev/rivulet/pkg/rx"
)

// Recorder records events for tests and diagnostics.
//
// Recorder is safe under concurrent Observe callbacks.
type Recorder[T any] struct {
	mu     sync.Mutex
	events []rx.Event[T]
}

// NewRecorder constructs an empty Recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{}
}

// Observe is the callback to register with Stream.Observe or
// Producer.StartObservingAll.
func (r *Recorder[T]) Observe(e rx.Event[T]) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a snapshot copy of recorded events.
func (r *Recorder[T]) Events() []rx.Event[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]rx.Event[T], len(r.events))
	copy(cp, r.events)
	return cp
}

// Values returns the Next payloads in recorded order.
func (r *Recorder[T]) Values() []T {
	evs := r.Events()
	out := make([]T, 0, len(evs))
	for _, e := range evs {
		if e.Kind == rx.KindNext {
			out = append(out, e.Value)
		}
	}
	return out
}

// Terminal returns the recorded terminal event and true if one arrived.
func (r *Recorder[T]) Terminal() (rx.Event[T], bool) {
	for _, e := range r.Events() {
		if e.IsTerminal() {
			return e, true
		}
	}
	var zero rx.Event[T]
	return zero, false
}

// Reset clears the recorder.
func (r *Recorder[T]) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
