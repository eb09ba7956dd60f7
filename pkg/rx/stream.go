package rx

import "sync"

// observation is one registered observer callback.
// The slice it lives in is kept in insertion order because delivery
// order is registration order.
type observation[T any] struct {
	id uint64
	fn func(Event[T])
}

// Stream is a hot, multicast channel of events.
//
// A Stream is created live, paired with exactly one Sender, becomes
// terminal at most once, and is immutable afterwards. Observer
// bookkeeping is mutex-guarded; event delivery happens outside the lock
// (copy-before-notify) on the sender's goroutine.
type Stream[T any] struct {
	mu sync.Mutex

	// observers in registration order. Cleared on termination.
	observers []observation[T]

	// terminal is the recorded terminal event, nil while live.
	terminal *Event[T]
}

// NewStream creates a live Stream and its paired Sender.
//
// The Sender is the only way to push events into the Stream. Typically
// the pair is created inside a Producer's start; create one directly to
// bridge an external callback source into the reactive world.
func NewStream[T any]() (*Stream[T], Sender[T]) {
	s := &Stream[T]{}
	return s, Sender[T]{stream: s}
}

// Observe registers fn to receive every subsequent event, in push order,
// synchronously on the pushing goroutine.
//
// If the stream is already terminal, fn is invoked once, synchronously,
// with the recorded terminal event and an already-disposed handle is
// returned. Re-delivery to late observers is the documented policy: a
// late observer learns deterministically how the stream ended.
//
// Disposing the returned handle removes the registration immediately.
// If that removes the last observer of a live stream, the stream
// transitions to Interrupted.
func (s *Stream[T]) Observe(fn func(Event[T])) *Disposable {
	if fn == nil {
		return newDisposedDisposable()
	}

	s.mu.Lock()
	if s.terminal != nil {
		term := *s.terminal
		s.mu.Unlock()
		fn(term)
		return newDisposedDisposable()
	}

	id := nextID()
	s.observers = append(s.observers, observation[T]{id: id, fn: fn})
	s.mu.Unlock()

	return newDisposable(func() {
		s.removeObserver(id)
	})
}

// IsTerminal reports whether the stream has reached a terminal state.
func (s *Stream[T]) IsTerminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal != nil
}

// TerminalEvent returns the recorded terminal event and true once the
// stream is terminal.
func (s *Stream[T]) TerminalEvent() (Event[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal == nil {
		return Event[T]{}, false
	}
	return *s.terminal, true
}

// push delivers e to all currently registered observers in registration
// order. A terminal event is recorded, clears the observer list, and
// absorbs the stream; any push after that is a silent no-op.
func (s *Stream[T]) push(e Event[T]) {
	s.mu.Lock()
	if s.terminal != nil {
		s.mu.Unlock()
		return
	}

	var observers []observation[T]
	if e.IsTerminal() {
		s.terminal = &e
		observers = s.observers
		s.observers = nil
	} else {
		observers = make([]observation[T], len(s.observers))
		copy(observers, s.observers)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o.fn(e)
	}
}

// interrupt transitions a live stream to Interrupted. No-op once terminal.
func (s *Stream[T]) interrupt() {
	s.push(Interrupted[T]())
}

// removeObserver removes the registration with the given ID. Removing
// the last observer of a live stream interrupts the stream.
func (s *Stream[T]) removeObserver(id uint64) {
	s.mu.Lock()
	for i, o := range s.observers {
		if o.id == id {
			// Preserve order: delivery order is registration order.
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			break
		}
	}
	interrupt := len(s.observers) == 0 && s.terminal == nil
	s.mu.Unlock()

	if interrupt {
		s.interrupt()
	}
}

// Sender is the write side of a Stream. The zero value is inert.
//
// A Sender is a small copyable handle; all copies push into the same
// Stream. After a terminal send, further sends are silent no-ops, so
// calling SendCompleted twice, or SendNext after a failure, is harmless.
type Sender[T any] struct {
	stream *Stream[T]
}

// SendNext pushes a value event.
func (s Sender[T]) SendNext(v T) {
	if s.stream == nil {
		return
	}
	s.stream.push(Next(v))
}

// SendFailed pushes a failure terminal event.
func (s Sender[T]) SendFailed(err error) {
	if s.stream == nil {
		return
	}
	s.stream.push(Failed[T](err))
}

// SendCompleted pushes a success terminal event.
func (s Sender[T]) SendCompleted() {
	if s.stream == nil {
		return
	}
	s.stream.push(Completed[T]())
}

// Send pushes an arbitrary event. Useful when forwarding events verbatim
// between streams inside operators.
func (s Sender[T]) Send(e Event[T]) {
	if s.stream == nil || e.Kind == 0 {
		return
	}
	s.stream.push(e)
}
