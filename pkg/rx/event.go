package rx

import "fmt"

// EventKind identifies the variant of an Event.
type EventKind uint8

const (
	// KindNext carries one value of the stream.
	KindNext EventKind = iota + 1

	// KindFailed terminates the stream with an error.
	KindFailed

	// KindCompleted terminates the stream successfully.
	KindCompleted

	// KindInterrupted terminates the stream because observation stopped
	// before a natural terminal event arrived.
	KindInterrupted
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case KindNext:
		return "Next"
	case KindFailed:
		return "Failed"
	case KindCompleted:
		return "Completed"
	case KindInterrupted:
		return "Interrupted"
	default:
		return "Unknown"
	}
}

// Event is a single occurrence in a stream's lifecycle.
//
// Value is meaningful only for KindNext; Err only for KindFailed.
// Typed error domains are plain Go error values unified at composition
// time via MapError and PromoteErrors.
type Event[T any] struct {
	Kind  EventKind
	Value T
	Err   error
}

// Next returns a value event.
func Next[T any](v T) Event[T] {
	return Event[T]{Kind: KindNext, Value: v}
}

// Failed returns a failure terminal event.
func Failed[T any](err error) Event[T] {
	return Event[T]{Kind: KindFailed, Err: err}
}

// Completed returns a success terminal event.
func Completed[T any]() Event[T] {
	return Event[T]{Kind: KindCompleted}
}

// Interrupted returns an interruption terminal event.
func Interrupted[T any]() Event[T] {
	return Event[T]{Kind: KindInterrupted}
}

// IsTerminal reports whether the event ends the stream's lifecycle.
func (e Event[T]) IsTerminal() bool {
	return e.Kind == KindFailed || e.Kind == KindCompleted || e.Kind == KindInterrupted
}

// String returns a debug representation of the event.
func (e Event[T]) String() string {
	switch e.Kind {
	case KindNext:
		return fmt.Sprintf("Next(%v)", e.Value)
	case KindFailed:
		return fmt.Sprintf("Failed(%v)", e.Err)
	default:
		return e.Kind.String()
	}
}
