package rx

// Producer is a cold blueprint for a stream.
//
// Each Start invocation creates a brand-new Stream/Sender pair and runs
// the start routine against it; the resulting streams are causally
// unrelated even when their emitted values coincide. A Producer carries
// no state across starts.
type Producer[T any] struct {
	start func(Sender[T], *Token)
}

// NewProducer wraps a start routine into a Producer.
//
// The routine may push events synchronously before returning, or hand the
// Sender to scheduled work and push later; both are valid. It must treat
// the Token as its cancellation signal: once cancelled, stop pushing and
// stop scheduling further work.
func NewProducer[T any](start func(Sender[T], *Token)) Producer[T] {
	return Producer[T]{start: start}
}

// Start creates a fresh Stream, runs the start routine, and returns the
// stream together with a Disposable for the active start.
//
// The routine runs synchronously before Start returns, so events it
// pushes immediately are multicast to zero observers. Attach observers
// first via StartObservingAll when synchronous emission matters.
//
// Disposing the returned handle cancels the Token and interrupts the
// stream (if still live).
func (p Producer[T]) Start() (*Stream[T], *Disposable) {
	stream, sender := NewStream[T]()
	tok := newToken()

	d := newDisposable(func() {
		tok.cancel()
		stream.interrupt()
	})

	if p.start != nil {
		p.start(sender, tok)
	}
	return stream, d
}

// StartObservingAll starts the producer with fn already observing, so
// synchronously pushed events are not lost. Returns the handle for the
// active start; disposing it cancels the start and removes the
// observation.
func (p Producer[T]) StartObservingAll(fn func(Event[T])) *Disposable {
	stream, sender := NewStream[T]()
	tok := newToken()

	obs := stream.Observe(fn)
	d := newDisposable(func() {
		tok.cancel()
		obs.Dispose()
	})

	if p.start != nil {
		p.start(sender, tok)
	}
	return d
}

// StartObservingNext is sugar over StartObservingAll for callers that
// only care about values.
func (p Producer[T]) StartObservingNext(fn func(T)) *Disposable {
	return p.StartObservingAll(func(e Event[T]) {
		if e.Kind == KindNext {
			fn(e.Value)
		}
	})
}

// FromStream wraps an existing hot stream so producer operators apply to
// it. Starting the result observes the stream and forwards every event;
// disposing the start removes that observation.
func FromStream[T any](s *Stream[T]) Producer[T] {
	return NewProducer(func(out Sender[T], tok *Token) {
		d := s.Observe(out.Send)
		tok.OnCancel(d.Dispose)
	})
}

// FromValues returns a producer that synchronously emits the given
// values in order and completes.
func FromValues[T any](values ...T) Producer[T] {
	return NewProducer(func(out Sender[T], tok *Token) {
		for _, v := range values {
			if tok.Canceled() {
				return
			}
			out.SendNext(v)
		}
		out.SendCompleted()
	})
}

// Empty returns a producer that completes immediately without values.
func Empty[T any]() Producer[T] {
	return NewProducer(func(out Sender[T], _ *Token) {
		out.SendCompleted()
	})
}

// Fail returns a producer that fails immediately with err.
func Fail[T any](err error) Producer[T] {
	return NewProducer(func(out Sender[T], _ *Token) {
		out.SendFailed(err)
	})
}

// Never returns a producer that emits nothing and never terminates on
// its own. Useful with TimeoutWithError and in tests.
func Never[T any]() Producer[T] {
	return NewProducer(func(Sender[T], *Token) {})
}
