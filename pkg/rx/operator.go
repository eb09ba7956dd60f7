package rx

// Operators are pure transformations from Producer to Producer: each one
// composes a new start routine around the source's. They preserve the
// ordering of Next events, propagate terminal events downstream, and
// never emit more than one terminal event.

// Map transforms every value with f; terminal events pass through
// unchanged.
func Map[T, U any](p Producer[T], f func(T) U) Producer[U] {
	return NewProducer(func(out Sender[U], tok *Token) {
		d := p.StartObservingAll(func(e Event[T]) {
			switch e.Kind {
			case KindNext:
				out.SendNext(f(e.Value))
			case KindFailed:
				out.SendFailed(e.Err)
			case KindCompleted:
				out.SendCompleted()
			case KindInterrupted:
				out.Send(Interrupted[U]())
			}
		})
		tok.OnCancel(d.Dispose)
	})
}

// Filter forwards only values for which pred holds. Suppressed values
// are dropped with no side channel; terminal events pass through.
func Filter[T any](p Producer[T], pred func(T) bool) Producer[T] {
	return NewProducer(func(out Sender[T], tok *Token) {
		d := p.StartObservingAll(func(e Event[T]) {
			if e.Kind == KindNext && !pred(e.Value) {
				return
			}
			out.Send(e)
		})
		tok.OnCancel(d.Dispose)
	})
}

// Attempt validates every value with check. On the first check failure
// the composed stream fails with that error and stops forwarding: later
// upstream values are never evaluated.
func Attempt[T any](p Producer[T], check func(T) error) Producer[T] {
	return NewProducer(func(out Sender[T], tok *Token) {
		failed := false
		var upstream *Disposable
		upstream = p.StartObservingAll(func(e Event[T]) {
			if failed {
				return
			}
			if e.Kind != KindNext {
				out.Send(e)
				return
			}
			// The flag matters for synchronous sources: upstream may
			// still be mid-start, so later values must not even be
			// evaluated once a check has failed.
			if err := check(e.Value); err != nil {
				failed = true
				out.SendFailed(err)
				upstream.Dispose()
				return
			}
			out.SendNext(e.Value)
		})
		tok.OnCancel(upstream.Dispose)
	})
}

// MapError transforms failure errors with f, leaving values and other
// terminal events untouched. Used to unify divergent error domains at
// the point operators are composed.
func MapError[T any](p Producer[T], f func(error) error) Producer[T] {
	return NewProducer(func(out Sender[T], tok *Token) {
		d := p.StartObservingAll(func(e Event[T]) {
			if e.Kind == KindFailed {
				out.SendFailed(f(e.Err))
				return
			}
			out.Send(e)
		})
		tok.OnCancel(d.Dispose)
	})
}

// PromoteErrors widens a never-failing producer so it composes with
// fallible ones. The result never itself produces a Failed event; it
// only declares that failures of the target error domain may flow
// through stages composed after it.
func PromoteErrors[T any](p Producer[T]) Producer[T] {
	return NewProducer(func(out Sender[T], tok *Token) {
		d := p.StartObservingAll(out.Send)
		tok.OnCancel(d.Dispose)
	})
}

// On attaches side-effect callbacks to a producer without altering its
// events. Nil callbacks are skipped. The callbacks run before the event
// is forwarded downstream.
func On[T any](p Producer[T], fn func(Event[T])) Producer[T] {
	return NewProducer(func(out Sender[T], tok *Token) {
		d := p.StartObservingAll(func(e Event[T]) {
			if fn != nil {
				fn(e)
			}
			out.Send(e)
		})
		tok.OnCancel(d.Dispose)
	})
}

// Take forwards the first n values then completes, disposing upstream.
// Take of zero completes immediately.
func Take[T any](p Producer[T], n int) Producer[T] {
	return NewProducer(func(out Sender[T], tok *Token) {
		if n <= 0 {
			out.SendCompleted()
			return
		}
		remaining := n
		var upstream *Disposable
		upstream = p.StartObservingAll(func(e Event[T]) {
			if e.Kind != KindNext {
				out.Send(e)
				return
			}
			out.SendNext(e.Value)
			remaining--
			if remaining == 0 {
				out.SendCompleted()
				upstream.Dispose()
			}
		})
		tok.OnCancel(upstream.Dispose)
	})
}
