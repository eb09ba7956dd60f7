package rx

import "sync"

// CombineLatest starts all producers and emits a slice of the latest
// value from each, every time any one of them emits — but only once
// every producer has emitted at least once. The emitted slice is a
// fresh copy on every event.
//
// The combined stream completes when all inputs have completed and
// fails immediately when any input fails, disposing the others. With no
// inputs it completes immediately.
func CombineLatest[T any](producers ...Producer[T]) Producer[[]T] {
	return NewProducer(func(out Sender[[]T], tok *Token) {
		n := len(producers)
		if n == 0 {
			out.SendCompleted()
			return
		}

		st := &combineState[T]{
			out:    out,
			latest: make([]T, n),
			seen:   make([]bool, n),
			starts: make([]*Disposable, n),
		}

		for i, p := range producers {
			i := i
			d := p.StartObservingAll(func(e Event[T]) {
				st.event(i, e)
			})
			st.mu.Lock()
			done := st.terminated
			if !done {
				st.starts[i] = d
			}
			st.mu.Unlock()
			if done {
				d.Dispose()
			}
		}

		tok.OnCancel(st.cancel)
	})
}

// combineState tracks the latest value per input for one CombineLatest
// start.
type combineState[T any] struct {
	mu         sync.Mutex
	out        Sender[[]T]
	latest     []T
	seen       []bool
	starts     []*Disposable
	completed  int
	terminated bool
}

func (st *combineState[T]) event(i int, e Event[T]) {
	switch e.Kind {
	case KindNext:
		st.mu.Lock()
		if st.terminated {
			st.mu.Unlock()
			return
		}
		st.latest[i] = e.Value
		st.seen[i] = true
		ready := true
		for _, s := range st.seen {
			if !s {
				ready = false
				break
			}
		}
		var snapshot []T
		if ready {
			snapshot = make([]T, len(st.latest))
			copy(snapshot, st.latest)
		}
		st.mu.Unlock()
		if ready {
			st.out.SendNext(snapshot)
		}

	case KindFailed:
		st.terminate(Failed[[]T](e.Err), i)

	case KindCompleted:
		st.mu.Lock()
		st.completed++
		complete := !st.terminated && st.completed == len(st.seen)
		if complete {
			st.terminated = true
		}
		st.mu.Unlock()
		if complete {
			st.out.SendCompleted()
		}

	case KindInterrupted:
		st.terminate(Interrupted[[]T](), i)
	}
}

// terminate ends the combined stream with e and disposes every other
// input's start.
func (st *combineState[T]) terminate(e Event[[]T], from int) {
	ds, already := st.retire(from)
	if already {
		return
	}
	st.out.Send(e)
	for _, d := range ds {
		d.Dispose()
	}
}

func (st *combineState[T]) cancel() {
	ds, already := st.retire(-1)
	if already {
		return
	}
	for _, d := range ds {
		d.Dispose()
	}
}

// retire marks the state terminated and drains the other inputs'
// disposables. from is the input index that caused the termination
// (-1 for cancellation) and is excluded from the result.
func (st *combineState[T]) retire(from int) (ds []*Disposable, already bool) {
	st.mu.Lock()
	if st.terminated {
		st.mu.Unlock()
		return nil, true
	}
	st.terminated = true
	for i, d := range st.starts {
		if i != from && d != nil {
			ds = append(ds, d)
		}
		st.starts[i] = nil
	}
	st.mu.Unlock()
	return ds, false
}

// Pair is the product of two values from CombineLatest2.
type Pair[A, B any] struct {
	First  A
	Second B
}

// CombineLatest2 is CombineLatest over two differently typed inputs.
// Same contract: no output before both have emitted, a Pair of the
// latest values on every subsequent emission, completion when both
// complete, immediate failure when either fails.
func CombineLatest2[A, B any](pa Producer[A], pb Producer[B]) Producer[Pair[A, B]] {
	// Reuse the homogeneous machinery by erasing both sides to any.
	ea := Map(pa, func(v A) any { return v })
	eb := Map(pb, func(v B) any { return v })
	combined := CombineLatest(ea, eb)
	return Map(combined, func(vs []any) Pair[A, B] {
		return Pair[A, B]{First: vs[0].(A), Second: vs[1].(B)}
	})
}
