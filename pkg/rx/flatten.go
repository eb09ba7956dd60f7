package rx

import "sync"

// FlattenStrategy is the concurrency policy FlatMap applies to the inner
// streams produced from upstream values.
type FlattenStrategy uint8

const (
	// Latest keeps at most one inner stream active. Starting a new
	// inner stream disposes the previous one; values the old inner
	// pushes after the switch never reach downstream.
	Latest FlattenStrategy = iota + 1

	// Merge runs all inner streams concurrently. Values are forwarded
	// as they arrive, interleaved in arrival order.
	Merge

	// Concat runs inner streams strictly one at a time in upstream
	// arrival order. The next inner starts only after the previous one
	// completed.
	Concat
)

// String returns a human-readable name for the strategy.
func (s FlattenStrategy) String() string {
	switch s {
	case Latest:
		return "Latest"
	case Merge:
		return "Merge"
	case Concat:
		return "Concat"
	default:
		return "Unknown"
	}
}

// FlatMap maps every upstream value to an inner producer and flattens
// the resulting streams into one, governed by the strategy.
//
// The composed stream completes only after upstream has completed AND
// all (for Latest: the current) inner streams have completed. A failure
// from upstream or from any active inner propagates immediately as the
// composed terminal event and disposes every other active inner stream.
// An inner stream that is interrupted on its own counts as finished; it
// does not terminate the composed stream.
func FlatMap[T, U any](p Producer[T], strategy FlattenStrategy, f func(T) Producer[U]) Producer[U] {
	return NewProducer(func(out Sender[U], tok *Token) {
		st := &flattenState[U]{
			strategy: strategy,
			out:      out,
			active:   make(map[uint64]*Disposable),
		}

		st.upstream = p.StartObservingAll(func(e Event[T]) {
			switch e.Kind {
			case KindNext:
				st.value(f(e.Value))
			case KindFailed:
				st.fail(e.Err)
			case KindCompleted:
				st.outerCompleted()
			case KindInterrupted:
				st.interrupt()
			}
		})

		tok.OnCancel(func() {
			st.cancel()
		})
	})
}

// flattenState tracks active inner streams for one FlatMap start.
// The mutex guards bookkeeping only; events are sent outside it.
type flattenState[U any] struct {
	mu       sync.Mutex
	strategy FlattenStrategy
	out      Sender[U]
	upstream *Disposable

	// terminated is set once the composed stream has emitted (or been
	// denied, on cancel) its terminal event. Absorbing.
	terminated bool

	// outerDone is set when upstream completed.
	outerDone bool

	// active maps inner-start ID to its disposable. A nil value is a
	// placeholder for an inner whose start routine is still running.
	active map[uint64]*Disposable

	// currentID is the live inner for Latest (0 = none).
	currentID uint64

	// queue and running serialize inners for Concat.
	queue   []Producer[U]
	running bool
}

// value handles one upstream Next: its inner producer is started,
// queued, or swapped in according to the strategy.
func (st *flattenState[U]) value(inner Producer[U]) {
	st.mu.Lock()
	if st.terminated {
		st.mu.Unlock()
		return
	}

	var replaced *Disposable
	switch st.strategy {
	case Latest:
		if st.currentID != 0 {
			replaced = st.active[st.currentID]
			delete(st.active, st.currentID)
			st.currentID = 0
		}
	case Concat:
		if st.running {
			st.queue = append(st.queue, inner)
			st.mu.Unlock()
			return
		}
		st.running = true
	}
	st.mu.Unlock()

	if replaced != nil {
		replaced.Dispose()
	}
	st.begin(inner)
}

// begin starts an inner producer and registers its disposable. The
// placeholder dance covers inners that finish synchronously while their
// start routine is still on the stack.
func (st *flattenState[U]) begin(inner Producer[U]) {
	id := nextID()

	st.mu.Lock()
	if st.terminated {
		st.mu.Unlock()
		return
	}
	st.active[id] = nil
	if st.strategy == Latest {
		st.currentID = id
	}
	st.mu.Unlock()

	d := inner.StartObservingAll(func(e Event[U]) {
		st.innerEvent(id, e)
	})

	st.mu.Lock()
	if _, live := st.active[id]; live {
		st.active[id] = d
		st.mu.Unlock()
		return
	}
	st.mu.Unlock()
	// Finished (or replaced) during its own start.
	d.Dispose()
}

// innerEvent handles one event from the inner stream with the given ID.
func (st *flattenState[U]) innerEvent(id uint64, e Event[U]) {
	switch e.Kind {
	case KindNext:
		st.mu.Lock()
		_, live := st.active[id]
		dead := st.terminated || !live
		st.mu.Unlock()
		if !dead {
			st.out.SendNext(e.Value)
		}

	case KindFailed:
		st.fail(e.Err)

	case KindCompleted, KindInterrupted:
		st.innerDone(id)
	}
}

// innerDone retires an inner stream, starts the next queued one for
// Concat, and completes downstream when nothing is outstanding.
func (st *flattenState[U]) innerDone(id uint64) {
	st.mu.Lock()
	delete(st.active, id)
	if st.currentID == id {
		st.currentID = 0
	}

	var next *Producer[U]
	if st.strategy == Concat {
		if len(st.queue) > 0 {
			n := st.queue[0]
			st.queue = st.queue[1:]
			next = &n
		} else {
			st.running = false
		}
	}

	complete := next == nil && st.readyToCompleteLocked()
	if complete {
		st.terminated = true
	}
	st.mu.Unlock()

	if complete {
		st.out.SendCompleted()
		return
	}
	if next != nil {
		st.begin(*next)
	}
}

// outerCompleted records upstream completion and completes downstream
// if no inner work remains.
func (st *flattenState[U]) outerCompleted() {
	st.mu.Lock()
	st.outerDone = true
	complete := st.readyToCompleteLocked()
	if complete {
		st.terminated = true
	}
	st.mu.Unlock()

	if complete {
		st.out.SendCompleted()
	}
}

// readyToCompleteLocked reports whether the composed stream may complete.
// Caller holds st.mu.
func (st *flattenState[U]) readyToCompleteLocked() bool {
	if st.terminated || !st.outerDone {
		return false
	}
	switch st.strategy {
	case Latest:
		return st.currentID == 0
	case Concat:
		return !st.running && len(st.queue) == 0
	default:
		return len(st.active) == 0
	}
}

// fail terminates the composed stream with err and disposes everything
// still active.
func (st *flattenState[U]) fail(err error) {
	disposables, already := st.retire()
	if already {
		return
	}
	st.out.SendFailed(err)
	st.upstream.Dispose()
	for _, d := range disposables {
		d.Dispose()
	}
}

// interrupt forwards an upstream interruption downstream.
func (st *flattenState[U]) interrupt() {
	disposables, already := st.retire()
	if already {
		return
	}
	st.out.Send(Interrupted[U]())
	for _, d := range disposables {
		d.Dispose()
	}
}

// cancel stops all work without emitting downstream; the composed
// stream's interruption is handled by the start's own disposal.
func (st *flattenState[U]) cancel() {
	disposables, already := st.retire()
	if already {
		return
	}
	st.upstream.Dispose()
	for _, d := range disposables {
		d.Dispose()
	}
}

// retire marks the state terminated and drains active disposables.
// Returns already=true when a terminal transition happened before.
func (st *flattenState[U]) retire() (disposables []*Disposable, already bool) {
	st.mu.Lock()
	if st.terminated {
		st.mu.Unlock()
		return nil, true
	}
	st.terminated = true
	for _, d := range st.active {
		if d != nil {
			disposables = append(disposables, d)
		}
	}
	st.active = make(map[uint64]*Disposable)
	st.currentID = 0
	st.queue = nil
	st.running = false
	st.mu.Unlock()
	return disposables, false
}
