// Package rx provides the push-based reactive stream core for Rivulet.
//
// The model distinguishes hot streams from cold producers. A Stream is an
// always-live, multicast channel of events: observers attach and receive
// whatever is pushed from that point on. A Producer is a reusable blueprint
// that creates a brand-new Stream on every start.
//
// # Core Types
//
// Stream[T] and Sender[T] are created together and share one lifecycle:
//
//	stream, sender := NewStream[int]()
//	d := stream.Observe(func(e Event[int]) { ... })
//	sender.SendNext(1)
//	sender.SendCompleted()
//	d.Dispose()
//
// Producer[T] wraps a start routine that is run once per start:
//
//	p := NewProducer(func(s Sender[int], tok *Token) {
//	    s.SendNext(42)
//	    s.SendCompleted()
//	})
//	d := p.StartObservingNext(func(v int) { ... })
//
// # Events
//
// An Event is Next, Failed, Completed or Interrupted. A stream delivers
// zero or more Next events followed by at most one terminal event. After
// the terminal event further sends are silent no-ops.
//
// # Delivery
//
// Delivery is synchronous and unbuffered: observers run in registration
// order on whatever goroutine performs the send. The core never blocks and
// never reorders. Cross-goroutine sends into one stream must be serialized
// by the caller; the observer bookkeeping itself is mutex-guarded.
//
// # Cancellation
//
// Observe and Start return a Disposable. Disposing an observation removes
// it immediately; when the last observation of a live stream is disposed
// the stream transitions to Interrupted. Disposing a start additionally
// cancels the start routine's Token. Cancellation is cooperative: already
// scheduled work must check the Token itself.
package rx
