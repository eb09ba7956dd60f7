package rx

import (
	"sync"
	"time"
)

// Delay forwards Next and Completed events after interval on the given
// scheduler. Failed events propagate immediately, jumping ahead of any
// still-delayed values. Interruption propagates immediately as well.
//
// Ordering among the delayed events themselves is the scheduler's
// ordering; the serial Queue scheduler preserves push order.
func Delay[T any](p Producer[T], interval time.Duration, sched Scheduler) Producer[T] {
	return NewProducer(func(out Sender[T], tok *Token) {
		var (
			mu      sync.Mutex
			pending []*Disposable
		)
		track := func(d *Disposable) {
			mu.Lock()
			// Drop handles that already fired to keep the slice short.
			kept := pending[:0]
			for _, t := range pending {
				if !t.IsDisposed() {
					kept = append(kept, t)
				}
			}
			pending = append(kept, d)
			mu.Unlock()
		}

		upstream := p.StartObservingAll(func(e Event[T]) {
			switch e.Kind {
			case KindNext, KindCompleted:
				ev := e
				var timer *Disposable
				timer = sched.ScheduleAfter(interval, func() {
					if !tok.Canceled() {
						out.Send(ev)
					}
				})
				track(timer)
			case KindFailed, KindInterrupted:
				out.Send(e)
			}
		})

		tok.OnCancel(func() {
			upstream.Dispose()
			mu.Lock()
			timers := pending
			pending = nil
			mu.Unlock()
			for _, t := range timers {
				t.Dispose()
			}
		})
	})
}

// TimeoutWithError fails the stream with err if no event arrives within
// interval. The deadline is armed at start and re-armed after every
// received event ("since last Event" policy): a stream that keeps
// emitting never times out, a stream that goes quiet for interval does.
//
// On timeout the composed stream emits exactly one Failed(err) and the
// upstream start is disposed.
func TimeoutWithError[T any](p Producer[T], err error, interval time.Duration, sched Scheduler) Producer[T] {
	return NewProducer(func(out Sender[T], tok *Token) {
		var (
			mu       sync.Mutex
			deadline *Disposable
			done     bool
			upstream *Disposable
		)

		disarm := func() *Disposable {
			mu.Lock()
			d := deadline
			deadline = nil
			mu.Unlock()
			return d
		}

		arm := func() {
			timer := sched.ScheduleAfter(interval, func() {
				mu.Lock()
				if done {
					mu.Unlock()
					return
				}
				done = true
				up := upstream
				mu.Unlock()
				out.SendFailed(err)
				// Nil while the upstream start routine is still running;
				// the start path below disposes it on return.
				up.Dispose()
			})

			mu.Lock()
			if done {
				mu.Unlock()
				timer.Dispose()
				return
			}
			old := deadline
			deadline = timer
			mu.Unlock()
			old.Dispose()
		}

		arm()
		d := p.StartObservingAll(func(e Event[T]) {
			mu.Lock()
			if done {
				mu.Unlock()
				return
			}
			terminal := e.IsTerminal()
			if terminal {
				done = true
			}
			mu.Unlock()

			disarm().Dispose()
			out.Send(e)
			if !terminal {
				arm()
			}
		})

		mu.Lock()
		upstream = d
		timedOut := done
		mu.Unlock()
		if timedOut {
			// Deadline fired while the start routine was still running.
			d.Dispose()
		}

		tok.OnCancel(func() {
			mu.Lock()
			done = true
			up := upstream
			mu.Unlock()
			disarm().Dispose()
			up.Dispose()
		})
	})
}
