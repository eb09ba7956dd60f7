// Package animate exposes timed work as reactive streams.
//
// An animation here is any body of work with a duration: Run schedules
// the body, then emits one value and completes when the duration has
// elapsed. Because animations are plain producers, sequencing and
// joining them is stream composition — no shared "is animating" flags.
package animate

import (
	"time"

	"github.com/rivulet-dev/rivulet/pkg/rx"
)

// Run returns a producer that schedules body on sched, then emits one
// Next and completes once d has elapsed. Each start runs the body
// again; disposing a start cancels the pending completion and, if the
// body has not run yet, the body itself.
func Run(d time.Duration, sched rx.Scheduler, body func()) rx.Producer[struct{}] {
	return rx.NewProducer(func(out rx.Sender[struct{}], tok *rx.Token) {
		if body != nil {
			sched.Schedule(func() {
				if !tok.Canceled() {
					body()
				}
			})
		}

		timer := sched.ScheduleAfter(d, func() {
			if tok.Canceled() {
				return
			}
			out.SendNext(struct{}{})
			out.SendCompleted()
		})
		tok.OnCancel(timer.Dispose)
	})
}

// Sequence runs animations strictly one after another, in order, and
// completes after the last one. Built on Concat flattening: the next
// animation starts only when the previous completed.
func Sequence(animations ...rx.Producer[struct{}]) rx.Producer[struct{}] {
	return rx.FlatMap(rx.FromValues(animations...), rx.Concat,
		func(p rx.Producer[struct{}]) rx.Producer[struct{}] { return p })
}

// Concurrent runs all animations at once and emits, then completes,
// when every one of them has finished. Built on CombineLatest: the
// join point is the first tuple of completions, not a mutable flag per
// animation.
func Concurrent(animations ...rx.Producer[struct{}]) rx.Producer[struct{}] {
	combined := rx.CombineLatest(animations...)
	return rx.Map(combined, func([]struct{}) struct{} { return struct{}{} })
}
