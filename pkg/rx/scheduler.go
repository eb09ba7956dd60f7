package rx

import "time"

// Scheduler is the execution context abstraction used by time-based
// operators. The core treats it as opaque: it only needs "run this now"
// and "run this after a delay".
//
// Implementations live in pkg/rx/scheduler; Delay and TimeoutWithError
// accept the interface so tests can drive time deterministically.
type Scheduler interface {
	// Schedule runs fn on the scheduler's execution context. The
	// returned handle cancels the pending run if it has not started.
	Schedule(fn func()) *Disposable

	// ScheduleAfter runs fn on the scheduler's execution context after
	// the given delay. The returned handle cancels the pending run.
	ScheduleAfter(d time.Duration, fn func()) *Disposable
}

// NewScheduleDisposable adapts a cancel function into a Disposable.
// Intended for Scheduler implementations outside this package.
func NewScheduleDisposable(cancel func()) *Disposable {
	return newDisposable(cancel)
}
