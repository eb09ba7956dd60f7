// Package scheduler provides execution contexts for the rx time-based
// operators.
//
// Two implementations are included: an immediate scheduler that runs
// callbacks inline (delays fire on timer goroutines), and a serial Queue
// that runs everything on one goroutine in FIFO order. Both take their
// notion of time from a clock.Clock, so tests drive Delay and
// TimeoutWithError deterministically with clock.NewMock().
package scheduler

import (
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rivulet-dev/rivulet/pkg/rx"
)

// Option configures a scheduler.
type Option func(*config)

type config struct {
	clock clock.Clock
}

// WithClock sets the clock used for delayed scheduling. Defaults to the
// wall clock; pass clock.NewMock() in tests.
func WithClock(c clock.Clock) Option {
	return func(cfg *config) {
		cfg.clock = c
	}
}

func newConfig(opts []Option) config {
	cfg := config{clock: clock.New()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// immediate runs callbacks inline on the caller's goroutine.
type immediate struct {
	clock clock.Clock
}

// Immediate returns a scheduler that runs Schedule callbacks inline and
// ScheduleAfter callbacks on the clock's timer context.
//
// Inline execution means "schedule now" is a plain call: no goroutine
// hop, no queueing. This matches the synchronous delivery contract of
// the core and is the right default for composing operators in tests.
func Immediate(opts ...Option) rx.Scheduler {
	cfg := newConfig(opts)
	return &immediate{clock: cfg.clock}
}

func (s *immediate) Schedule(fn func()) *rx.Disposable {
	fn()
	return rx.NewScheduleDisposable(nil)
}

func (s *immediate) ScheduleAfter(d time.Duration, fn func()) *rx.Disposable {
	var canceled atomic.Bool
	timer := s.clock.AfterFunc(d, func() {
		if !canceled.Load() {
			fn()
		}
	})
	return rx.NewScheduleDisposable(func() {
		canceled.Store(true)
		timer.Stop()
	})
}
