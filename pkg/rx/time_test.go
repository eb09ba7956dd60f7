package rx_test

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rivulet-dev/rivulet/pkg/rx"
	"github.com/rivulet-dev/rivulet/pkg/rx/rxtest"
)

// mockScheduler runs callbacks inline and drives delays from a mock
// clock, keeping the whole test single-goroutine deterministic.
type mockScheduler struct {
	clock *clock.Mock
}

func newMockScheduler() *mockScheduler {
	return &mockScheduler{clock: clock.NewMock()}
}

func (s *mockScheduler) Schedule(fn func()) *rx.Disposable {
	fn()
	return rx.NewScheduleDisposable(nil)
}

func (s *mockScheduler) ScheduleAfter(d time.Duration, fn func()) *rx.Disposable {
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

// wallScheduler schedules on the real clock, for tests that need
// genuine cross-goroutine timing.
type wallScheduler struct{}

func (wallScheduler) Schedule(fn func()) *rx.Disposable {
	fn()
	return rx.NewScheduleDisposable(nil)
}

func (wallScheduler) ScheduleAfter(d time.Duration, fn func()) *rx.Disposable {
	var canceled atomic.Bool
	timer := time.AfterFunc(d, func() {
		if !canceled.Load() {
			fn()
		}
	})
	return rx.NewScheduleDisposable(func() {
		canceled.Store(true)
		timer.Stop()
	})
}

func TestDelayForwardsAfterInterval(t *testing.T) {
	sched := newMockScheduler()
	stream, sender := rx.NewStream[int]()

	p := rx.Delay(rx.FromStream(stream), time.Second, sched)

	rec := rxtest.NewRecorder[int]()
	p.StartObservingAll(rec.Observe)

	sender.SendNext(1)
	sender.SendNext(2)
	sender.SendCompleted()
	if len(rec.Events()) != 0 {
		t.Fatalf("nothing may arrive before the interval, got %v", rec.Events())
	}

	sched.clock.Add(time.Second)
	events := rec.Events()
	if len(events) != 3 {
		t.Fatalf("expected all delayed events after interval, got %v", events)
	}
	if events[0].Value != 1 || events[1].Value != 2 || events[2].Kind != rx.KindCompleted {
		t.Errorf("expected push order preserved, got %v", events)
	}
}

func TestDelayFailurePropagatesImmediately(t *testing.T) {
	sched := newMockScheduler()
	stream, sender := rx.NewStream[int]()

	p := rx.Delay(rx.FromStream(stream), time.Second, sched)

	rec := rxtest.NewRecorder[int]()
	p.StartObservingAll(rec.Observe)

	failure := errors.New("now")
	sender.SendNext(1)
	sender.SendFailed(failure)

	events := rec.Events()
	if len(events) != 1 || events[0].Kind != rx.KindFailed {
		t.Fatalf("failure must not wait for the interval, got %v", events)
	}

	// The delayed value fires into an already-terminal stream: no-op.
	sched.clock.Add(time.Second)
	if len(rec.Events()) != 1 {
		t.Errorf("expected no further delivery after failure, got %v", rec.Events())
	}
}

func TestTimeoutFiresWhenSilent(t *testing.T) {
	sched := newMockScheduler()
	timeoutErr := errors.New("timed out")

	p := rx.TimeoutWithError(rx.Never[int](), timeoutErr, time.Second, sched)

	rec := rxtest.NewRecorder[int]()
	p.StartObservingAll(rec.Observe)

	sched.clock.Add(2 * time.Second)

	events := rec.Events()
	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %v", events)
	}
	if events[0].Kind != rx.KindFailed || !errors.Is(events[0].Err, timeoutErr) {
		t.Errorf("expected Failed(timeout), got %v", events[0])
	}
}

func TestTimeoutDeadlineResetsOnEvents(t *testing.T) {
	sched := newMockScheduler()
	stream, sender := rx.NewStream[int]()
	timeoutErr := errors.New("timed out")

	p := rx.TimeoutWithError(rx.FromStream(stream), timeoutErr, time.Second, sched)

	rec := rxtest.NewRecorder[int]()
	p.StartObservingAll(rec.Observe)

	// Keep emitting just under the deadline.
	for i := 0; i < 3; i++ {
		sched.clock.Add(900 * time.Millisecond)
		sender.SendNext(i)
	}
	if _, terminated := rec.Terminal(); terminated {
		t.Fatalf("stream that keeps emitting must not time out, got %v", rec.Events())
	}

	// Then go silent past the deadline.
	sched.clock.Add(time.Second)
	term, ok := rec.Terminal()
	if !ok || term.Kind != rx.KindFailed || !errors.Is(term.Err, timeoutErr) {
		t.Errorf("expected timeout after silence, got %v", rec.Events())
	}
}

func TestTimeoutPassesEventsThrough(t *testing.T) {
	sched := newMockScheduler()
	p := rx.TimeoutWithError(rx.FromValues(1, 2), errors.New("timed out"), time.Second, sched)

	rec := rxtest.NewRecorder[int]()
	p.StartObservingAll(rec.Observe)

	term, ok := rec.Terminal()
	if fmt.Sprint(rec.Values()) != fmt.Sprint([]int{1, 2}) || !ok || term.Kind != rx.KindCompleted {
		t.Errorf("expected values + completion untouched, got %v", rec.Events())
	}

	// Advancing time after completion must not resurrect the deadline.
	sched.clock.Add(5 * time.Second)
}

func TestTimeoutDuringSlowSynchronousStart(t *testing.T) {
	timeoutErr := errors.New("timed out")

	// The start routine outlives the deadline on the calling goroutine,
	// so the timer fires from its own goroutine mid-start.
	var upstreamTok *rx.Token
	slow := rx.NewProducer(func(_ rx.Sender[int], tok *rx.Token) {
		upstreamTok = tok
		time.Sleep(30 * time.Millisecond)
	})

	rec := rxtest.NewRecorder[int]()
	rx.TimeoutWithError(slow, timeoutErr, time.Millisecond, wallScheduler{}).
		StartObservingAll(rec.Observe)

	term, ok := rec.Terminal()
	if !ok || term.Kind != rx.KindFailed || !errors.Is(term.Err, timeoutErr) {
		t.Fatalf("expected Failed(timeout) while start was running, got %v", rec.Events())
	}
	if !upstreamTok.Canceled() {
		t.Error("upstream start must be canceled once the deadline fired")
	}
}
