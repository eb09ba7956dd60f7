package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rivulet-dev/rivulet/pkg/rx"
)

// Queue is a serial execution context: every scheduled callback runs on
// one dedicated goroutine, in FIFO order. It is the "designated serial
// queue" collaborator of the reactive core — cross-goroutine sends into
// a stream can be funneled through one Queue to satisfy the single
// logical owner rule.
type Queue struct {
	cfg   config
	tasks chan func()

	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}
}

const defaultQueueDepth = 256

// NewQueue starts a serial queue. Stop it when done.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		cfg:     newConfig(opts),
		tasks:   make(chan func(), defaultQueueDepth),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		select {
		case <-q.stopped:
			// Drain whatever was enqueued before Stop.
			for {
				select {
				case fn := <-q.tasks:
					fn()
				default:
					return
				}
			}
		case fn := <-q.tasks:
			fn()
		}
	}
}

// Schedule enqueues fn to run on the queue goroutine. Returns a handle
// that cancels the run if it has not started yet. After Stop, Schedule
// drops the callback.
func (q *Queue) Schedule(fn func()) *rx.Disposable {
	var canceled atomic.Bool
	task := func() {
		if !canceled.Load() {
			fn()
		}
	}

	select {
	case <-q.stopped:
	case q.tasks <- task:
	}

	return rx.NewScheduleDisposable(func() {
		canceled.Store(true)
	})
}

// ScheduleAfter enqueues fn after the given delay, measured on the
// queue's clock. The callback still runs on the queue goroutine, so
// relative order among same-deadline timers follows firing order.
func (q *Queue) ScheduleAfter(d time.Duration, fn func()) *rx.Disposable {
	var canceled atomic.Bool
	timer := q.cfg.clock.AfterFunc(d, func() {
		if canceled.Load() {
			return
		}
		select {
		case <-q.stopped:
		case q.tasks <- func() {
			if !canceled.Load() {
				fn()
			}
		}:
		}
	})

	return rx.NewScheduleDisposable(func() {
		canceled.Store(true)
		timer.Stop()
	})
}

// Stop shuts the queue down, running callbacks already enqueued and
// dropping everything scheduled afterwards. Blocks until the queue
// goroutine exits. Safe to call multiple times.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stopped)
	})
	<-q.done
}

// Wait blocks until every callback enqueued before the call has run.
// Useful in tests to synchronize with asynchronous deliveries.
func (q *Queue) Wait() {
	var wg sync.WaitGroup
	wg.Add(1)
	q.Schedule(wg.Done)
	wg.Wait()
}
