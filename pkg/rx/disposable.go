package rx

import (
	"sync"
	"sync/atomic"
)

// Disposable is a revocable handle for one observation or one active start.
//
// Dispose is idempotent: the underlying action runs at most once, and
// re-disposing is a no-op.
type Disposable struct {
	disposed atomic.Bool
	action   func()
}

// newDisposable returns a Disposable that runs action on first Dispose.
func newDisposable(action func()) *Disposable {
	return &Disposable{action: action}
}

// newDisposedDisposable returns an already-disposed handle.
// Used when observing a stream that is already terminal.
func newDisposedDisposable() *Disposable {
	d := &Disposable{}
	d.disposed.Store(true)
	return d
}

// Dispose revokes the handle. Safe to call multiple times and from
// multiple goroutines; only the first call has an effect.
func (d *Disposable) Dispose() {
	if d == nil {
		return
	}
	if d.disposed.Swap(true) {
		return
	}
	if d.action != nil {
		d.action()
		d.action = nil
	}
}

// IsDisposed reports whether Dispose has been called.
func (d *Disposable) IsDisposed() bool {
	if d == nil {
		return true
	}
	return d.disposed.Load()
}

// Token is the cancellation token handed to a producer's start routine.
//
// Cancellation is cooperative and advisory: the core never preempts
// in-flight work. Start routines must check Canceled before pushing
// further events and stop scheduling new work once it reports true.
type Token struct {
	canceled atomic.Bool

	mu        sync.Mutex
	callbacks []func()
}

// newToken returns a live token.
func newToken() *Token {
	return &Token{}
}

// Canceled reports whether the token has been cancelled.
func (t *Token) Canceled() bool {
	if t == nil {
		return false
	}
	return t.canceled.Load()
}

// OnCancel registers fn to run when the token is cancelled.
// If the token is already cancelled, fn runs immediately.
func (t *Token) OnCancel(fn func()) {
	if t == nil || fn == nil {
		return
	}
	t.mu.Lock()
	if t.canceled.Load() {
		t.mu.Unlock()
		fn()
		return
	}
	t.callbacks = append(t.callbacks, fn)
	t.mu.Unlock()
}

// cancel flips the token and runs registered callbacks once, in
// registration order.
func (t *Token) cancel() {
	if t.canceled.Swap(true) {
		return
	}
	t.mu.Lock()
	callbacks := t.callbacks
	t.callbacks = nil
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}
