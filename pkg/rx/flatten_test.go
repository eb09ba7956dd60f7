package rx_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rivulet-dev/rivulet/pkg/rx"
	"github.com/rivulet-dev/rivulet/pkg/rx/rxtest"
)

// innerPipe hands out live inner producers whose senders the test
// controls, keyed by the upstream value that created them.
type innerPipe struct {
	senders map[int]rx.Sender[string]
}

func newInnerPipe() *innerPipe {
	return &innerPipe{senders: make(map[int]rx.Sender[string])}
}

func (ip *innerPipe) producer(v int) rx.Producer[string] {
	return rx.NewProducer(func(s rx.Sender[string], _ *rx.Token) {
		ip.senders[v] = s
	})
}

func TestFlatMapLatestDisposesPreviousInner(t *testing.T) {
	outer, outerSender := rx.NewStream[int]()
	pipe := newInnerPipe()

	p := rx.FlatMap(rx.FromStream(outer), rx.Latest, pipe.producer)

	rec := rxtest.NewRecorder[string]()
	p.StartObservingAll(rec.Observe)

	outerSender.SendNext(1)
	pipe.senders[1].SendNext("from-1")

	outerSender.SendNext(2)
	// The first inner was disposed by the switch; its values must not
	// appear downstream.
	pipe.senders[1].SendNext("stale")
	pipe.senders[2].SendNext("from-2")

	want := []string{"from-1", "from-2"}
	if fmt.Sprint(rec.Values()) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, rec.Values())
	}
}

func TestFlatMapLatestCompletesAfterOuterAndCurrentInner(t *testing.T) {
	outer, outerSender := rx.NewStream[int]()
	pipe := newInnerPipe()

	p := rx.FlatMap(rx.FromStream(outer), rx.Latest, pipe.producer)

	rec := rxtest.NewRecorder[string]()
	p.StartObservingAll(rec.Observe)

	outerSender.SendNext(1)
	outerSender.SendCompleted()
	if _, terminated := rec.Terminal(); terminated {
		t.Fatalf("must not complete while current inner is live, got %v", rec.Events())
	}

	pipe.senders[1].SendCompleted()
	term, ok := rec.Terminal()
	if !ok || term.Kind != rx.KindCompleted {
		t.Errorf("expected exactly one Completed, got %v", rec.Events())
	}
}

func TestFlatMapConcatRunsInSubmissionOrder(t *testing.T) {
	f := func(v int) rx.Producer[string] {
		return rx.FromValues(fmt.Sprintf("inner-%d", v))
	}

	p := rx.FlatMap(rx.FromValues(1, 2, 3), rx.Concat, f)

	rec := rxtest.NewRecorder[string]()
	p.StartObservingAll(rec.Observe)

	want := []string{"inner-1", "inner-2", "inner-3"}
	if fmt.Sprint(rec.Values()) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, rec.Values())
	}
	term, ok := rec.Terminal()
	if !ok || term.Kind != rx.KindCompleted {
		t.Errorf("expected exactly one downstream completion, got %v", rec.Events())
	}
}

func TestFlatMapConcatWaitsForPreviousInner(t *testing.T) {
	outer, outerSender := rx.NewStream[int]()
	pipe := newInnerPipe()

	p := rx.FlatMap(rx.FromStream(outer), rx.Concat, pipe.producer)

	rec := rxtest.NewRecorder[string]()
	p.StartObservingAll(rec.Observe)

	outerSender.SendNext(1)
	outerSender.SendNext(2)

	// Second inner must not have started while the first is live.
	if _, started := pipe.senders[2]; started {
		t.Fatal("Concat started the second inner before the first completed")
	}

	pipe.senders[1].SendNext("a")
	pipe.senders[1].SendCompleted()

	if _, started := pipe.senders[2]; !started {
		t.Fatal("Concat should start the second inner after the first completes")
	}
	pipe.senders[2].SendNext("b")

	if fmt.Sprint(rec.Values()) != fmt.Sprint([]string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", rec.Values())
	}
}

func TestFlatMapMergeInterleavesByArrival(t *testing.T) {
	outer, outerSender := rx.NewStream[int]()
	pipe := newInnerPipe()

	p := rx.FlatMap(rx.FromStream(outer), rx.Merge, pipe.producer)

	rec := rxtest.NewRecorder[string]()
	p.StartObservingAll(rec.Observe)

	outerSender.SendNext(1)
	outerSender.SendNext(2)
	pipe.senders[2].SendNext("b1")
	pipe.senders[1].SendNext("a1")
	pipe.senders[2].SendNext("b2")

	outerSender.SendCompleted()
	if _, terminated := rec.Terminal(); terminated {
		t.Fatal("must not complete while inners are live")
	}

	pipe.senders[1].SendCompleted()
	pipe.senders[2].SendCompleted()
	term, ok := rec.Terminal()
	if !ok || term.Kind != rx.KindCompleted {
		t.Error("expected completion after outer and all inners completed")
	}

	want := []string{"b1", "a1", "b2"}
	if fmt.Sprint(rec.Values()) != fmt.Sprint(want) {
		t.Errorf("expected arrival order %v, got %v", want, rec.Values())
	}
}

func TestFlatMapInnerFailurePropagatesAndDisposesOthers(t *testing.T) {
	outer, outerSender := rx.NewStream[int]()
	pipe := newInnerPipe()

	p := rx.FlatMap(rx.FromStream(outer), rx.Merge, pipe.producer)

	rec := rxtest.NewRecorder[string]()
	p.StartObservingAll(rec.Observe)

	outerSender.SendNext(1)
	outerSender.SendNext(2)

	failure := errors.New("inner exploded")
	pipe.senders[1].SendFailed(failure)

	// The other inner was disposed; nothing it sends may appear.
	pipe.senders[2].SendNext("late")

	events := rec.Events()
	if len(events) != 1 || events[0].Kind != rx.KindFailed || !errors.Is(events[0].Err, failure) {
		t.Fatalf("expected single Failed, got %v", events)
	}
}

func TestFlatMapUpstreamFailurePropagatesImmediately(t *testing.T) {
	outer, outerSender := rx.NewStream[int]()
	pipe := newInnerPipe()

	p := rx.FlatMap(rx.FromStream(outer), rx.Merge, pipe.producer)

	rec := rxtest.NewRecorder[string]()
	p.StartObservingAll(rec.Observe)

	outerSender.SendNext(1)
	failure := errors.New("outer exploded")
	outerSender.SendFailed(failure)

	pipe.senders[1].SendNext("late")

	events := rec.Events()
	if len(events) != 1 || events[0].Kind != rx.KindFailed {
		t.Fatalf("expected immediate Failed, got %v", events)
	}
}

func TestFlatMapMapsValuesThroughInner(t *testing.T) {
	p := rx.FlatMap(rx.FromValues(1, 2), rx.Merge, func(v int) rx.Producer[int] {
		return rx.FromValues(v * 10)
	})

	rec := rxtest.NewRecorder[int]()
	p.StartObservingAll(rec.Observe)

	if fmt.Sprint(rec.Values()) != fmt.Sprint([]int{10, 20}) {
		t.Errorf("expected [10 20], got %v", rec.Values())
	}
}
