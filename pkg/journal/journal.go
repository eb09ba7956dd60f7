// Package journal persists observed stream events.
//
// A journal is an edge consumer: it attaches an observer to a hot
// stream and batches what it sees into a Sink. The reactive core itself
// stays storage-free; detaching the journal never affects the stream
// beyond removing one observer.
package journal

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/rivulet-dev/rivulet/pkg/rx"
)

// Entry is one journaled stream event.
type Entry struct {
	Topic string          `json:"topic"`
	Kind  string          `json:"kind"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	Time  time.Time       `json:"time"`
}

// Sink receives batches of journal entries.
type Sink interface {
	// Write persists a batch. Entries are in observation order.
	Write(ctx context.Context, entries []Entry) error

	// Close releases the sink's resources.
	Close() error
}

// Option configures an attachment.
type Option func(*config)

type config struct {
	batchSize int
	logger    *slog.Logger
}

// WithBatchSize sets how many entries accumulate before a flush.
// Default: 64. Terminal events always force a flush.
func WithBatchSize(n int) Option {
	return func(c *config) {
		c.batchSize = n
	}
}

// WithLogger sets the logger for flush failures. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Attach journals every event of stream into sink under the given
// topic name. Values must be JSON-marshalable. Returns a handle that
// flushes buffered entries and detaches the observer; the sink itself
// stays open for the caller to close.
func Attach[T any](stream *rx.Stream[T], topic string, sink Sink, opts ...Option) *rx.Disposable {
	cfg := config{batchSize: 64, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.batchSize < 1 {
		cfg.batchSize = 1
	}

	w := &writer[T]{cfg: cfg, topic: topic, sink: sink}

	obs := stream.Observe(func(e rx.Event[T]) {
		w.record(e)
	})

	return rx.NewScheduleDisposable(func() {
		obs.Dispose()
		w.flush()
	})
}

// writer buffers entries between flushes.
type writer[T any] struct {
	cfg   config
	topic string
	sink  Sink

	mu      sync.Mutex
	pending []Entry
}

func (w *writer[T]) record(e rx.Event[T]) {
	entry := Entry{
		Topic: w.topic,
		Kind:  e.Kind.String(),
		Time:  time.Now(),
	}
	switch e.Kind {
	case rx.KindNext:
		data, err := json.Marshal(e.Value)
		if err != nil {
			w.cfg.logger.Error("journal: marshal value", "topic", w.topic, "error", err)
			return
		}
		entry.Data = data
	case rx.KindFailed:
		if e.Err != nil {
			entry.Error = e.Err.Error()
		}
	}

	w.mu.Lock()
	w.pending = append(w.pending, entry)
	full := len(w.pending) >= w.cfg.batchSize
	w.mu.Unlock()

	if full || e.IsTerminal() {
		w.flush()
	}
}

func (w *writer[T]) flush() {
	w.mu.Lock()
	batch := w.pending
	w.pending = nil
	w.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	if err := w.sink.Write(context.Background(), batch); err != nil {
		w.cfg.logger.Error("journal: flush failed", "topic", w.topic, "entries", len(batch), "error", err)
	}
}
