package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rivulet-dev/rivulet/pkg/rx"
)

const tracerName = "rivulet/hub"

// Hub is a registry of named topic streams served over WebSocket.
type Hub struct {
	cfg     *Config
	metrics *metrics
	tracer  trace.Tracer

	mu     sync.RWMutex
	topics map[string]*Topic
	closed bool
}

// New creates a hub with the given configuration. A nil cfg uses
// defaults.
func New(cfg *Config) *Hub {
	return &Hub{
		cfg:     cfg.withDefaults(),
		metrics: getMetrics(),
		tracer:  otel.Tracer(tracerName),
		topics:  make(map[string]*Topic),
	}
}

// Register creates a topic with its own live stream.
func (h *Hub) Register(name string) (*Topic, error) {
	if name == "" {
		return nil, fmt.Errorf("hub: empty topic name")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	if _, ok := h.topics[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTopicExists, name)
	}

	stream, sender := rx.NewStream[json.RawMessage]()
	t := &Topic{
		name:   name,
		hub:    h,
		stream: stream,
		sender: sender,
	}

	// The hub holds its own observation for the topic's lifetime.
	// Without it, the last client disconnecting would leave the stream
	// unobserved and interrupt it; topics must survive client churn.
	t.anchor = stream.Observe(func(e rx.Event[json.RawMessage]) {
		if e.IsTerminal() {
			h.cfg.Logger.Info("topic terminated", "topic", name, "kind", e.Kind.String())
		}
	})

	h.topics[name] = t
	h.metrics.activeTopics.Set(float64(len(h.topics)))
	h.cfg.Logger.Info("topic registered", "topic", name)
	return t, nil
}

// RegisterProducer creates a topic fed by starting p. The producer's
// stream drives the topic: its values are published to all sessions
// and its terminal event ends the topic. Disposing the returned
// handle stops the producer without interrupting the topic stream
// for other publishers.
func RegisterProducer[T any](h *Hub, name string, p rx.Producer[T]) (*Topic, *rx.Disposable, error) {
	t, err := h.Register(name)
	if err != nil {
		return nil, nil, err
	}

	d := p.StartObservingAll(func(e rx.Event[T]) {
		switch e.Kind {
		case rx.KindNext:
			if err := t.Publish(context.Background(), e.Value); err != nil {
				h.cfg.Logger.Error("publish from producer", "topic", name, "error", err)
			}
		case rx.KindFailed:
			t.Fail(e.Err)
		case rx.KindCompleted:
			t.Complete()
		}
	})
	return t, d, nil
}

// Topic returns the topic with the given name.
func (h *Hub) Topic(name string) (*Topic, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	t, ok := h.topics[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, name)
	}
	return t, nil
}

// Topics returns the registered topic names.
func (h *Hub) Topics() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.topics))
	for name := range h.topics {
		names = append(names, name)
	}
	return names
}

// Close completes every live topic stream and rejects further use.
// Sessions observing those streams receive the terminal frame and shut
// down. Safe to call multiple times.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	topics := make([]*Topic, 0, len(h.topics))
	for _, t := range h.topics {
		topics = append(topics, t)
	}
	h.mu.Unlock()

	for _, t := range topics {
		t.sender.SendCompleted()
	}
	h.cfg.Logger.Info("hub closed", "topics", len(topics))
}

// Handler returns the hub's HTTP surface: topic WebSocket endpoints, a
// health probe, and Prometheus metrics.
func (h *Hub) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws/{topic}", h.serveWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Topic is one named stream inside a hub. The server side publishes
// through it; connected sessions observe its stream and feed inbound
// client payloads back into it.
type Topic struct {
	name   string
	hub    *Hub
	stream *rx.Stream[json.RawMessage]
	sender rx.Sender[json.RawMessage]
	anchor *rx.Disposable
}

// Name returns the topic name.
func (t *Topic) Name() string {
	return t.name
}

// Stream returns the topic's hot stream for in-process observation and
// operator composition via rx.FromStream.
func (t *Topic) Stream() *rx.Stream[json.RawMessage] {
	return t.stream
}

// Publish marshals v and pushes it as a value event. Returns
// ErrTopicTerminal if the stream already terminated.
func (t *Topic) Publish(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("hub: marshal payload for %s: %w", t.name, err)
	}
	return t.PublishRaw(ctx, data)
}

// PublishRaw pushes a pre-encoded payload as a value event.
func (t *Topic) PublishRaw(ctx context.Context, data json.RawMessage) error {
	if t.stream.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrTopicTerminal, t.name)
	}

	_, span := t.hub.tracer.Start(ctx, "hub.publish", trace.WithAttributes(
		attribute.String("topic", t.name),
		attribute.Int("bytes", len(data)),
	))
	t.sender.SendNext(data)
	span.End()

	t.hub.metrics.eventsPublished.WithLabelValues(t.name, string(FrameNext)).Inc()
	return nil
}

// Fail terminates the topic stream with err.
func (t *Topic) Fail(err error) {
	t.sender.SendFailed(err)
	t.hub.metrics.eventsPublished.WithLabelValues(t.name, string(FrameFailed)).Inc()
}

// Complete terminates the topic stream successfully.
func (t *Topic) Complete() {
	t.sender.SendCompleted()
	t.hub.metrics.eventsPublished.WithLabelValues(t.name, string(FrameCompleted)).Inc()
}

// now is indirected for tests.
var now = time.Now
