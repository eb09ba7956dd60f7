package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rivulet-dev/rivulet/pkg/rx"
)

func TestRegisterAndLookup(t *testing.T) {
	h := New(nil)
	defer h.Close()

	topic, err := h.Register("clicks")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if topic.Name() != "clicks" {
		t.Errorf("expected name clicks, got %s", topic.Name())
	}

	if _, err := h.Register("clicks"); !errors.Is(err, ErrTopicExists) {
		t.Errorf("expected ErrTopicExists, got %v", err)
	}
	if _, err := h.Topic("nope"); !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("expected ErrUnknownTopic, got %v", err)
	}

	got, err := h.Topic("clicks")
	if err != nil || got != topic {
		t.Errorf("lookup returned %v, %v", got, err)
	}
}

func TestPublishReachesInProcessObservers(t *testing.T) {
	h := New(nil)
	defer h.Close()

	topic, err := h.Register("numbers")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	var got []string
	topic.Stream().Observe(func(e rx.Event[json.RawMessage]) {
		if e.Kind == rx.KindNext {
			got = append(got, string(e.Value))
		}
	})

	if err := topic.Publish(context.Background(), 42); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(got) != 1 || got[0] != "42" {
		t.Errorf("expected [42], got %v", got)
	}
}

func TestPublishAfterTerminalRejected(t *testing.T) {
	h := New(nil)
	defer h.Close()

	topic, _ := h.Register("short-lived")
	topic.Complete()

	err := topic.Publish(context.Background(), "late")
	if !errors.Is(err, ErrTopicTerminal) {
		t.Errorf("expected ErrTopicTerminal, got %v", err)
	}
}

func TestTopicSurvivesClientChurn(t *testing.T) {
	h := New(nil)
	defer h.Close()

	topic, _ := h.Register("steady")

	// An in-process observer coming and going must not interrupt the
	// topic: the hub's own anchor observation keeps it live.
	d := topic.Stream().Observe(func(rx.Event[json.RawMessage]) {})
	d.Dispose()

	if topic.Stream().IsTerminal() {
		t.Fatal("topic stream must survive observer churn")
	}
	if err := topic.Publish(context.Background(), "still here"); err != nil {
		t.Errorf("publish after churn: %v", err)
	}
}

func TestClosedHubRejectsOperations(t *testing.T) {
	h := New(nil)
	topic, _ := h.Register("doomed")
	h.Close()
	h.Close() // idempotent

	if !topic.Stream().IsTerminal() {
		t.Error("close should complete topic streams")
	}
	if _, err := h.Register("after"); !errors.Is(err, ErrHubClosed) {
		t.Errorf("expected ErrHubClosed, got %v", err)
	}
	if _, err := h.Topic("doomed"); !errors.Is(err, ErrHubClosed) {
		t.Errorf("expected ErrHubClosed, got %v", err)
	}
}

func TestRegisterProducerDrivesTopic(t *testing.T) {
	h := New(nil)
	defer h.Close()

	topic, _, err := RegisterProducer(h, "countdown", rx.FromValues(3, 2, 1))
	if err != nil {
		t.Fatal(err)
	}

	term, ok := topic.Stream().TerminalEvent()
	if !ok || term.Kind != rx.KindCompleted {
		t.Fatalf("producer completion should end the topic, got %v %v", term, ok)
	}
	if err := topic.Publish(context.Background(), 0); !errors.Is(err, ErrTopicTerminal) {
		t.Errorf("expected ErrTopicTerminal after producer completed, got %v", err)
	}
}

func dialTopic(t *testing.T, srv *httptest.Server, topic string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + topic
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	return conn
}

func TestWebSocketDeliversPublishedFrames(t *testing.T) {
	h := New(nil)
	defer h.Close()
	topic, _ := h.Register("feed")

	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	conn := dialTopic(t, srv, "feed")
	defer conn.Close()

	// Give the server a moment to attach the session's observation.
	time.Sleep(100 * time.Millisecond)

	if err := topic.Publish(context.Background(), map[string]int{"n": 7}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	frame, err := DecodeFrame(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.Kind != FrameNext || frame.Topic != "feed" {
		t.Errorf("unexpected frame %+v", frame)
	}
	if string(frame.Data) != `{"n":7}` {
		t.Errorf("unexpected payload %s", frame.Data)
	}
}

func TestWebSocketInboundFeedsTopicStream(t *testing.T) {
	h := New(nil)
	defer h.Close()
	topic, _ := h.Register("input")

	received := make(chan string, 1)
	topic.Stream().Observe(func(e rx.Event[json.RawMessage]) {
		if e.Kind == rx.KindNext {
			received <- string(e.Value)
		}
	})

	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	conn := dialTopic(t, srv, "input")
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"pressed":true}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case payload := <-received:
		if payload != `{"pressed":true}` {
			t.Errorf("unexpected payload %s", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("inbound message never reached the topic stream")
	}
}

func TestWebSocketTerminalFrameOnComplete(t *testing.T) {
	h := New(nil)
	defer h.Close()
	topic, _ := h.Register("ending")

	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	conn := dialTopic(t, srv, "ending")
	defer conn.Close()

	time.Sleep(100 * time.Millisecond)
	topic.Complete()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	frame, err := DecodeFrame(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.Kind != FrameCompleted {
		t.Errorf("expected completed frame, got %+v", frame)
	}
}

func TestWebSocketUnknownTopic404(t *testing.T) {
	h := New(nil)
	defer h.Close()

	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/ghost"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail for unknown topic")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Errorf("expected 404, got %v", resp)
	}
}
