package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/rivulet-dev/rivulet/pkg/rx"
)

// session is one WebSocket client subscribed to one topic.
type session struct {
	hub    *Hub
	topic  *Topic
	conn   *websocket.Conn
	logger *slog.Logger

	// outbound carries encoded frames to the write loop. Sends are
	// non-blocking: when the buffer is full the newest frame is
	// dropped so a slow client never stalls the publishing goroutine.
	outbound chan []byte

	closeOnce sync.Once
	done      chan struct{}

	observation *rx.Disposable
}

// serveWS upgrades the connection and runs the session until either
// side ends it.
func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	topicName := chi.URLParam(r, "topic")
	topic, err := h.Topic(topicName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:    h.cfg.ReadBufferSize,
		WriteBufferSize:   h.cfg.WriteBufferSize,
		EnableCompression: h.cfg.EnableCompression,
		CheckOrigin:       func(*http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.cfg.Logger.Error("websocket upgrade failed", "topic", topicName, "error", err)
		return
	}

	s := &session{
		hub:      h,
		topic:    topic,
		conn:     conn,
		logger:   h.cfg.Logger.With("topic", topicName, "remote", conn.RemoteAddr().String()),
		outbound: make(chan []byte, h.cfg.SendBuffer),
		done:     make(chan struct{}),
	}

	h.metrics.activeSessions.Inc()
	s.logger.Info("session opened")

	// Observe the topic stream. A terminal event is forwarded and the
	// observation ends with the session's close.
	s.observation = topic.stream.Observe(s.forward)

	go s.writeLoop()
	s.readLoop()
}

// forward encodes a stream event and queues it for the write loop.
func (s *session) forward(e rx.Event[json.RawMessage]) {
	frame := frameFromEvent(s.topic.name, e, now())
	data, err := frame.Encode()
	if err != nil {
		s.logger.Error("frame encode error", "error", err)
		return
	}

	select {
	case s.outbound <- data:
	default:
		s.hub.metrics.framesDropped.WithLabelValues(s.topic.name).Inc()
		s.logger.Warn("send buffer full, frame dropped", "kind", frame.Kind)
	}

	if e.IsTerminal() {
		// Let the write loop flush the terminal frame, then close.
		go s.close()
	}
}

// readLoop reads client messages and pushes their payloads into the
// topic stream. Blocks until the connection closes.
func (s *session) readLoop() {
	defer s.close()

	s.conn.SetReadLimit(s.hub.cfg.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.hub.cfg.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.hub.cfg.ReadTimeout))
	})

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.hub.cfg.ReadTimeout))

		if !json.Valid(msg) {
			s.logger.Warn("dropping invalid payload", "bytes", len(msg))
			continue
		}
		if err := s.topic.PublishRaw(context.Background(), json.RawMessage(msg)); err != nil {
			s.logger.Warn("publish rejected", "error", err)
			return
		}
	}
}

// writeLoop drains outbound frames and sends heartbeat pings. Exits
// when the session closes.
func (s *session) writeLoop() {
	ticker := time.NewTicker(s.hub.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			// Flush anything already queued before closing.
			for {
				select {
				case data := <-s.outbound:
					if !s.write(data) {
						return
					}
				default:
					_ = s.conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(s.hub.cfg.WriteTimeout))
					return
				}
			}

		case data := <-s.outbound:
			if !s.write(data) {
				s.close()
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(s.hub.cfg.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.logger.Debug("ping failed", "error", err)
				s.close()
				return
			}
		}
	}
}

// write sends one frame, reporting success.
func (s *session) write(data []byte) bool {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.cfg.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.hub.metrics.sendErrors.WithLabelValues(s.topic.name).Inc()
		s.logger.Debug("write failed", "error", err)
		return false
	}
	s.hub.metrics.framesSent.WithLabelValues(s.topic.name).Inc()
	return true
}

// close tears the session down exactly once.
func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.observation.Dispose()
		_ = s.conn.Close()
		s.hub.metrics.activeSessions.Dec()
		s.logger.Info("session closed")
	})
}
