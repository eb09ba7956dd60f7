package hub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rivulet-dev/rivulet/pkg/rx"
)

// FrameKind is the wire name of an event variant.
type FrameKind string

const (
	FrameNext        FrameKind = "next"
	FrameFailed      FrameKind = "failed"
	FrameCompleted   FrameKind = "completed"
	FrameInterrupted FrameKind = "interrupted"
)

// Frame is the JSON wire representation of one stream event.
type Frame struct {
	Topic string          `json:"topic"`
	Kind  FrameKind       `json:"kind"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	Time  time.Time       `json:"time"`
}

// frameFromEvent converts a stream event into its wire frame.
func frameFromEvent(topic string, e rx.Event[json.RawMessage], now time.Time) Frame {
	f := Frame{Topic: topic, Time: now}
	switch e.Kind {
	case rx.KindNext:
		f.Kind = FrameNext
		f.Data = e.Value
	case rx.KindFailed:
		f.Kind = FrameFailed
		if e.Err != nil {
			f.Error = e.Err.Error()
		}
	case rx.KindCompleted:
		f.Kind = FrameCompleted
	case rx.KindInterrupted:
		f.Kind = FrameInterrupted
	}
	return f
}

// Encode marshals the frame for the wire.
func (f Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// DecodeFrame parses a wire frame.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("hub: decode frame: %w", err)
	}
	switch f.Kind {
	case FrameNext, FrameFailed, FrameCompleted, FrameInterrupted:
	default:
		return Frame{}, fmt.Errorf("hub: unknown frame kind %q", f.Kind)
	}
	return f, nil
}

// IsTerminal reports whether the frame ends the topic's stream.
func (f Frame) IsTerminal() bool {
	return f.Kind == FrameFailed || f.Kind == FrameCompleted || f.Kind == FrameInterrupted
}
