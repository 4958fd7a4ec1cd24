// Package telemetry defines the frames that flow over the backend's event
// stream. Backend revisions push either bare LogEntry objects or tagged
// envelopes of the form {"type": "LOG"|"STATUS_UPDATE", "data": ...}; Decode
// folds both into the Frame variants below so callers can switch on them
// exhaustively.
package telemetry

import (
	"bytes"
	"encoding/json"

	"github.com/large-farva/conveyor-guard/internal/models"
)

// EventType identifies the kind of envelope.
type EventType string

const (
	EventLog          EventType = "LOG"
	EventStatusUpdate EventType = "STATUS_UPDATE"
)

// Event is the envelope shared by tagged frames.
type Event struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Frame is one decoded stream message: *LogFrame, *StatusUpdateFrame or
// *RawFrame.
type Frame interface {
	frame()
}

// LogFrame carries one safety event.
type LogFrame struct {
	Entry models.LogEntry
}

// StatusUpdate is the payload of a STATUS_UPDATE envelope.
type StatusUpdate struct {
	OperationMode models.OperationMode `json:"operation_mode"`
	IsLocked      bool                 `json:"is_locked"`
	Message       string               `json:"message,omitempty"`
}

// StatusUpdateFrame reports a change of the conveyor's control state.
type StatusUpdateFrame struct {
	Status StatusUpdate
}

// RawFrame is anything Decode could not classify. Text holds the frame as
// received; Value holds the parsed JSON when the frame was valid JSON.
type RawFrame struct {
	Text  string
	Value any
}

func (*LogFrame) frame()          {}
func (*StatusUpdateFrame) frame() {}
func (*RawFrame) frame()          {}

// Decode classifies a text frame. It never fails: frames that are not JSON,
// or JSON of an unknown shape, come back as *RawFrame.
func Decode(msg []byte) Frame {
	trimmed := bytes.TrimSpace(msg)
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		raw := &RawFrame{Text: string(msg)}
		var v any
		if json.Unmarshal(trimmed, &v) == nil {
			raw.Value = v
		}
		return raw
	}

	if t, ok := probe["type"]; ok {
		var et EventType
		if json.Unmarshal(t, &et) == nil {
			switch et {
			case EventLog:
				var entry models.LogEntry
				if err := json.Unmarshal(probe["data"], &entry); err == nil {
					return &LogFrame{Entry: entry}
				}
			case EventStatusUpdate:
				if st, err := decodeStatus(probe["data"]); err == nil {
					return &StatusUpdateFrame{Status: st}
				}
			}
		}
	}

	if _, ok := probe["event_type"]; ok {
		var entry models.LogEntry
		if err := json.Unmarshal(trimmed, &entry); err == nil {
			return &LogFrame{Entry: entry}
		}
	}

	var v any
	_ = json.Unmarshal(trimmed, &v)
	return &RawFrame{Text: string(msg), Value: v}
}

func decodeStatus(data json.RawMessage) (StatusUpdate, error) {
	var raw struct {
		OperationMode *string `json:"operation_mode"`
		IsOperating   *bool   `json:"is_operating"`
		IsLocked      bool    `json:"is_locked"`
		Message       string  `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return StatusUpdate{}, err
	}
	cs := models.ControlStatus{
		IsOperating:   raw.IsOperating,
		OperationMode: raw.OperationMode,
		IsLocked:      raw.IsLocked,
	}
	return StatusUpdate{
		OperationMode: cs.Mode(),
		IsLocked:      raw.IsLocked,
		Message:       raw.Message,
	}, nil
}

// NewLogEvent wraps an entry in a LOG envelope.
func NewLogEvent(e models.LogEntry) Event {
	b, _ := json.Marshal(e)
	return Event{Type: EventLog, Data: b}
}

// NewStatusEvent wraps a status update in a STATUS_UPDATE envelope.
func NewStatusEvent(s StatusUpdate) Event {
	b, _ := json.Marshal(s)
	return Event{Type: EventStatusUpdate, Data: b}
}
