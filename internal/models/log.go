// Package models holds the domain types shared by the stream client, the
// dashboard store, the REST client and the simulated backend. The JSON tags
// match the backend's wire format.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventType tags a safety event produced by the backend's detection pipeline.
type EventType string

const (
	EventNormalOperation   EventType = "LOG_NORMAL_OPERATION"
	EventCriticalFalling   EventType = "LOG_CRITICAL_FALLING"
	EventCriticalSensor    EventType = "LOG_CRITICAL_SENSOR"
	EventIntrusionSlowdown EventType = "LOG_INTRUSION_SLOWDOWN"
	EventCrouchingWarn     EventType = "LOG_CROUCHING_WARN"
	EventLOTOActive        EventType = "LOG_LOTO_ACTIVE"
	EventMaintenanceSafe   EventType = "LOG_MAINTENANCE_SAFE"
	EventSystemError       EventType = "LOG_SYSTEM_ERROR"
)

// EventTypes lists the known vocabulary in display order.
var EventTypes = []EventType{
	EventNormalOperation,
	EventCriticalFalling,
	EventCriticalSensor,
	EventIntrusionSlowdown,
	EventCrouchingWarn,
	EventLOTOActive,
	EventMaintenanceSafe,
	EventSystemError,
}

// ParseEventType matches a tag such as "LOG_CRITICAL_FALLING" or its short
// form "critical_falling" against the known vocabulary.
func ParseEventType(s string) (EventType, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	want = strings.ReplaceAll(want, "-", "_")
	for _, t := range EventTypes {
		if string(t) == want || string(t) == "LOG_"+want {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// Label returns the operator-facing description of the event type.
func (t EventType) Label() string {
	switch t {
	case EventNormalOperation:
		return "Normal operation"
	case EventCriticalFalling:
		return "Fall detected"
	case EventCriticalSensor:
		return "Sensor alarm"
	case EventIntrusionSlowdown:
		return "Danger zone intrusion"
	case EventCrouchingWarn:
		return "Crouching posture"
	case EventLOTOActive:
		return "LOTO active"
	case EventMaintenanceSafe:
		return "Maintenance safe"
	case EventSystemError:
		return "System error"
	default:
		return string(t)
	}
}

// DefaultRisk is the risk level implied by the event type when the backend
// does not send one.
func (t EventType) DefaultRisk() RiskLevel {
	switch t {
	case EventCriticalFalling, EventCriticalSensor:
		return RiskCritical
	case EventIntrusionSlowdown, EventLOTOActive:
		return RiskHigh
	case EventCrouchingWarn:
		return RiskMedium
	case EventSystemError:
		return RiskWarning
	default:
		return RiskSafe
	}
}

// RiskLevel is the severity classification attached to an event.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "SAFE"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
	RiskWarning  RiskLevel = "WARNING"
)

// ParseRiskLevel normalizes a wire value. Backend revisions disagree on case
// ("high" vs "HIGH"); unknown values are kept upper-cased.
func ParseRiskLevel(s string) RiskLevel {
	return RiskLevel(strings.ToUpper(strings.TrimSpace(s)))
}

// Alerting reports whether events at this level raise the global alert.
func (r RiskLevel) Alerting() bool {
	return r == RiskCritical || r == RiskHigh
}

// LogEntry is one safety event. The client never mutates a received entry.
type LogEntry struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	EventType     EventType      `json:"event_type"`
	RiskLevel     RiskLevel      `json:"risk_level,omitempty"`
	OperationMode OperationMode  `json:"operation_mode,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// Description prefers the backend's free-form description over the label.
func (e LogEntry) Description() string {
	if d, ok := e.Details["description"].(string); ok && d != "" {
		return d
	}
	if m, ok := e.Details["message"].(string); ok && m != "" {
		return m
	}
	return e.EventType.Label()
}

// UnmarshalJSON accepts numeric or string ids, ISO 8601 or epoch timestamps,
// and case-insensitive risk levels. A timestamp that cannot be read leaves
// Timestamp zero rather than rejecting the event.
func (e *LogEntry) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID            json.RawMessage `json:"id"`
		Timestamp     json.RawMessage `json:"timestamp"`
		EventType     EventType       `json:"event_type"`
		RiskLevel     *string         `json:"risk_level"`
		OperationMode *string         `json:"operation_mode"`
		Details       map[string]any  `json:"details"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	id, err := decodeID(raw.ID)
	if err != nil {
		return err
	}
	*e = LogEntry{
		ID:        id,
		Timestamp: decodeTimestamp(raw.Timestamp),
		EventType: raw.EventType,
		Details:   raw.Details,
	}
	if raw.RiskLevel != nil && *raw.RiskLevel != "" {
		e.RiskLevel = ParseRiskLevel(*raw.RiskLevel)
	} else {
		e.RiskLevel = raw.EventType.DefaultRisk()
	}
	if raw.OperationMode != nil {
		e.OperationMode = ParseOperationMode(*raw.OperationMode)
	}
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id: %w", err)
	}
	return n.String(), nil
}

// decodeTimestamp reads a JSON string or an epoch number in seconds or
// milliseconds. Anything else yields the zero time.
func decodeTimestamp(raw json.RawMessage) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}
	}
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return time.Time{}
		}
		t, _ := ParseTimestamp(s)
		return t
	}
	var n json.Number
	if json.Unmarshal(raw, &n) != nil {
		return time.Time{}
	}
	f, err := n.Float64()
	if err != nil || f <= 0 {
		return time.Time{}
	}
	if f >= 1e12 {
		return time.UnixMilli(int64(f)).UTC()
	}
	sec := int64(f)
	return time.Unix(sec, int64((f-float64(sec))*1e9)).UTC()
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses ISO 8601 timestamps. Naive timestamps are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q is not ISO 8601", s)
}
