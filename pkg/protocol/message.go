// Package protocol defines the WebSocket message types streamed to
// dashboard subscribers. The message set is closed: every outbound frame
// is one of the types below, with a fixed payload shape per type.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Server → Subscriber messages
	TypeFrameMetrics  MessageType = "frame_metrics"  // Per-cycle telemetry and KPI metrics
	TypeSessionUpdate MessageType = "session_update" // Headline scores plus persistence payloads
	TypeAlert         MessageType = "alert"          // Threshold breach (stress, posture)
	TypeHeartbeat     MessageType = "heartbeat"      // Liveness probe
	TypeBackpressure  MessageType = "status"         // Dropped-message accounting

	// Subscriber → Server messages
	TypePong MessageType = "pong" // Heartbeat acknowledgement
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message payload: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Payload:   raw,
	}, nil
}

// ParsePayload unmarshals the message payload into the provided struct
func (m *Message) ParsePayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Server → Subscriber Message Types
// =============================================================================

// FrameMetricsPayload carries per-cycle telemetry and aggregated KPIs
type FrameMetricsPayload struct {
	SessionID   string             `json:"session_id,omitempty"`
	FrameID     string             `json:"frame_id"`
	Timestamp   string             `json:"timestamp"` // ISO 8601
	LatenciesMs map[string]float64 `json:"latencies_ms"`
	Metrics     map[string]float64 `json:"metrics"`
}

// SessionUpdatePayload carries the headline KPI scores and the full set of
// persistence payloads for the cycle
type SessionUpdatePayload struct {
	SessionID           string                 `json:"session_id,omitempty"`
	OverallProductivity float64                `json:"overall_productivity"`
	FocusScore          float64                `json:"focus_score"`
	EngagementScore     float64                `json:"engagement_score"`
	StressScore         float64                `json:"stress_score"`
	Timestamp           string                 `json:"timestamp"`
	Payloads            map[string]interface{} `json:"rest_payloads,omitempty"`
}

// AlertPayload signals a threshold breach. Value is the triggering KPI score
// for stress alerts and the classified posture for posture alerts.
type AlertPayload struct {
	SessionID string      `json:"session_id,omitempty"`
	Severity  string      `json:"severity"` // "high", "medium"
	Category  string      `json:"category"` // "stress", "posture"
	Value     interface{} `json:"value"`
	Timestamp string      `json:"timestamp"`
}

// HeartbeatPayload is sent on the ping interval, bypassing the outbound queue
type HeartbeatPayload struct {
	Channel   string  `json:"channel"`
	Timestamp float64 `json:"timestamp"` // Unix seconds
}

// BackpressurePayload tells a subscriber how many messages were evicted
// from its queue since the last flush
type BackpressurePayload struct {
	Channel string `json:"channel"`
	Status  string `json:"status"` // always "backpressure_drop"
	Dropped int    `json:"dropped"`
}

// =============================================================================
// Typed constructors
// =============================================================================

// NewFrameMetricsMessage creates a frame_metrics message
func NewFrameMetricsMessage(p FrameMetricsPayload) (*Message, error) {
	return NewMessage(TypeFrameMetrics, p)
}

// NewSessionUpdateMessage creates a session_update message
func NewSessionUpdateMessage(p SessionUpdatePayload) (*Message, error) {
	return NewMessage(TypeSessionUpdate, p)
}

// NewAlertMessage creates an alert message
func NewAlertMessage(p AlertPayload) (*Message, error) {
	return NewMessage(TypeAlert, p)
}

// NewHeartbeatMessage creates a heartbeat message for a channel. The
// channel is stamped on the envelope as well as the payload, matching the
// broker's stamping of published messages.
func NewHeartbeatMessage(channel string) (*Message, error) {
	msg, err := NewMessage(TypeHeartbeat, HeartbeatPayload{
		Channel:   channel,
		Timestamp: float64(time.Now().UnixMilli()) / 1000.0,
	})
	if err != nil {
		return nil, err
	}
	msg.Channel = channel
	return msg, nil
}

// NewBackpressureMessage creates a status message reporting dropped
// messages. The channel is stamped on the envelope as well as the payload.
func NewBackpressureMessage(channel string, dropped int) (*Message, error) {
	msg, err := NewMessage(TypeBackpressure, BackpressurePayload{
		Channel: channel,
		Status:  "backpressure_drop",
		Dropped: dropped,
	})
	if err != nil {
		return nil, err
	}
	msg.Channel = channel
	return msg, nil
}

// =============================================================================
// Typed getters
// =============================================================================

// GetFrameMetrics parses the payload of a frame_metrics message
func (m *Message) GetFrameMetrics() (*FrameMetricsPayload, error) {
	if m.Type != TypeFrameMetrics {
		return nil, fmt.Errorf("message type is %s, not %s", m.Type, TypeFrameMetrics)
	}
	var p FrameMetricsPayload
	if err := m.ParsePayload(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetSessionUpdate parses the payload of a session_update message
func (m *Message) GetSessionUpdate() (*SessionUpdatePayload, error) {
	if m.Type != TypeSessionUpdate {
		return nil, fmt.Errorf("message type is %s, not %s", m.Type, TypeSessionUpdate)
	}
	var p SessionUpdatePayload
	if err := m.ParsePayload(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetAlert parses the payload of an alert message
func (m *Message) GetAlert() (*AlertPayload, error) {
	if m.Type != TypeAlert {
		return nil, fmt.Errorf("message type is %s, not %s", m.Type, TypeAlert)
	}
	var p AlertPayload
	if err := m.ParsePayload(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetBackpressure parses the payload of a status message
func (m *Message) GetBackpressure() (*BackpressurePayload, error) {
	if m.Type != TypeBackpressure {
		return nil, fmt.Errorf("message type is %s, not %s", m.Type, TypeBackpressure)
	}
	var p BackpressurePayload
	if err := m.ParsePayload(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
