package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

// MessageTypeAuditEvent carries a domain.AuditEvent payload.
const MessageTypeAuditEvent MessageType = "AUDIT_EVENT"

// Message is the envelope for everything sent to watchers. Seq increases by
// one per published message, so a watcher can detect gaps after a drop.
type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
	Seq       int64           `json:"seq,omitempty"`
}

func NewMessage(msgType MessageType, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: msgType, Payload: raw, Timestamp: time.Now().UnixMilli()}, nil
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v any) error {
	return json.Unmarshal(m.Payload, v)
}
