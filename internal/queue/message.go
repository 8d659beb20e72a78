package queue

import (
	"encoding/json"
	"fmt"
)

// Message kinds carried on the queues.
const (
	KindReportRun         = "report.run"
	KindNotificationEvent = "notification.event"
)

// CurrentVersion is the envelope version written by this build.
const CurrentVersion = 1

// Message is the envelope sent to downstream queue consumers.
type Message struct {
	Kind       string          `json:"kind"`
	DocumentID string          `json:"documentId"`
	RequestID  string          `json:"requestId,omitempty"`
	EnqueuedAt string          `json:"enqueuedAt"`
	Version    int             `json:"version"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	if msg.Version == 0 {
		msg.Version = CurrentVersion
	}
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Version > CurrentVersion {
		return Message{}, fmt.Errorf("unsupported message version %d", msg.Version)
	}
	return msg, nil
}
