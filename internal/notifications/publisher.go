package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"test-report-backend/internal/queue"
)

// Publisher delivers an already persisted event over a live channel.
// Delivery is best-effort and unconfirmed.
type Publisher interface {
	Publish(ctx context.Context, userID string, event Event) error
}

// LiveMessage is the wire shape pushed to clients.
type LiveMessage struct {
	Type           string         `json:"type"`
	NotificationID string         `json:"notification_id"`
	Kind           Kind           `json:"kind"`
	Message        string         `json:"message"`
	DocumentID     string         `json:"document_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

func toLiveMessage(e Event) LiveMessage {
	return LiveMessage{
		Type:           "notification",
		NotificationID: e.ID,
		Kind:           e.Kind,
		Message:        e.Message,
		DocumentID:     e.DocumentID,
		Metadata:       e.Metadata,
		CreatedAt:      e.CreatedAt,
	}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }

// MultiPublisher fans an event out to every publisher and joins their errors.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, userID string, event Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, userID, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SQSPublisher forwards events to a queue so that processes without the
// user's live connection (the worker) can still reach it.
type SQSPublisher struct {
	Client queue.Client
}

// EventEnvelope is the queue payload for a forwarded event.
type EventEnvelope struct {
	UserID string      `json:"userId"`
	Event  LiveMessage `json:"event"`
}

func (p SQSPublisher) Publish(ctx context.Context, userID string, event Event) error {
	payload, err := json.Marshal(EventEnvelope{UserID: userID, Event: toLiveMessage(event)})
	if err != nil {
		return err
	}
	return p.Client.Send(ctx, queue.Message{
		Kind:       queue.KindNotificationEvent,
		DocumentID: event.DocumentID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    queue.CurrentVersion,
		Payload:    payload,
	})
}

var (
	_ Publisher = NopPublisher{}
	_ Publisher = MultiPublisher(nil)
	_ Publisher = SQSPublisher{}
)
