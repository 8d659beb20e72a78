package notifications

import "time"

// EventResponse is the outward-facing representation of an event.
type EventResponse struct {
	NotificationID string         `json:"notification_id"`
	Kind           Kind           `json:"kind"`
	Message        string         `json:"message"`
	DocumentID     string         `json:"document_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	IsRead         bool           `json:"is_read"`
	CreatedAt      time.Time      `json:"created_at"`
}

func toResponse(e Event) EventResponse {
	return EventResponse{
		NotificationID: e.ID,
		Kind:           e.Kind,
		Message:        e.Message,
		DocumentID:     e.DocumentID,
		Metadata:       e.Metadata,
		IsRead:         e.IsRead,
		CreatedAt:      e.CreatedAt,
	}
}
