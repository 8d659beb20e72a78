package notifications

import "context"

// Repo persists notification events.
type Repo interface {
	Create(ctx context.Context, event Event) error
	// ListByUser returns non-deleted events, newest first.
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]Event, error)
	MarkRead(ctx context.Context, userID, eventID string) error
	SoftDelete(ctx context.Context, userID, eventID string) error
}
