package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"test-report-backend/internal/shared/metrics"
	"test-report-backend/internal/shared/telemetry"
)

const defaultPublishTimeout = 5 * time.Second

// Notifier persists events and then pushes them to the live channel.
type Notifier struct {
	Repo           Repo
	Publisher      Publisher
	PublishTimeout time.Duration
	now            func() time.Time
}

// NewNotifier constructs a Notifier. A nil publisher disables live delivery.
func NewNotifier(repo Repo, publisher Publisher) *Notifier {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Notifier{Repo: repo, Publisher: publisher, PublishTimeout: defaultPublishTimeout, now: time.Now}
}

// Send persists the event and attempts live delivery. Only persistence
// failures are returned; publish failures are logged and counted.
func (n *Notifier) Send(ctx context.Context, userID string, kind Kind, message string, metadata map[string]any) (Event, error) {
	if !kind.Valid() {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	event := Event{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Message:   message,
		Metadata:  metadata,
		CreatedAt: n.clock().UTC(),
	}
	if id, ok := metadata["document_id"].(string); ok {
		event.DocumentID = id
	}

	if err := n.Repo.Create(ctx, event); err != nil {
		return Event{}, fmt.Errorf("persist notification: %w", err)
	}
	metrics.IncNotificationPersisted(string(kind))

	n.publish(ctx, userID, event)
	return event, nil
}

func (n *Notifier) publish(ctx context.Context, userID string, event Event) {
	if n.Publisher == nil {
		return
	}
	timeout := n.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	pubCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := n.Publisher.Publish(pubCtx, userID, event); err != nil {
		metrics.IncNotificationPublishFailure(fmt.Sprintf("%T", n.Publisher))
		telemetry.Warn("notification.publish_failed", map[string]any{
			"notification_id": event.ID,
			"user_id":         userID,
			"kind":            string(event.Kind),
			"error":           err,
			"request_id":      telemetry.RequestID(ctx),
		})
	}
}

// InProgress announces that a report is being generated.
func (n *Notifier) InProgress(ctx context.Context, userID, documentID, title string) (Event, error) {
	return n.Send(ctx, userID, KindInProgress, InProgressMessage(title), reportMetadata(documentID, title, ""))
}

// Completed announces a successful run.
func (n *Notifier) Completed(ctx context.Context, userID, documentID, title string) (Event, error) {
	return n.Send(ctx, userID, KindCompleted, CompletedMessage(title), reportMetadata(documentID, title, ""))
}

// Failed announces a failed run with its detail.
func (n *Notifier) Failed(ctx context.Context, userID, documentID, title, detail string) (Event, error) {
	return n.Send(ctx, userID, KindFailed, FailedMessage(title, detail), reportMetadata(documentID, title, detail))
}

func reportMetadata(documentID, title, detail string) map[string]any {
	md := map[string]any{"document_id": documentID, "title": title}
	if detail != "" {
		md["error"] = detail
	}
	return md
}

func (n *Notifier) clock() time.Time {
	if n.now != nil {
		return n.now()
	}
	return time.Now()
}
