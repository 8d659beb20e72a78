package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"test-report-backend/internal/queue"
	"test-report-backend/internal/retry"
	"test-report-backend/internal/shared/metrics"
	"test-report-backend/internal/shared/telemetry"
)

// Relay drains forwarded events from the notification queue and hands them
// to a live publisher, normally the API process's Hub. Events are already
// persisted by the producer, so a failed push is dropped.
type Relay struct {
	Receiver queue.Receiver
	Target   Publisher
	// ErrorBackoff returns the wait after the given consecutive receive failure.
	ErrorBackoff func(failures int) time.Duration
}

// NewRelay constructs a Relay.
func NewRelay(receiver queue.Receiver, target Publisher) *Relay {
	return &Relay{
		Receiver:     receiver,
		Target:       target,
		ErrorBackoff: retry.Exponential(time.Second, 30*time.Second),
	}
}

// Run polls until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	telemetry.Info("notification.relay.started", nil)
	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		deliveries, err := r.Receiver.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			failures++
			var wait time.Duration
			if r.ErrorBackoff != nil {
				wait = r.ErrorBackoff(failures)
			}
			telemetry.Warn("notification.relay.receive_failed", map[string]any{
				"error":    err,
				"failures": failures,
				"wait_ms":  wait.Milliseconds(),
			})
			if !sleep(ctx, wait) {
				return nil
			}
			continue
		}
		failures = 0
		for _, d := range deliveries {
			r.handle(ctx, d)
		}
	}
}

func (r *Relay) handle(ctx context.Context, d queue.Delivery) {
	userID, event, err := DecodeForwarded([]byte(d.Body))
	if err != nil {
		telemetry.Error("notification.relay.decode_failed", map[string]any{
			"message_id": d.MessageID,
			"error":      err,
		})
	} else if err := r.Target.Publish(ctx, userID, event); err != nil {
		metrics.IncNotificationPublishFailure("relay")
		telemetry.Warn("notification.relay.publish_failed", map[string]any{
			"notification_id": event.ID,
			"user_id":         userID,
			"error":           err,
		})
	}
	if err := r.Receiver.Delete(ctx, d.ReceiptHandle); err != nil {
		telemetry.Warn("notification.relay.delete_failed", map[string]any{
			"message_id": d.MessageID,
			"error":      err,
		})
	}
}

// DecodeForwarded parses a notification.event queue body.
func DecodeForwarded(body []byte) (string, Event, error) {
	msg, err := queue.DecodeMessage(body)
	if err != nil {
		return "", Event{}, err
	}
	if msg.Kind != queue.KindNotificationEvent {
		return "", Event{}, fmt.Errorf("unexpected message kind %q", msg.Kind)
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return "", Event{}, fmt.Errorf("decode event envelope: %w", err)
	}
	if env.UserID == "" || !env.Event.Kind.Valid() {
		return "", Event{}, fmt.Errorf("%w: incomplete forwarded event", ErrInvalidKind)
	}
	return env.UserID, Event{
		ID:         env.Event.NotificationID,
		UserID:     env.UserID,
		Kind:       env.Event.Kind,
		Message:    env.Event.Message,
		DocumentID: env.Event.DocumentID,
		Metadata:   env.Event.Metadata,
		CreatedAt:  env.Event.CreatedAt,
	}, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
