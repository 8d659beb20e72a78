package pipeline

import (
	"context"
	"fmt"
	"time"

	"test-report-backend/internal/queue"
)

// Dispatcher hands an accepted task to whatever executes it.
type Dispatcher interface {
	Dispatch(ctx context.Context, task Task) error
	// Active reports whether this process already runs documentID.
	Active(documentID string) bool
}

// InlineDispatcher runs tasks on the in-process supervisor.
type InlineDispatcher struct {
	Supervisor *Supervisor
}

func (d InlineDispatcher) Dispatch(_ context.Context, task Task) error {
	return d.Supervisor.Submit(task)
}

func (d InlineDispatcher) Active(documentID string) bool {
	return d.Supervisor.Active(documentID)
}

// QueueDispatcher publishes tasks as report.run messages for the worker.
type QueueDispatcher struct {
	Client queue.Client
	now    func() time.Time
}

// NewQueueDispatcher constructs a QueueDispatcher.
func NewQueueDispatcher(client queue.Client) *QueueDispatcher {
	return &QueueDispatcher{Client: client, now: time.Now}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, task Task) error {
	now := time.Now()
	if d.now != nil {
		now = d.now()
	}
	msg, err := EncodeTask(task, now)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	if err := d.Client.Send(ctx, msg); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// Active is always false: the database status guard covers cross-process runs.
func (d *QueueDispatcher) Active(string) bool { return false }

var (
	_ Dispatcher = InlineDispatcher{}
	_ Dispatcher = (*QueueDispatcher)(nil)
)
