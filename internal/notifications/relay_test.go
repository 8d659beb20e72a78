package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"test-report-backend/internal/queue"
)

type captureClient struct {
	sent []queue.Message
}

func (c *captureClient) Send(_ context.Context, msg queue.Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

type scriptedReceiver struct {
	mu      sync.Mutex
	batches [][]queue.Delivery
	deleted []string
}

func (r *scriptedReceiver) Receive(ctx context.Context) ([]queue.Delivery, error) {
	r.mu.Lock()
	if len(r.batches) > 0 {
		next := r.batches[0]
		r.batches = r.batches[1:]
		r.mu.Unlock()
		return next, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (r *scriptedReceiver) Delete(_ context.Context, receipt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, receipt)
	return nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, userID string, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func TestRelayForwardsQueuedEvents(t *testing.T) {
	client := &captureClient{}
	event := Event{ID: "n-1", UserID: "user-1", Kind: KindCompleted, Message: "listo", DocumentID: "doc-1", CreatedAt: time.Now().UTC()}
	if err := (SQSPublisher{Client: client}).Publish(context.Background(), "user-1", event); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	body, err := queue.EncodeMessage(client.sent[0])
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}

	receiver := &scriptedReceiver{batches: [][]queue.Delivery{{
		{MessageID: "m1", ReceiptHandle: "r1", Body: string(body)},
		{MessageID: "m2", ReceiptHandle: "r2", Body: "not json"},
	}}}
	target := &capturePublisher{err: errors.New("no connection")}
	relay := NewRelay(receiver, target)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	deadline := time.After(time.Second)
	for {
		receiver.mu.Lock()
		n := len(receiver.deleted)
		receiver.mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("deleted %d messages", n)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(target.events) != 1 {
		t.Fatalf("events = %+v", target.events)
	}
	got := target.events[0]
	if got.ID != "n-1" || got.UserID != "user-1" || got.Kind != KindCompleted || got.DocumentID != "doc-1" {
		t.Fatalf("event = %+v", got)
	}
}

func TestDecodeForwardedRejectsOtherKinds(t *testing.T) {
	body, _ := queue.EncodeMessage(queue.Message{Kind: queue.KindReportRun, DocumentID: "doc-1"})
	if _, _, err := DecodeForwarded(body); err == nil {
		t.Fatal("expected error")
	}
}

type flakyReceiver struct {
	mu     sync.Mutex
	script []error
}

func (r *flakyReceiver) Receive(ctx context.Context) ([]queue.Delivery, error) {
	r.mu.Lock()
	if len(r.script) > 0 {
		next := r.script[0]
		r.script = r.script[1:]
		r.mu.Unlock()
		return nil, next
	}
	r.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (r *flakyReceiver) Delete(context.Context, string) error { return nil }

func TestRelayBacksOffOnConsecutiveReceiveErrors(t *testing.T) {
	outage := errors.New("queue unavailable")
	receiver := &flakyReceiver{script: []error{outage, outage, outage, nil, outage}}
	relay := NewRelay(receiver, &capturePublisher{})

	var mu sync.Mutex
	var attempts []int
	relay.ErrorBackoff = func(failures int) time.Duration {
		mu.Lock()
		defer mu.Unlock()
		attempts = append(attempts, failures)
		return time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(attempts)
		mu.Unlock()
		if n == 4 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("backoff calls = %d", n)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []int{1, 2, 3, 1}
	for i, w := range want {
		if attempts[i] != w {
			t.Fatalf("attempts = %v, want %v", attempts, want)
		}
	}
}

func TestNewRelayGrowsErrorBackoff(t *testing.T) {
	relay := NewRelay(&flakyReceiver{}, &capturePublisher{})
	if first, later := relay.ErrorBackoff(1), relay.ErrorBackoff(4); first != time.Second || later != 8*time.Second {
		t.Fatalf("backoff = %s then %s", first, later)
	}
	if capped := relay.ErrorBackoff(20); capped != 30*time.Second {
		t.Fatalf("capped = %s", capped)
	}
}
