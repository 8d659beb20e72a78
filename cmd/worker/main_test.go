package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"test-report-backend/internal/pipeline"
	"test-report-backend/internal/queue"
	"test-report-backend/internal/reports"
)

type fakeReceiver struct {
	mu       sync.Mutex
	errs     []error
	batches  [][]queue.Delivery
	deleted  []string
	deleteFn func(string) error
}

func (f *fakeReceiver) Receive(ctx context.Context) ([]queue.Delivery, error) {
	f.mu.Lock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		f.mu.Unlock()
		return nil, err
	}
	if len(f.batches) > 0 {
		next := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return next, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeReceiver) Delete(ctx context.Context, receiptHandle string) error {
	_ = ctx
	if f.deleteFn != nil {
		if err := f.deleteFn(receiptHandle); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, receiptHandle)
	return nil
}

func (f *fakeReceiver) deletedHandles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type fakeRunner struct {
	mu    sync.Mutex
	err   error
	tasks []pipeline.Task
}

func (f *fakeRunner) Do(ctx context.Context, task pipeline.Task) error {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return f.err
}

func runDelivery(t *testing.T, documentID, receipt string) queue.Delivery {
	t.Helper()
	msg, err := pipeline.EncodeTask(pipeline.Task{
		DocumentID: documentID,
		Flow:       pipeline.FlowInitial,
		RequestID:  "req-" + documentID,
	}, time.Now())
	if err != nil {
		t.Fatalf("encode task: %v", err)
	}
	body, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}
	return queue.Delivery{MessageID: "m-" + documentID, ReceiptHandle: receipt, Body: string(body), ReceiveCount: 1}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	receiver := &fakeReceiver{}
	runner := &fakeRunner{}

	handleMessage(context.Background(), receiver, runner, runDelivery(t, "doc-1", "r1"))

	if got := receiver.deletedHandles(); len(got) != 1 || got[0] != "r1" {
		t.Fatalf("expected r1 deleted, got %v", got)
	}
	if len(runner.tasks) != 1 || runner.tasks[0].DocumentID != "doc-1" {
		t.Fatalf("unexpected tasks: %+v", runner.tasks)
	}
}

func TestWorkerDoesNotDeleteOnFailure(t *testing.T) {
	receiver := &fakeReceiver{}
	runner := &fakeRunner{err: errors.New("boom")}

	handleMessage(context.Background(), receiver, runner, runDelivery(t, "doc-2", "r2"))

	if got := receiver.deletedHandles(); len(got) != 0 {
		t.Fatalf("expected no delete, got %v", got)
	}
}

func TestWorkerDeletesDuplicateRun(t *testing.T) {
	receiver := &fakeReceiver{}
	runner := &fakeRunner{err: reports.ErrRunInProgress}

	handleMessage(context.Background(), receiver, runner, runDelivery(t, "doc-3", "r3"))

	if got := receiver.deletedHandles(); len(got) != 1 {
		t.Fatalf("expected duplicate run to be acknowledged, got %v", got)
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	receiver := &fakeReceiver{}
	runner := &fakeRunner{}

	handleMessage(context.Background(), receiver, runner, queue.Delivery{MessageID: "m4", ReceiptHandle: "r4", Body: "{not-json"})

	if got := receiver.deletedHandles(); len(got) != 1 {
		t.Fatalf("expected delete, got %v", got)
	}
	if len(runner.tasks) != 0 {
		t.Fatalf("runner should not be called")
	}
}

func TestWorkerDeletesOnEmptyBody(t *testing.T) {
	receiver := &fakeReceiver{}
	runner := &fakeRunner{}

	handleMessage(context.Background(), receiver, runner, queue.Delivery{MessageID: "m5", ReceiptHandle: "r5", Body: "  "})

	if got := receiver.deletedHandles(); len(got) != 1 {
		t.Fatalf("expected delete, got %v", got)
	}
}

func TestWorkerDeletesOnMissingDocumentID(t *testing.T) {
	receiver := &fakeReceiver{}
	runner := &fakeRunner{}
	body, _ := queue.EncodeMessage(queue.Message{Kind: queue.KindReportRun, RequestID: "req-6"})

	handleMessage(context.Background(), receiver, runner, queue.Delivery{MessageID: "m6", ReceiptHandle: "r6", Body: string(body)})

	if got := receiver.deletedHandles(); len(got) != 1 {
		t.Fatalf("expected delete, got %v", got)
	}
}

func TestWorkerKeepsMessageWhenDeleteFails(t *testing.T) {
	receiver := &fakeReceiver{deleteFn: func(string) error { return errors.New("throttled") }}
	runner := &fakeRunner{}

	handleMessage(context.Background(), receiver, runner, runDelivery(t, "doc-7", "r7"))

	if got := receiver.deletedHandles(); len(got) != 0 {
		t.Fatalf("expected no recorded delete, got %v", got)
	}
	if len(runner.tasks) != 1 {
		t.Fatalf("expected run to execute once")
	}
}

func TestPollProcessesBatchesUntilCanceled(t *testing.T) {
	receiver := &fakeReceiver{batches: [][]queue.Delivery{
		{runDelivery(t, "doc-a", "ra"), runDelivery(t, "doc-b", "rb")},
		{runDelivery(t, "doc-c", "rc")},
	}}
	runner := &fakeRunner{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *sync.WaitGroup, 1)
	go func() { done <- poll(ctx, receiver, runner, 2) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(receiver.deletedHandles()) < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out, deleted=%v", receiver.deletedHandles())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case wg := <-done:
		wg.Wait()
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not stop after cancel")
	}
}

func TestPollBacksOffAfterReceiveErrors(t *testing.T) {
	var mu sync.Mutex
	var waits []int
	previous := receiveBackoff
	receiveBackoff = func(failures int) time.Duration {
		mu.Lock()
		defer mu.Unlock()
		waits = append(waits, failures)
		return time.Millisecond
	}
	t.Cleanup(func() { receiveBackoff = previous })

	throttled := errors.New("throttled")
	receiver := &fakeReceiver{
		errs:    []error{throttled, throttled},
		batches: [][]queue.Delivery{{runDelivery(t, "doc-z", "rz")}},
	}
	runner := &fakeRunner{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *sync.WaitGroup, 1)
	go func() { done <- poll(ctx, receiver, runner, 1) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(receiver.deletedHandles()) < 1 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out, deleted=%v", receiver.deletedHandles())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	(<-done).Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(waits) != 2 || waits[0] != 1 || waits[1] != 2 {
		t.Fatalf("backoff attempts = %v, want [1 2]", waits)
	}
}
