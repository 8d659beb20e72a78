package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"test-report-backend/internal/bootstrap"
	"test-report-backend/internal/queue"
	"test-report-backend/internal/retry"
	"test-report-backend/internal/shared/config"
	"test-report-backend/internal/shared/metrics"
	"test-report-backend/internal/shared/telemetry"
	"test-report-backend/internal/workerproc"
)

// receiveBackoff is the wait after the given consecutive receive failure.
var receiveBackoff = retry.Exponential(time.Second, 30*time.Second)

func main() {
	cfg := config.Load()

	if strings.TrimSpace(cfg.RunQueueURL) == "" {
		log.Fatal("RUN_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	concurrency := max(1, cfg.Pipeline.Workers)
	log.Printf("worker started queue=%s concurrency=%d visibility=%ds", app.RunQueue.QueueURL(), concurrency, app.RunQueue.VisibilitySeconds)

	wg := poll(ctx, app.RunQueue, app.Supervisor, concurrency)

	log.Printf("shutdown requested, waiting up to %s for in-flight runs", bootstrap.ShutdownTimeout)
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(bootstrap.ShutdownTimeout):
		log.Printf("shutdown timeout reached; exiting with in-flight runs")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), bootstrap.ShutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Printf("app shutdown: %v", err)
	}
}

// poll receives until ctx is done and hands each delivery to its own
// goroutine, at most concurrency at a time.
func poll(ctx context.Context, receiver queue.Receiver, runner workerproc.Runner, concurrency int) *sync.WaitGroup {
	sem := make(chan struct{}, concurrency)
	wg := &sync.WaitGroup{}
	failures := 0

	for {
		if ctx.Err() != nil {
			return wg
		}

		deliveries, err := receiver.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return wg
			}
			failures++
			wait := receiveBackoff(failures)
			telemetry.Error("worker.receive_failed", map[string]any{
				"error":    err.Error(),
				"failures": failures,
				"wait_ms":  wait.Milliseconds(),
			})
			select {
			case <-ctx.Done():
				return wg
			case <-time.After(wait):
			}
			continue
		}
		failures = 0

		for _, d := range deliveries {
			select {
			case <-ctx.Done():
				return wg
			case sem <- struct{}{}:
			}
			metrics.IncQueueJob("received")
			wg.Add(1)
			go func(d queue.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				// A shutdown signal does not cut a run short.
				handleMessage(context.WithoutCancel(ctx), receiver, runner, d)
			}(d)
		}
	}
}

func handleMessage(ctx context.Context, receiver queue.Receiver, runner workerproc.Runner, d queue.Delivery) {
	task, meta, err := workerproc.ParseMessage(d.Body)
	if err != nil {
		requestID := ""
		var missing workerproc.ErrMissingDocumentID
		if errors.As(err, &missing) {
			requestID = missing.RequestID
		}
		fields := baseFields(d, "", requestID)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.report.decode_failed", fields)
		if workerproc.Unrecoverable(err) && deleteMessage(ctx, receiver, d, "", requestID) {
			metrics.IncQueueJob("deleted_unrecoverable")
		}
		return
	}

	telemetry.Info("worker.report.received", baseFields(d, task.DocumentID, task.RequestID))

	if err := workerproc.Run(ctx, runner, task); err != nil {
		fields := baseFields(d, task.DocumentID, task.RequestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.report.failed", fields)
		metrics.IncQueueJob("failed")
		return
	}

	if deleteMessage(ctx, receiver, d, task.DocumentID, task.RequestID) {
		telemetry.Info("worker.report.completed", baseFields(d, task.DocumentID, task.RequestID))
		metrics.IncQueueJob("completed")
	}
}

func deleteMessage(ctx context.Context, receiver queue.Receiver, d queue.Delivery, documentID, requestID string) bool {
	if err := receiver.Delete(ctx, d.ReceiptHandle); err != nil {
		fields := baseFields(d, documentID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.report.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(d queue.Delivery, documentID, requestID string) map[string]any {
	fields := map[string]any{
		"document_id":    documentID,
		"sqs_message_id": d.MessageID,
		"receive_count":  d.ReceiveCount,
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}
