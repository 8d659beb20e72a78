package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"test-report-backend/internal/reports"
	"test-report-backend/internal/shared/metrics"
	"test-report-backend/internal/shared/telemetry"
)

// RunFunc executes one task to a terminal state.
type RunFunc func(ctx context.Context, task Task)

// SupervisorOptions sizes the worker pool.
type SupervisorOptions struct {
	Workers    int
	QueueSize  int
	RunTimeout time.Duration
}

const (
	defaultWorkers    = 4
	defaultQueueSize  = 64
	defaultRunTimeout = 10 * time.Minute
)

// Supervisor owns the background runs: a bounded queue drained by a fixed
// worker pool, plus the set of documents that currently have a run queued
// or executing. At most one run per document is admitted.
type Supervisor struct {
	run  RunFunc
	opts SupervisorOptions

	queue chan Task

	mu       sync.Mutex
	inFlight map[string]struct{}
	closed   bool
	started  bool

	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSupervisor builds a Supervisor; Start must be called before Submit.
func NewSupervisor(run RunFunc, opts SupervisorOptions) *Supervisor {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = defaultRunTimeout
	}
	return &Supervisor{
		run:      run,
		opts:     opts,
		queue:    make(chan Task, opts.QueueSize),
		inFlight: make(map[string]struct{}),
	}
}

// Start launches the worker pool. Runs derive their context from ctx.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.group, _ = errgroup.WithContext(s.ctx)
	for i := 0; i < s.opts.Workers; i++ {
		s.group.Go(func() error {
			for task := range s.queue {
				s.execute(s.ctx, task)
			}
			return nil
		})
	}
	telemetry.Info("pipeline.supervisor.started", map[string]any{
		"workers":    s.opts.Workers,
		"queue_size": s.opts.QueueSize,
		"timeout_ms": s.opts.RunTimeout.Milliseconds(),
	})
}

// Submit queues task without blocking. It fails with ErrRunInProgress when
// the document already has a run and with ErrQueueFull when the queue is at
// capacity.
func (s *Supervisor) Submit(task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.started {
		return ErrSupervisorClosed
	}
	if _, busy := s.inFlight[task.DocumentID]; busy {
		metrics.IncRunRejected("in_flight")
		return reports.ErrRunInProgress
	}
	select {
	case s.queue <- task:
		s.inFlight[task.DocumentID] = struct{}{}
		metrics.SetRunsInFlight(len(s.inFlight))
		return nil
	default:
		metrics.IncRunRejected("queue_full")
		return ErrQueueFull
	}
}

// Do runs task on the calling goroutine under the same accounting, deadline
// and fault isolation as pooled runs. The queue worker uses it so that its
// own concurrency limit applies.
func (s *Supervisor) Do(ctx context.Context, task Task) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSupervisorClosed
	}
	if _, busy := s.inFlight[task.DocumentID]; busy {
		s.mu.Unlock()
		metrics.IncRunRejected("in_flight")
		return reports.ErrRunInProgress
	}
	s.inFlight[task.DocumentID] = struct{}{}
	metrics.SetRunsInFlight(len(s.inFlight))
	s.mu.Unlock()

	s.execute(ctx, task)
	return nil
}

// Active reports whether documentID has a queued or running task.
func (s *Supervisor) Active(documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[documentID]
	return ok
}

// InFlight returns the number of queued or running tasks.
func (s *Supervisor) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

// Shutdown stops admitting tasks and waits for queued and running ones.
// If ctx expires first, running tasks are cancelled and ctx.Err is returned.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	started := s.started
	close(s.queue)
	s.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		_ = s.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

func (s *Supervisor) execute(ctx context.Context, task Task) {
	runCtx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()
	defer s.release(task.DocumentID)
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("pipeline.task_panic", map[string]any{
				"document_id": task.DocumentID,
				"panic":       fmt.Sprint(r),
				"stack":       string(debug.Stack()),
				"request_id":  task.RequestID,
			})
		}
	}()

	if task.RequestID != "" {
		runCtx = telemetry.WithRequestID(runCtx, task.RequestID)
	}
	s.run(runCtx, task)
}

func (s *Supervisor) release(documentID string) {
	s.mu.Lock()
	delete(s.inFlight, documentID)
	metrics.SetRunsInFlight(len(s.inFlight))
	s.mu.Unlock()
}
