package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"test-report-backend/internal/pipeline"
	"test-report-backend/internal/queue"
	"test-report-backend/internal/reports"
	"test-report-backend/internal/shared/telemetry"
)

// Runner executes one generation task to a terminal state.
type Runner interface {
	Do(ctx context.Context, task pipeline.Task) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates an envelope or task decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingDocumentID indicates a message that names no report.
type ErrMissingDocumentID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingDocumentID) Error() string { return "missing document id" }

// ErrProcess indicates the run could not be admitted after successful parsing.
type ErrProcess struct {
	DocumentID string
	RequestID  string
	Err        error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process report"
	}
	return "process report: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates the envelope and decodes the task it carries.
func ParseMessage(body string) (pipeline.Task, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return pipeline.Task{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return pipeline.Task{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.DocumentID) == "" {
		return pipeline.Task{}, meta, ErrMissingDocumentID{Meta: meta, RequestID: msg.RequestID}
	}
	task, err := pipeline.DecodeTask(msg)
	if err != nil {
		return pipeline.Task{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	return task, meta, nil
}

// Unrecoverable reports whether a parse error means the message can never
// succeed and should be removed from the queue.
func Unrecoverable(err error) bool {
	var (
		empty   ErrEmptyBody
		decode  ErrDecode
		missing ErrMissingDocumentID
	)
	return errors.As(err, &empty) || errors.As(err, &decode) || errors.As(err, &missing)
}

// HandleMessage parses a queue payload and runs the task synchronously.
// A task whose document already has an active run is treated as handled.
func HandleMessage(ctx context.Context, runner Runner, body string) error {
	if runner == nil {
		return errors.New("report runner not configured")
	}
	task, _, err := ParseMessage(body)
	if err != nil {
		return err
	}
	return Run(ctx, runner, task)
}

// Run executes an already decoded task.
func Run(ctx context.Context, runner Runner, task pipeline.Task) error {
	ctx = telemetry.WithRequestID(ctx, task.RequestID)
	err := runner.Do(ctx, task)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, reports.ErrRunInProgress):
		telemetry.Warn("worker.report.duplicate", map[string]any{
			"document_id": task.DocumentID,
			"request_id":  task.RequestID,
		})
		return nil
	default:
		return ErrProcess{DocumentID: task.DocumentID, RequestID: task.RequestID, Err: err}
	}
}
