package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"test-report-backend/internal/queue"
)

// Flow distinguishes the first generation from a re-generation.
type Flow string

const (
	FlowInitial    Flow = "initial"
	FlowVersioning Flow = "versioning"
)

// Valid reports whether f is a known flow.
func (f Flow) Valid() bool {
	switch f {
	case FlowInitial, FlowVersioning:
		return true
	default:
		return false
	}
}

// Task is one background run. It is never persisted; its effects are the
// document, version and notification writes made while executing it.
type Task struct {
	DocumentID      string `json:"documentId"`
	Flow            Flow   `json:"flow"`
	Title           string `json:"title"`
	Instruction     string `json:"instruction"`
	RequesterID     string `json:"requesterId"`
	RequesterName   string `json:"requesterName,omitempty"`
	PreviousVersion int    `json:"previousVersion,omitempty"`
	NewArtifactID   string `json:"newArtifactId,omitempty"`
	RequestID       string `json:"requestId,omitempty"`
}

// EncodeTask wraps a task in a report.run queue envelope.
func EncodeTask(task Task, now time.Time) (queue.Message, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return queue.Message{}, err
	}
	return queue.Message{
		Kind:       queue.KindReportRun,
		DocumentID: task.DocumentID,
		RequestID:  task.RequestID,
		EnqueuedAt: now.UTC().Format(time.RFC3339),
		Version:    queue.CurrentVersion,
		Payload:    payload,
	}, nil
}

// DecodeTask extracts a task from a report.run envelope.
func DecodeTask(msg queue.Message) (Task, error) {
	if msg.Kind != queue.KindReportRun {
		return Task{}, fmt.Errorf("unexpected message kind %q", msg.Kind)
	}
	var task Task
	if err := json.Unmarshal(msg.Payload, &task); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	if strings.TrimSpace(task.DocumentID) == "" {
		task.DocumentID = msg.DocumentID
	}
	if task.RequestID == "" {
		task.RequestID = msg.RequestID
	}
	if strings.TrimSpace(task.DocumentID) == "" {
		return Task{}, fmt.Errorf("%w: task has no document id", ErrInvalidInput)
	}
	if !task.Flow.Valid() {
		return Task{}, fmt.Errorf("%w: unknown flow %q", ErrInvalidInput, task.Flow)
	}
	return task, nil
}
