package pipeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"test-report-backend/internal/queue"
)

func TestEncodeDecodeTask(t *testing.T) {
	task := Task{
		DocumentID:      "doc-1",
		Flow:            FlowVersioning,
		Title:           "Sprint 4",
		Instruction:     "solo fallos",
		RequesterID:     "user-1",
		PreviousVersion: 2,
		NewArtifactID:   "file-9",
		RequestID:       "req-1",
	}
	msg, err := EncodeTask(task, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, queue.KindReportRun, msg.Kind)
	assert.Equal(t, "doc-1", msg.DocumentID)
	assert.Equal(t, "2026-01-02T03:04:05Z", msg.EnqueuedAt)

	got, err := DecodeTask(msg)
	require.NoError(t, err)
	assert.Equal(t, task, got)
}

func TestDecodeTaskRejectsBadMessages(t *testing.T) {
	_, err := DecodeTask(queue.Message{Kind: queue.KindNotificationEvent})
	assert.Error(t, err)

	payload, _ := json.Marshal(Task{Flow: FlowInitial})
	_, err = DecodeTask(queue.Message{Kind: queue.KindReportRun, Payload: payload})
	assert.ErrorIs(t, err, ErrInvalidInput)

	payload, _ = json.Marshal(Task{DocumentID: "doc-1", Flow: "rewrite"})
	_, err = DecodeTask(queue.Message{Kind: queue.KindReportRun, Payload: payload})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDecodeTaskFallsBackToEnvelopeFields(t *testing.T) {
	payload, _ := json.Marshal(Task{Flow: FlowInitial})
	got, err := DecodeTask(queue.Message{Kind: queue.KindReportRun, DocumentID: "doc-7", RequestID: "req-7", Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, "doc-7", got.DocumentID)
	assert.Equal(t, "req-7", got.RequestID)
}
