package queue

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := Message{
		Kind:       KindReportRun,
		DocumentID: "doc-123",
		RequestID:  "request-456",
		EnqueuedAt: "2026-01-30T22:00:00Z",
		Version:    1,
		Payload:    json.RawMessage(`{"flow":"initial"}`),
	}

	payload, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}

	got, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}

	if !reflect.DeepEqual(got, msg) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, msg)
	}
}

func TestEncodeDefaultsVersion(t *testing.T) {
	payload, err := EncodeMessage(Message{Kind: KindNotificationEvent})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Version != CurrentVersion {
		t.Fatalf("version = %d", got.Version)
	}
}

func TestDecodeRejectsFutureVersion(t *testing.T) {
	if _, err := DecodeMessage([]byte(`{"kind":"report.run","version":9}`)); err == nil {
		t.Fatalf("expected error for future version")
	}
}
