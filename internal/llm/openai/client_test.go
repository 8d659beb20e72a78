package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	if _, err := NewClient("", "gpt-4o"); err == nil {
		t.Fatalf("expected error for missing key")
	}
	if _, err := NewClient("sk", " "); err == nil {
		t.Fatalf("expected error for missing model")
	}
}

func sseServer(t *testing.T, chunks []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for i, c := range chunks {
			fmt.Fprintf(w, "data: {\"id\":\"c%d\",\"object\":\"chat.completion.chunk\",\"model\":\"gpt-4o\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", i, c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStreamForwardsDeltas(t *testing.T) {
	srv := sseServer(t, []string{"[CONTEO]", "\n{}", "\n[TEL]"})
	client, err := NewClient("sk-test", "gpt-4o", WithBaseURL(srv.URL+"/v1"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	var b strings.Builder
	err = client.Stream(context.Background(), "prompt", func(chunk string) error {
		b.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if b.String() != "[CONTEO]\n{}\n[TEL]" {
		t.Fatalf("got %q", b.String())
	}
}

func TestStreamStopsOnCallbackError(t *testing.T) {
	srv := sseServer(t, []string{"a", "b", "c"})
	client, err := NewClient("sk-test", "gpt-4o", WithBaseURL(srv.URL+"/v1"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	stop := fmt.Errorf("stop")
	var seen int
	err = client.Stream(context.Background(), "prompt", func(string) error {
		seen++
		return stop
	})
	if err != stop {
		t.Fatalf("err = %v, want callback error", err)
	}
	if seen != 1 {
		t.Fatalf("seen = %d", seen)
	}
}

func TestStreamSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient("sk-test", "gpt-4o", WithBaseURL(srv.URL+"/v1"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	err = client.Stream(context.Background(), "prompt", func(string) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("err = %v", err)
	}
}
