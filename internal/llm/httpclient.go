package llm

import (
	"net/http"
	"time"
)

// DefaultResponseHeaderTimeout bounds the wait for a provider to start answering.
const DefaultResponseHeaderTimeout = 2 * time.Minute

// NewStreamingHTTPClient returns a client for long streamed responses. Only
// the wait for response headers is bounded; the body is bounded by the
// request context, which the run timeout controls.
func NewStreamingHTTPClient(headerTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: transport}
}
