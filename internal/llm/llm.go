// Package llm is the generation client: providers stream text and the
// Generator accumulates it under a retry policy and a size cap.
package llm

import (
	"context"
	"errors"
)

// Streamer produces a model response incrementally. Implementations must
// stop and return the callback's error when onChunk fails.
type Streamer interface {
	Stream(ctx context.Context, prompt string, onChunk func(chunk string) error) error
}

// StreamFunc adapts a function to Streamer.
type StreamFunc func(ctx context.Context, prompt string, onChunk func(chunk string) error) error

func (f StreamFunc) Stream(ctx context.Context, prompt string, onChunk func(chunk string) error) error {
	return f(ctx, prompt, onChunk)
}

// ErrEmptyResponse is returned when a stream finishes without any text.
var ErrEmptyResponse = errors.New("generation service returned an empty response")

// GenerationError is the definitive failure after every attempt was used.
// Its message is the last attempt's error message.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return "generation failed"
	}
	return e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }
