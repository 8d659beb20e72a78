package llm

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"test-report-backend/internal/retry"
	"test-report-backend/internal/shared/metrics"
	"test-report-backend/internal/shared/telemetry"
)

const (
	DefaultMaxAttempts = 2
	DefaultBackoff     = 2 * time.Second
	DefaultMaxChars    = 1_000_000
)

var errStreamCapped = errors.New("stream reached character cap")

// Options tunes a Generator. Zero values fall back to the defaults.
type Options struct {
	Provider    string
	MaxAttempts int
	Backoff     time.Duration
	MaxChars    int
}

// Generator turns a prompt into the full raw response text.
type Generator struct {
	Streamer Streamer
	Policy   retry.Policy
	MaxChars int
	Provider string
}

// NewGenerator builds a Generator with a constant-backoff retry policy.
func NewGenerator(streamer Streamer, opts Options) *Generator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	} else if opts.Backoff == 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.Provider == "" {
		opts.Provider = "unknown"
	}
	provider := opts.Provider
	return &Generator{
		Streamer: streamer,
		MaxChars: opts.MaxChars,
		Provider: provider,
		Policy: retry.Policy{
			MaxAttempts: opts.MaxAttempts,
			Backoff:     retry.Constant(opts.Backoff),
			OnRetry: func(attempt int, err error, wait time.Duration) {
				telemetry.Warn("generation.retry", map[string]any{
					"provider": provider,
					"attempt":  attempt,
					"wait_ms":  wait.Milliseconds(),
					"error":    err,
				})
			},
		},
	}
}

// Generate streams the response for prompt. Transient failures are retried
// per Policy; when attempts run out a *GenerationError carries the last
// failure. Output beyond MaxChars characters is dropped and the truncated
// text is returned as a complete response.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	var (
		out      string
		attempts int
	)
	err := g.Policy.Do(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt
		text, err := g.streamOnce(ctx, prompt)
		if err != nil {
			metrics.IncGenerationAttempt(g.Provider, "error")
			return err
		}
		metrics.IncGenerationAttempt(g.Provider, "ok")
		out = text
		return nil
	})
	if err != nil {
		telemetry.Error("generation.failed", map[string]any{
			"provider":   g.Provider,
			"attempts":   attempts,
			"error":      err,
			"request_id": telemetry.RequestID(ctx),
		})
		return "", &GenerationError{Attempts: attempts, Err: err}
	}
	return out, nil
}

func (g *Generator) streamOnce(ctx context.Context, prompt string) (string, error) {
	var (
		buf   strings.Builder
		chars int
	)
	err := g.Streamer.Stream(ctx, prompt, func(chunk string) error {
		if g.MaxChars > 0 {
			n := utf8.RuneCountInString(chunk)
			if chars+n > g.MaxChars {
				buf.WriteString(firstRunes(chunk, g.MaxChars-chars))
				chars = g.MaxChars
				return errStreamCapped
			}
			chars += n
		}
		buf.WriteString(chunk)
		return nil
	})
	switch {
	case errors.Is(err, errStreamCapped):
		metrics.IncGenerationTruncated()
		telemetry.Warn("generation.truncated", map[string]any{
			"provider":   g.Provider,
			"max_chars":  g.MaxChars,
			"request_id": telemetry.RequestID(ctx),
		})
	case err != nil:
		return "", err
	}
	if strings.TrimSpace(buf.String()) == "" {
		return "", ErrEmptyResponse
	}
	return buf.String(), nil
}

func firstRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
