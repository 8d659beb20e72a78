// Package openai streams chat completions through sashabaranov/go-openai.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"test-report-backend/internal/llm"
)

const (
	systemPrompt = "Eres un generador de documentación de pruebas. Responde solo con el formato solicitado."
)

// Client implements llm.Streamer using OpenAI chat completions.
type Client struct {
	api   *goopenai.Client
	model string
}

// Option customizes a Client.
type Option func(*goopenai.ClientConfig)

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(url string) Option {
	return func(cfg *goopenai.ClientConfig) { cfg.BaseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient overrides the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(cfg *goopenai.ClientConfig) { cfg.HTTPClient = hc }
}

// NewClient constructs a streaming OpenAI client.
func NewClient(apiKey, model string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.HTTPClient = llm.NewStreamingHTTPClient(llm.DefaultResponseHeaderTimeout)
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{api: goopenai.NewClientWithConfig(cfg), model: model}, nil
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return "openai" }

// Stream sends prompt as a single user message and forwards every content delta.
func (c *Client) Stream(ctx context.Context, prompt string, onChunk func(string) error) error {
	req := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	}
	if !isGPT5(c.model) {
		req.Temperature = 0.2
	}

	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return fmt.Errorf("openai stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("openai stream recv: %w", err)
		}
		for _, choice := range resp.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := onChunk(choice.Delta.Content); err != nil {
				return err
			}
		}
	}
}

// gpt-5 models reject a custom temperature.
func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Streamer = (*Client)(nil)
