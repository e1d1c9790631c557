// Package content generates explanation text for quiz questions.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const systemPrompt = "You are a patient tutor for high-school students. " +
	"Explain why the correct option of a multiple-choice question is correct and why the others are not. " +
	"Use plain language and keep LaTeX to inline math where it is unavoidable."

// ErrEmptyResponse is returned when the provider answers without text.
var ErrEmptyResponse = errors.New("no text content in generation response")

// ── APIClient: Anthropic Messages API ─────────────────────

type APIClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	attempts  int
	backoff   time.Duration
	logger    *zap.Logger
}

// NewAPIClient builds a client for the Anthropic Messages API. Extra request
// options (base URL, HTTP client) are passed through to the SDK.
func NewAPIClient(apiKey, model string, maxTokens int64, logger *zap.Logger, opts ...option.RequestOption) *APIClient {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &APIClient{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		attempts:  2,
		backoff:   time.Second,
		logger:    logger,
	}
}

func (c *APIClient) Generate(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return "", err
	}
	for _, block := range message.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", ErrEmptyResponse
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			wait := c.backoff << uint(attempt-1)
			c.logger.Info("retrying generation", zap.Duration("wait", wait), zap.Int("attempt", attempt+1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		c.logger.Warn("generation attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient: local development ─────────────────────────

// MockClient answers deterministically without calling out.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	first := prompt
	if i := strings.IndexByte(prompt, '\n'); i >= 0 {
		first = prompt[:i]
	}
	return "[Mock] Explanation for: " + strings.TrimSpace(first), nil
}
