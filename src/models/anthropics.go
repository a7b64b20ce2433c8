package models

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

const defaultClaudeMaxTokens = 1024

// AnthropicLLM implements Invoker using Anthropic's Messages API.
type AnthropicLLM struct {
	Client      *anthropic.Client
	Model       string
	MaxTokens   int
	Temperature *float32
}

// NewAnthropicLLM constructs a client. SDK retries are disabled; failures surface once.
func NewAnthropicLLM(cfg ProviderConfig) (*AnthropicLLM, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("claude: %w (set ANTHROPIC_API_KEY)", ErrMissingAPIKey)
	}
	opts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(cfg.APIKey),
		anthropicopt.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(cfg.BaseURL))
	}
	cl := anthropic.NewClient(opts...)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}
	return &AnthropicLLM{
		Client:      &cl,
		Model:       cfg.Model,
		MaxTokens:   maxTokens,
		Temperature: cfg.Temperature,
	}, nil
}

// Invoke performs a single-turn completion and returns the concatenated text blocks.
func (a *AnthropicLLM) Invoke(ctx context.Context, prompt string, _ []File) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: int64(a.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if a.Temperature != nil {
		params.Temperature = anthropic.Float(float64(*a.Temperature))
	}

	msg, err := a.Client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}

	var b strings.Builder
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	return b.String(), nil
}

var _ Invoker = (*AnthropicLLM)(nil)
