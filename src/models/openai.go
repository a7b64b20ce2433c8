package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAILLM talks to OpenAI and to every OpenAI-compatible endpoint (NVIDIA, Together/Meta).
type OpenAILLM struct {
	Client      *openai.Client
	Provider    ProviderID
	Model       string
	Temperature *float32
	MaxTokens   int
}

func NewOpenAILLM(cfg ProviderConfig) (*OpenAILLM, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s: %w", cfg.ID, ErrMissingAPIKey)
	}
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &OpenAILLM{
		Client:      openai.NewClientWithConfig(c),
		Provider:    cfg.ID,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, nil
}

// Invoke sends prompt as a single user message. Attachments are not forwarded.
func (o *OpenAILLM) Invoke(ctx context.Context, prompt string, _ []File) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.Model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	}
	if o.Temperature != nil {
		req.Temperature = *o.Temperature
	}
	if o.MaxTokens > 0 {
		req.MaxTokens = o.MaxTokens
	}

	resp, err := o.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", o.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from " + string(o.Provider))
	}
	return resp.Choices[0].Message.Content, nil
}

var _ Invoker = (*OpenAILLM)(nil)
