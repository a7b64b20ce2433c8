package models

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// ---------------------------- Ollama -----------------------------------------

const defaultOllamaHost = "http://localhost:11434"

// OllamaLLM runs prompts against a local Ollama daemon. No API key is needed.
type OllamaLLM struct {
	Client      *ollama.Client
	Model       string
	Temperature *float32
	MaxTokens   int
}

func NewOllamaLLM(cfg ProviderConfig) (*OllamaLLM, error) {
	host := cfg.BaseURL
	if host == "" {
		host = defaultOllamaHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	httpClient := &http.Client{
		Timeout: 120 * time.Second,
	}
	return &OllamaLLM{
		Client:      ollama.NewClient(u, httpClient),
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, nil
}

// Invoke sends prompt as a single generation. Attachments are not forwarded.
func (o *OllamaLLM) Invoke(ctx context.Context, prompt string, _ []File) (string, error) {
	stream := false
	req := &ollama.GenerateRequest{
		Model:   o.Model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: map[string]any{},
	}
	if o.Temperature != nil {
		req.Options["temperature"] = *o.Temperature
	}
	if o.MaxTokens > 0 {
		req.Options["num_predict"] = o.MaxTokens
	}

	var text strings.Builder
	if err := o.Client.Generate(ctx, req, func(gr ollama.GenerateResponse) error {
		text.WriteString(gr.Response)
		return nil
	}); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return text.String(), nil
}

var _ Invoker = (*OllamaLLM)(nil)
