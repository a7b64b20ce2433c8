package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ---------------------------- Google Gemini ----------------------------------

// GeminiLLM is the only multimodal text provider: attachments are sent inline.
type GeminiLLM struct {
	Client      *genai.Client
	Model       string
	Temperature *float32
	MaxTokens   int
}

func NewGeminiLLM(ctx context.Context, cfg ProviderConfig) (*GeminiLLM, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini: %w (set GEMINI_API_KEY or GOOGLE_API_KEY)", ErrMissingAPIKey)
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &GeminiLLM{
		Client:      client,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, nil
}

func (g *GeminiLLM) Invoke(ctx context.Context, prompt string, files []File) (string, error) {
	model := g.Client.GenerativeModel(g.Model)
	if g.Temperature != nil {
		model.SetTemperature(*g.Temperature)
	}
	if g.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(g.MaxTokens))
	}

	parts, err := geminiParts(prompt, files)
	if err != nil {
		return "", fmt.Errorf("gemini parts: %w", err)
	}
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return geminiText(resp)
}

func (g *GeminiLLM) Close() error {
	return g.Client.Close()
}

// geminiParts orders every attachment as inline data first and the prompt text last.
func geminiParts(prompt string, files []File) ([]genai.Part, error) {
	parts := make([]genai.Part, 0, len(files)+1)
	for _, f := range files {
		data, err := f.Bytes()
		if err != nil {
			return nil, err
		}
		mt := NormalizeMIME(f.Name, f.MIME)
		if mt == "" {
			mt = "application/octet-stream"
		}
		parts = append(parts, genai.Blob{MIMEType: mt, Data: data})
	}
	return append(parts, genai.Text(prompt)), nil
}

// geminiText concatenates the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

var _ Invoker = (*GeminiLLM)(nil)
