package imaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/Protocol-Lattice/omnichat/src/models"
)

// OpenAIImager generates images with the OpenAI images endpoint.
type OpenAIImager struct {
	Client *openai.Client
	Model  string
}

func NewOpenAIImager(cfg models.ProviderConfig) (*OpenAIImager, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai image: %w", models.ErrMissingAPIKey)
	}
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &OpenAIImager{Client: openai.NewClientWithConfig(c), Model: model}, nil
}

func (o *OpenAIImager) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return "", err
	}
	resp, err := o.Client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         opts.Decorate(prompt),
		Model:          o.Model,
		N:              1,
		Size:           openAISize(opts.AspectRatio),
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return "", fmt.Errorf("openai image generate: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", ErrNoImage
	}
	if b64 := resp.Data[0].B64JSON; b64 != "" {
		return "data:image/png;base64," + b64, nil
	}
	if u := resp.Data[0].URL; u != "" {
		return u, nil
	}
	return "", ErrNoImage
}

// openAISize maps a ratio to the closest size the images endpoint accepts.
func openAISize(ar AspectRatio) string {
	switch ar {
	case AspectLandscape:
		return openai.CreateImageSize1792x1024
	case AspectPortrait:
		return openai.CreateImageSize1024x1792
	default:
		return openai.CreateImageSize1024x1024
	}
}

var _ Generator = (*OpenAIImager)(nil)
