package imaging

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Protocol-Lattice/omnichat/src/models"
)

// GeminiImager generates and edits images with a Gemini image model.
// It needs the unified genai SDK because image output is a response modality.
type GeminiImager struct {
	Client *genai.Client
	Model  string
}

func NewGeminiImager(ctx context.Context, cfg models.ProviderConfig) (*GeminiImager, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini image: %w", models.ErrMissingAPIKey)
	}
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini image init: %w", err)
	}
	return &GeminiImager{Client: client, Model: cfg.Model}, nil
}

func (g *GeminiImager) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	resp, err := g.Client.Models.GenerateContent(ctx, g.Model, genai.Text(opts.Decorate(prompt)), imageConfig())
	if err != nil {
		return "", fmt.Errorf("gemini image generate: %w", err)
	}
	return firstImage(resp)
}

func (g *GeminiImager) Edit(ctx context.Context, source models.File, instruction string) (string, error) {
	data, err := source.Bytes()
	if err != nil {
		return "", fmt.Errorf("gemini image edit: %w", err)
	}
	mt := models.NormalizeMIME(source.Name, source.MIME)
	if mt == "" {
		mt = "image/png"
	}
	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(instruction),
		genai.NewPartFromBytes(data, mt),
	}, genai.RoleUser)}

	resp, err := g.Client.Models.GenerateContent(ctx, g.Model, contents, imageConfig())
	if err != nil {
		return "", fmt.Errorf("gemini image edit: %w", err)
	}
	return firstImage(resp)
}

func imageConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{ResponseModalities: []string{"TEXT", "IMAGE"}}
}

// firstImage returns the first inline image of resp as a data URI.
func firstImage(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrNoImage
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
				return DataURI(p.InlineData.MIMEType, p.InlineData.Data), nil
			}
		}
	}
	return "", ErrNoImage
}

var (
	_ Generator = (*GeminiImager)(nil)
	_ Editor    = (*GeminiImager)(nil)
)
