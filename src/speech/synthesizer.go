package speech

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Protocol-Lattice/omnichat/src/models"
)

// DefaultVoice is the prebuilt Gemini voice used for replies.
const DefaultVoice = "Kore"

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiSynthesizer requests an AUDIO response from a Gemini speech model.
type GeminiSynthesizer struct {
	generate generateFunc
	Model    string
	Voice    string
}

func NewGeminiSynthesizer(ctx context.Context, cfg models.ProviderConfig) (*GeminiSynthesizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini tts: %w", models.ErrMissingAPIKey)
	}
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini tts init: %w", err)
	}
	return &GeminiSynthesizer{generate: client.Models.GenerateContent, Model: cfg.Model, Voice: DefaultVoice}, nil
}

// Synthesize returns the first inline audio part. A response without audio is not an error.
func (g *GeminiSynthesizer) Synthesize(ctx context.Context, text string) (Audio, error) {
	conf := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.Voice},
			},
		},
	}
	resp, err := g.generate(ctx, g.Model, genai.Text(text), conf)
	if err != nil {
		return Audio{}, fmt.Errorf("gemini tts: %w", err)
	}
	return inlineAudio(resp), nil
}

func inlineAudio(resp *genai.GenerateContentResponse) Audio {
	if resp == nil {
		return Audio{}
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
				continue
			}
			mt := p.InlineData.MIMEType
			if mt == "" {
				mt = DefaultTTSFormat.MIME()
			}
			return Audio{MIME: mt, Data: p.InlineData.Data}
		}
	}
	return Audio{}
}

var _ Synthesizer = (*GeminiSynthesizer)(nil)
