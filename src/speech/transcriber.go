package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Protocol-Lattice/omnichat/src/models"
)

// TranscribeInstruction accompanies every audio payload.
const TranscribeInstruction = "Transcribe this audio. Return only the transcribed text."

// contentGenerator is the subset of *genai.GenerativeModel used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiTranscriber transcribes audio with a Gemini model.
type GeminiTranscriber struct {
	client *genai.Client
	model  contentGenerator
	logger *slog.Logger
}

func NewGeminiTranscriber(ctx context.Context, cfg models.ProviderConfig, logger *slog.Logger) (*GeminiTranscriber, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini transcriber: %w", models.ErrMissingAPIKey)
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini transcriber init: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiTranscriber{
		client: client,
		model:  client.GenerativeModel(cfg.Model),
		logger: logger.With("component", "speech.transcriber"),
	}, nil
}

// Transcribe returns the trimmed transcript, or "" when the provider fails.
func (g *GeminiTranscriber) Transcribe(ctx context.Context, audio Audio) string {
	if audio.Empty() {
		return ""
	}
	mt := audio.MIME
	if mt == "" {
		mt = "audio/wav"
	}

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.Blob{MIMEType: mt, Data: audio.Data}, genai.Text(TranscribeInstruction))
	if err != nil {
		g.logger.Error("transcription failed", "error", err, "bytes", len(audio.Data))
		return ""
	}

	var b strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	text := strings.TrimSpace(b.String())
	g.logger.Debug("transcribed", "chars", len(text), "latency", time.Since(start))
	return text
}

func (g *GeminiTranscriber) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

var _ Transcriber = (*GeminiTranscriber)(nil)
