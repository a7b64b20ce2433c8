package imaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Protocol-Lattice/omnichat/src/apierr"
	"github.com/Protocol-Lattice/omnichat/src/models"
)

const (
	providerHuggingFace = "huggingface"
	maxErrorBody        = 2048
)

// HuggingFaceEditor edits images through a Hugging Face inference endpoint.
type HuggingFaceEditor struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	Prompt string `json:"prompt"`
}

type hfError struct {
	Error string `json:"error"`
}

// NewHuggingFaceEditor creates an editor posting to endpoint with a bearer token.
func NewHuggingFaceEditor(cfg models.ProviderConfig, logger *slog.Logger) (*HuggingFaceEditor, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("huggingface: %w (set HUGGINGFACE_API_KEY)", models.ErrMissingAPIKey)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("huggingface: endpoint is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HuggingFaceEditor{
		endpoint: cfg.BaseURL,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: 120 * time.Second},
		logger:   logger.With("component", "imaging.huggingface"),
	}, nil
}

// Edit posts the source image with the instruction and returns the produced image as a data URI.
func (h *HuggingFaceEditor) Edit(ctx context.Context, source models.File, instruction string) (string, error) {
	body, err := json.Marshal(hfRequest{
		Inputs:     source.Payload,
		Parameters: hfParameters{Prompt: instruction},
	})
	if err != nil {
		return "", fmt.Errorf("huggingface marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("huggingface request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("huggingface request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(raw))
		var he hfError
		if json.Unmarshal(raw, &he) == nil && he.Error != "" {
			msg = he.Error
		}
		return "", &apierr.StatusError{Provider: providerHuggingFace, StatusCode: resp.StatusCode, Body: msg}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("huggingface read: %w", err)
	}
	mt := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if !strings.HasPrefix(mt, "image/") {
		mt = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mt, "image/") || len(data) == 0 {
		return "", ErrNoImage
	}

	h.logger.Debug("image edited", "bytes", len(data), "mime", mt, "latency", time.Since(start))
	return DataURI(mt, data), nil
}

var _ Editor = (*HuggingFaceEditor)(nil)
