// Package imaging generates and edits images through provider SDKs and
// returns them as data URIs ready for rendering.
package imaging

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/Protocol-Lattice/omnichat/src/models"
)

var (
	// ErrNoImage is returned when a provider answered without image data.
	ErrNoImage = errors.New("no image in provider response")
	// ErrNoEditor is returned when neither the selected nor the default provider can edit.
	ErrNoEditor = errors.New("no image editor configured")
	// ErrUnknownProvider is returned by Studio.Select for IDs that were never added.
	ErrUnknownProvider = errors.New("unknown image provider")
)

// Generator turns a text prompt into an image.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// Editor applies a text instruction to a source image.
type Editor interface {
	Edit(ctx context.Context, source models.File, instruction string) (string, error)
}

// Style is a rendering preset.
type Style string

const (
	StyleRealistic Style = "realistic"
	StyleArtistic  Style = "artistic"
	StyleMinimal   Style = "minimal"
	StyleAnime     Style = "anime"
)

// AspectRatio is a width:height ratio.
type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
	AspectStandard  AspectRatio = "4:3"
)

var stylePhrases = map[Style]string{
	StyleRealistic: "photorealistic, natural lighting, high detail",
	StyleArtistic:  "artistic, painterly, expressive brush strokes",
	StyleMinimal:   "minimalist, clean composition, flat colors",
	StyleAnime:     "anime style, cel shading, vibrant colors",
}

// Options tunes a generation request. The zero value means realistic, 1:1.
type Options struct {
	Style       Style
	AspectRatio AspectRatio
}

// Normalize fills defaults and rejects unknown presets.
func (o Options) Normalize() (Options, error) {
	if o.Style == "" {
		o.Style = StyleRealistic
	}
	if o.AspectRatio == "" {
		o.AspectRatio = AspectSquare
	}
	if _, ok := stylePhrases[o.Style]; !ok {
		return o, fmt.Errorf("unsupported style %q", o.Style)
	}
	switch o.AspectRatio {
	case AspectSquare, AspectLandscape, AspectPortrait, AspectStandard:
	default:
		return o, fmt.Errorf("unsupported aspect ratio %q", o.AspectRatio)
	}
	return o, nil
}

// Decorate appends the style and aspect-ratio hints to prompt.
func (o Options) Decorate(prompt string) string {
	o, err := o.Normalize()
	if err != nil {
		return prompt
	}
	return fmt.Sprintf("%s. Style: %s. Aspect ratio: %s.",
		strings.TrimRight(strings.TrimSpace(prompt), "."), stylePhrases[o.Style], o.AspectRatio)
}

// DataURI encodes data as a base64 data URI.
func DataURI(mime string, data []byte) string {
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
