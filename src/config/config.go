// Package config loads omnichat settings from defaults, an optional YAML file
// and the environment. Credentials are read from the environment only.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Protocol-Lattice/omnichat/src/models"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Image     ImageConfig     `mapstructure:"image"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Mode         string        `mapstructure:"mode"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultsConfig selects the providers used at startup.
type DefaultsConfig struct {
	Text  string `mapstructure:"text"`
	Image string `mapstructure:"image"`
}

// ProviderSettings is one provider's connection record.
type ProviderSettings struct {
	// APIKey is never read from files.
	APIKey  string `mapstructure:"-"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	// Temperature nil keeps the provider default. openai, nvidia and meta reject 0,
	// since their client omits a zero value from the request.
	Temperature *float32 `mapstructure:"temperature"`
	MaxTokens   int      `mapstructure:"max_tokens"`
	// Enabled switches on key-less providers (ollama, dummy).
	Enabled bool `mapstructure:"enabled"`
}

type ProvidersConfig struct {
	Gemini ProviderSettings `mapstructure:"gemini"`
	OpenAI ProviderSettings `mapstructure:"openai"`
	Claude ProviderSettings `mapstructure:"claude"`
	NVIDIA ProviderSettings `mapstructure:"nvidia"`
	Meta   ProviderSettings `mapstructure:"meta"`
	Ollama ProviderSettings `mapstructure:"ollama"`
	Dummy  ProviderSettings `mapstructure:"dummy"`
}

type ImageConfig struct {
	Enabled     bool              `mapstructure:"enabled"`
	GeminiModel string            `mapstructure:"gemini_model"`
	OpenAIModel string            `mapstructure:"openai_model"`
	Editor      string            `mapstructure:"editor"`
	HuggingFace HuggingFaceConfig `mapstructure:"huggingface"`
}

type HuggingFaceConfig struct {
	APIKey   string `mapstructure:"-"`
	Model    string `mapstructure:"model"`
	Endpoint string `mapstructure:"endpoint"`
}

type AudioConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Model     string        `mapstructure:"model"`
	TTSModel  string        `mapstructure:"tts_model"`
	Voice     string        `mapstructure:"voice"`
	Device    string        `mapstructure:"device"`
	Player    string        `mapstructure:"player"`
	Threshold float64       `mapstructure:"threshold"`
	Silence   time.Duration `mapstructure:"silence"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Size    int           `mapstructure:"size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// Provider returns the settings for id.
func (c *Config) Provider(id models.ProviderID) (ProviderSettings, bool) {
	switch id {
	case models.Gemini:
		return c.Providers.Gemini, true
	case models.OpenAI:
		return c.Providers.OpenAI, true
	case models.Claude:
		return c.Providers.Claude, true
	case models.NVIDIA:
		return c.Providers.NVIDIA, true
	case models.Meta:
		return c.Providers.Meta, true
	case models.Ollama:
		return c.Providers.Ollama, true
	case models.Dummy:
		return c.Providers.Dummy, true
	}
	return ProviderSettings{}, false
}

// Configured reports whether id has what it needs to be registered.
func (c *Config) Configured(id models.ProviderID) bool {
	p, ok := c.Provider(id)
	if !ok {
		return false
	}
	switch id {
	case models.Ollama:
		return p.Enabled || p.BaseURL != ""
	case models.Dummy:
		return p.Enabled
	}
	return strings.TrimSpace(p.APIKey) != ""
}

// ProviderConfig converts the settings for id into a models.ProviderConfig.
func (c *Config) ProviderConfig(id models.ProviderID) models.ProviderConfig {
	p, _ := c.Provider(id)
	return models.ProviderConfig{
		ID:          id,
		APIKey:      p.APIKey,
		Model:       p.Model,
		BaseURL:     p.BaseURL,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}
}

// TextProviders lists every configured text provider in a stable order.
func (c *Config) TextProviders() []models.ProviderID {
	var out []models.ProviderID
	for _, id := range AllProviders {
		if c.Configured(id) {
			out = append(out, id)
		}
	}
	return out
}

// AllProviders is the fixed provider enumeration.
var AllProviders = []models.ProviderID{
	models.Gemini, models.OpenAI, models.Claude, models.NVIDIA, models.Meta, models.Ollama, models.Dummy,
}

// DisableUnavailable adjusts optional features to the credentials present. An
// image default without credentials moves to another configured image provider,
// or image generation is turned off; audio is turned off without a Gemini key.
// It returns one note per change. The text default is never touched.
func (c *Config) DisableUnavailable() []string {
	var notes []string
	if c.Image.Enabled {
		img := models.ProviderID(c.Defaults.Image)
		if isImageProvider(img) && !c.Configured(img) {
			switched := false
			for _, alt := range imageProviders {
				if c.Configured(alt) {
					notes = append(notes, fmt.Sprintf("defaults.image %q has no credentials, using %q", img, alt))
					c.Defaults.Image = string(alt)
					switched = true
					break
				}
			}
			if !switched {
				notes = append(notes, fmt.Sprintf("image generation disabled: no credentials for an image provider (set %s or %s)", envHint(models.Gemini), envHint(models.OpenAI)))
				c.Image.Enabled = false
			}
		}
	}
	if c.Audio.Enabled && !c.Configured(models.Gemini) {
		notes = append(notes, fmt.Sprintf("audio disabled: no credentials for transcription (set %s)", envHint(models.Gemini)))
		c.Audio.Enabled = false
	}
	return notes
}

var imageProviders = []models.ProviderID{models.Gemini, models.OpenAI}

func isImageProvider(id models.ProviderID) bool {
	for _, p := range imageProviders {
		if p == id {
			return true
		}
	}
	return false
}

// openAICompatible providers share the go-openai client, which omits a zero temperature.
func openAICompatible(id models.ProviderID) bool {
	return id == models.OpenAI || id == models.NVIDIA || id == models.Meta
}

// Validate fails fast when a default provider is unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	switch c.Server.Mode {
	case "", "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.mode: unsupported %q", c.Server.Mode))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	text := models.ProviderID(c.Defaults.Text)
	if _, ok := c.Provider(text); !ok {
		errs = append(errs, fmt.Errorf("defaults.text: %w: %q", models.ErrUnknownProvider, c.Defaults.Text))
	} else if !c.Configured(text) {
		errs = append(errs, fmt.Errorf("defaults.text %q: %w (set %s)", text, models.ErrMissingAPIKey, envHint(text)))
	}

	if c.Image.Enabled {
		img := models.ProviderID(c.Defaults.Image)
		if !isImageProvider(img) {
			errs = append(errs, fmt.Errorf("defaults.image: unsupported image provider %q", c.Defaults.Image))
		} else if !c.Configured(img) {
			errs = append(errs, fmt.Errorf("defaults.image %q: %w (set %s)", img, models.ErrMissingAPIKey, envHint(img)))
		}
	}

	for _, id := range AllProviders {
		if p, _ := c.Provider(id); p.Temperature != nil && *p.Temperature == 0 && openAICompatible(id) {
			errs = append(errs, fmt.Errorf("providers.%s.temperature: 0 is not supported by the OpenAI-compatible client; use a small positive value", id))
		}
	}

	if c.Audio.Enabled && !c.Configured(models.Gemini) {
		errs = append(errs, fmt.Errorf("audio: %w (set %s)", models.ErrMissingAPIKey, envHint(models.Gemini)))
	}
	if c.Audio.Threshold < 0 || c.Audio.Threshold > 255 {
		errs = append(errs, fmt.Errorf("audio.threshold %v out of range 0-255", c.Audio.Threshold))
	}
	return errors.Join(errs...)
}

func envHint(id models.ProviderID) string {
	if names := apiKeyEnv[id]; len(names) > 0 {
		return strings.Join(names, " or ")
	}
	return "providers." + string(id) + ".enabled"
}
