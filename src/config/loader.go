package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Protocol-Lattice/omnichat/src/models"
)

// EnvPrefix prefixes every non-credential override, e.g. OMNICHAT_DEFAULTS_TEXT.
const EnvPrefix = "OMNICHAT"

var apiKeyEnv = map[models.ProviderID][]string{
	models.Gemini: {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	models.OpenAI: {"OPENAI_API_KEY"},
	models.Claude: {"ANTHROPIC_API_KEY", "CLAUDE_API_KEY"},
	models.NVIDIA: {"NVIDIA_API_KEY"},
	models.Meta:   {"META_API_KEY", "TOGETHER_API_KEY"},
}

const huggingFaceKeyEnv = "HUGGINGFACE_API_KEY"

// Load reads defaults, then path (optional, YAML), then the environment.
// An empty path looks for omnichat.yaml in the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("omnichat")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("providers.ollama.base_url", "OLLAMA_HOST"); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyCredentials(&cfg)
	return &cfg, nil
}

// applyCredentials copies API keys from the environment. There are no bundled keys.
func applyCredentials(cfg *Config) {
	cfg.Providers.Gemini.APIKey = firstEnv(apiKeyEnv[models.Gemini]...)
	cfg.Providers.OpenAI.APIKey = firstEnv(apiKeyEnv[models.OpenAI]...)
	cfg.Providers.Claude.APIKey = firstEnv(apiKeyEnv[models.Claude]...)
	cfg.Providers.NVIDIA.APIKey = firstEnv(apiKeyEnv[models.NVIDIA]...)
	cfg.Providers.Meta.APIKey = firstEnv(apiKeyEnv[models.Meta]...)
	cfg.Image.HuggingFace.APIKey = firstEnv(huggingFaceKeyEnv)
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("defaults.text", "gemini")
	v.SetDefault("defaults.image", "gemini")

	v.SetDefault("providers.gemini.model", "gemini-2.5-flash-lite-preview-09-2025")
	v.SetDefault("providers.gemini.base_url", "")

	v.SetDefault("providers.openai.model", "gpt-4")
	v.SetDefault("providers.openai.base_url", "")

	v.SetDefault("providers.claude.model", "claude-3-5-sonnet-20241022")
	v.SetDefault("providers.claude.base_url", "")
	v.SetDefault("providers.claude.temperature", 0.7)
	v.SetDefault("providers.claude.max_tokens", 1024)

	v.SetDefault("providers.nvidia.model", "nvidia/llama-3.1-nemotron-70b-instruct")
	v.SetDefault("providers.nvidia.base_url", "https://integrate.api.nvidia.com/v1")
	v.SetDefault("providers.nvidia.temperature", 0.5)
	v.SetDefault("providers.nvidia.max_tokens", 1024)

	v.SetDefault("providers.meta.model", "meta-llama/Meta-Llama-3.1-70B-Instruct-Turbo")
	v.SetDefault("providers.meta.base_url", "https://api.together.xyz/v1")
	v.SetDefault("providers.meta.temperature", 0.7)
	v.SetDefault("providers.meta.max_tokens", 1024)

	v.SetDefault("providers.ollama.enabled", false)
	v.SetDefault("providers.ollama.model", "llama3.2")
	v.SetDefault("providers.ollama.base_url", "")

	v.SetDefault("providers.dummy.enabled", false)
	v.SetDefault("providers.dummy.model", "")

	v.SetDefault("image.enabled", true)
	v.SetDefault("image.gemini_model", "gemini-2.5-flash-image")
	v.SetDefault("image.openai_model", "dall-e-3")
	v.SetDefault("image.editor", "huggingface")
	v.SetDefault("image.huggingface.model", "Phr00t/Qwen-Image-Edit-Rapid-AIO")
	v.SetDefault("image.huggingface.endpoint", "https://api-inference.huggingface.co/models/Phr00t/Qwen-Image-Edit-Rapid-AIO")

	v.SetDefault("audio.enabled", true)
	v.SetDefault("audio.model", "gemini-flash-latest")
	v.SetDefault("audio.tts_model", "gemini-2.5-flash-preview-tts")
	v.SetDefault("audio.voice", "Kore")
	v.SetDefault("audio.device", "arecord")
	v.SetDefault("audio.player", "ffplay")
	v.SetDefault("audio.threshold", 30)
	v.SetDefault("audio.silence", "2s")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.size", 256)
	v.SetDefault("cache.ttl", "10m")
}
