package omnichat

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Protocol-Lattice/omnichat/src/config"
	"github.com/Protocol-Lattice/omnichat/src/models"
)

func offlineConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Addr: ":0"},
		Log:      config.LogConfig{Level: "info"},
		Defaults: config.DefaultsConfig{Text: "dummy", Image: "gemini"},
		Providers: config.ProvidersConfig{
			Dummy: config.ProviderSettings{Enabled: true},
		},
		Cache: config.CacheConfig{Enabled: true, Size: 4},
	}
}

func TestBuildOffline(t *testing.T) {
	st, err := Build(context.Background(), offlineConfig(), prometheus.NewRegistry(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer st.Close()

	if ids := st.Registry.IDs(); len(ids) != 1 || ids[0] != models.Dummy {
		t.Fatalf("registered = %v", ids)
	}
	if st.Studio != nil || st.Recorder != nil {
		t.Fatal("image and audio should be off")
	}
	inv, _ := st.Registry.Lookup(models.Dummy)
	if _, ok := inv.(*models.CachedLLM); !ok {
		t.Fatalf("expected cached invoker, got %T", inv)
	}

	msg := st.Orchestrator.Reply(context.Background(), "hello", nil)
	if msg.Content != "Dummy response: hello" {
		t.Fatalf("reply = %+v", msg)
	}
	if _, err := st.Orchestrator.StartVoiceRecording(context.Background(), nil); !errors.Is(err, ErrVoiceDisabled) {
		t.Fatalf("expected ErrVoiceDisabled, got %v", err)
	}
}

func TestBuildFailsFastWithoutCredentials(t *testing.T) {
	cfg := offlineConfig()
	cfg.Defaults.Text = "openai"
	if _, err := Build(context.Background(), cfg, nil, nil); !errors.Is(err, models.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestBuildOpenAIOnlyTurnsOffGeminiFeatures(t *testing.T) {
	cfg := offlineConfig()
	cfg.Defaults.Text = "openai"
	cfg.Providers.OpenAI = config.ProviderSettings{APIKey: "sk-test"}
	cfg.Image.Enabled = true
	cfg.Audio.Enabled = true

	st, err := Build(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer st.Close()

	if st.Studio == nil || st.Studio.Selected() != "openai" {
		t.Fatalf("studio = %+v, want openai selected", st.Studio)
	}
	if st.Recorder != nil {
		t.Fatal("audio should be off without a Gemini key")
	}
	if cfg.Defaults.Image != "gemini" || !cfg.Audio.Enabled {
		t.Fatal("Build must not modify the caller's configuration")
	}
}
