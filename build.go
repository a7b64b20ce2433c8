package omnichat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Protocol-Lattice/omnichat/src/config"
	"github.com/Protocol-Lattice/omnichat/src/imaging"
	"github.com/Protocol-Lattice/omnichat/src/models"
	"github.com/Protocol-Lattice/omnichat/src/speech"
	"github.com/Protocol-Lattice/omnichat/src/voice"
)

// Stack is an Orchestrator together with the components Build created for it.
type Stack struct {
	Orchestrator *Orchestrator
	Registry     *models.Registry
	Studio       *imaging.Studio
	Recorder     *voice.Recorder
	Speaker      *speech.Speaker
	Metrics      *Metrics

	closers []func() error
}

// Close stops background work and releases provider clients.
func (s *Stack) Close() error {
	if s.Orchestrator != nil {
		s.Orchestrator.Close()
	}
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build validates cfg and wires every configured provider. Providers without
// credentials are skipped and image or audio features that lack them are
// switched off with a warning; a text default without credentials is an error.
// cfg itself is not modified.
func Build(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*Stack, error) {
	if logger == nil {
		logger = slog.Default()
	}
	eff := *cfg
	cfg = &eff
	for _, note := range cfg.DisableUnavailable() {
		logger.Warn(note)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	st := &Stack{Registry: models.NewRegistry()}
	if reg != nil {
		st.Metrics = NewMetrics(reg)
	}
	st.closers = append(st.closers, st.Registry.Close)

	fail := func(err error) (*Stack, error) {
		_ = st.Close()
		return nil, err
	}

	for _, id := range cfg.TextProviders() {
		inv, err := models.NewInvoker(ctx, cfg.ProviderConfig(id))
		if err != nil {
			return fail(fmt.Errorf("provider %s: %w", id, err))
		}
		if cfg.Cache.Enabled {
			inv = models.NewCachedLLM(inv, cfg.Cache.Size, cfg.Cache.TTL)
		}
		if err := st.Registry.Register(id, inv); err != nil {
			return fail(err)
		}
		logger.Debug("text provider registered", "provider", id, "model", cfg.ProviderConfig(id).Model)
	}

	if cfg.Image.Enabled {
		studio, err := buildStudio(ctx, cfg, logger)
		if err != nil {
			return fail(err)
		}
		st.Studio = studio
	}

	local := speech.NewCommandEngine()
	if cfg.Audio.Enabled {
		gem := cfg.ProviderConfig(models.Gemini)

		trCfg := gem
		trCfg.Model = cfg.Audio.Model
		tr, err := speech.NewGeminiTranscriber(ctx, trCfg, logger)
		if err != nil {
			return fail(err)
		}
		st.closers = append(st.closers, tr.Close)

		ttsCfg := gem
		ttsCfg.Model = cfg.Audio.TTSModel
		synth, err := speech.NewGeminiSynthesizer(ctx, ttsCfg)
		if err != nil {
			return fail(err)
		}
		if cfg.Audio.Voice != "" {
			synth.Voice = cfg.Audio.Voice
		}
		player := speech.NewCommandPlayer()
		if cfg.Audio.Player != "" {
			player.Name = cfg.Audio.Player
		}
		st.Speaker = speech.NewSpeaker(synth, player, local, logger)
		st.Recorder = voice.NewRecorder(newDevice(cfg.Audio.Device, logger), tr, voice.Config{
			Threshold: cfg.Audio.Threshold,
			Silence:   cfg.Audio.Silence,
		}, logger)
	} else {
		st.Speaker = speech.NewSpeaker(nil, nil, local, logger)
	}

	opts := Options{
		Invokers: st.Registry,
		Provider: models.ProviderID(cfg.Defaults.Text),
		Speaker:  st.Speaker,
		Metrics:  st.Metrics,
		Logger:   logger,
	}
	if st.Studio != nil {
		opts.Studio = st.Studio
	}
	if st.Recorder != nil {
		opts.Recorder = st.Recorder
	}
	orch, err := New(opts)
	if err != nil {
		return fail(err)
	}
	st.Orchestrator = orch
	return st, nil
}

func buildStudio(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*imaging.Studio, error) {
	studio := imaging.NewStudio(cfg.Defaults.Image, cfg.Image.Editor, logger)

	if cfg.Configured(models.Gemini) {
		pc := cfg.ProviderConfig(models.Gemini)
		pc.Model = cfg.Image.GeminiModel
		g, err := imaging.NewGeminiImager(ctx, pc)
		if err != nil {
			return nil, err
		}
		studio.Add(string(models.Gemini), g)
	}
	if cfg.Configured(models.OpenAI) {
		pc := cfg.ProviderConfig(models.OpenAI)
		pc.Model = cfg.Image.OpenAIModel
		g, err := imaging.NewOpenAIImager(pc)
		if err != nil {
			return nil, err
		}
		studio.Add(string(models.OpenAI), g)
	}
	if hf := cfg.Image.HuggingFace; hf.APIKey != "" {
		e, err := imaging.NewHuggingFaceEditor(models.ProviderConfig{APIKey: hf.APIKey, Model: hf.Model, BaseURL: hf.Endpoint}, logger)
		if err != nil {
			return nil, err
		}
		studio.AddEditor("huggingface", e)
	}
	if ed := cfg.Image.Editor; ed != "" && !studio.HasEditor(ed) {
		logger.Warn("configured image editor is not available, edits fall back to another provider", "editor", ed)
	}
	return studio, nil
}

func newDevice(name string, logger *slog.Logger) voice.Device {
	switch name {
	case "mock":
		return &voice.MockDevice{}
	case "", "arecord":
		return voice.NewCommandDevice(logger)
	default:
		d := voice.NewCommandDevice(logger)
		d.Name = name
		return d
	}
}
