package speech

import (
	"context"
	"log/slog"
	"strings"
)

// Outcome reports which path a Speak call took.
type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomeProvider Outcome = "provider"
	OutcomeLocal    Outcome = "local"
	OutcomeSilent   Outcome = "silent"
)

// Speaker speaks replies through a provider and falls back to a local engine.
type Speaker struct {
	synth  Synthesizer
	player Player
	local  LocalEngine
	logger *slog.Logger
}

// NewSpeaker wires the provider path and the local fallback. Any of them may be nil.
func NewSpeaker(synth Synthesizer, player Player, local LocalEngine, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{
		synth:  synth,
		player: player,
		local:  local,
		logger: logger.With("component", "speech.speaker"),
	}
}

// Speak never fails. Blank text is ignored; the local engine runs at most once,
// when the provider returned no audio or the provider or playback failed.
func (s *Speaker) Speak(ctx context.Context, text string) Outcome {
	if strings.TrimSpace(text) == "" {
		return OutcomeSkipped
	}
	if s.tryProvider(ctx, text) {
		return OutcomeProvider
	}
	if s.local == nil {
		s.logger.Warn("no local speech engine, staying silent")
		return OutcomeSilent
	}
	if err := s.local.Speak(ctx, text); err != nil {
		s.logger.Warn("local speech failed", "error", err)
		return OutcomeSilent
	}
	return OutcomeLocal
}

func (s *Speaker) tryProvider(ctx context.Context, text string) bool {
	if s.synth == nil || s.player == nil {
		return false
	}
	audio, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		s.logger.Warn("provider speech failed, using local engine", "error", err)
		return false
	}
	if audio.Empty() {
		s.logger.Info("provider returned no audio, using local engine")
		return false
	}
	if err := s.player.Play(ctx, Playable(audio)); err != nil {
		s.logger.Warn("playback failed, using local engine", "error", err)
		return false
	}
	return true
}
