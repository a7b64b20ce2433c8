// Package speech converts between audio and text: transcription of captured
// audio and synthesis of replies with a local fallback engine.
package speech

import "context"

// Audio is an encoded audio payload.
type Audio struct {
	MIME string
	Data []byte
}

// Empty reports whether a carries no samples.
func (a Audio) Empty() bool { return len(a.Data) == 0 }

// Transcriber turns audio into text. Implementations are best effort:
// failures are logged and yield an empty string.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) string
}

// Synthesizer asks a provider for speech. An empty Audio with a nil error
// means the provider answered without audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// Player plays synthesized audio.
type Player interface {
	Play(ctx context.Context, audio Audio) error
}

// LocalEngine speaks text without a network round trip.
type LocalEngine interface {
	Speak(ctx context.Context, text string) error
}
